// Package schema renders the command tree as machine-readable JSON so
// programmatic callers can discover operations and flags without parsing
// help text.
package schema

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
)

type Command struct {
	Path        string    `json:"path"`
	Short       string    `json:"short"`
	Flags       []Flag    `json:"flags,omitempty"`
	Subcommands []Command `json:"subcommands,omitempty"`
}

type Flag struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Usage    string `json:"usage"`
	Default  string `json:"default,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Build serializes the subtree rooted at commandPath (the whole tree when
// empty).
func Build(root *cobra.Command, commandPath string) (Command, error) {
	cmd := root
	for _, part := range strings.Fields(commandPath) {
		next := findSubcommand(cmd, part)
		if next == nil {
			return Command{}, scouterr.Newf(scouterr.KindNotFound, "unknown command %q", commandPath)
		}
		cmd = next
	}
	return serialize(cmd), nil
}

func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

func serialize(cmd *cobra.Command) Command {
	out := Command{
		Path:  strings.TrimSpace(cmd.CommandPath()),
		Short: cmd.Short,
	}
	cmd.NonInheritedFlags().VisitAll(func(f *pflag.Flag) {
		out.Flags = append(out.Flags, Flag{
			Name:     f.Name,
			Type:     f.Value.Type(),
			Usage:    f.Usage,
			Default:  f.DefValue,
			Required: isRequired(f),
		})
	})
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" {
			continue
		}
		out.Subcommands = append(out.Subcommands, serialize(sub))
	}
	return out
}

func isRequired(f *pflag.Flag) bool {
	values, ok := f.Annotations[cobra.BashCompOneRequiredFlag]
	return ok && len(values) > 0 && values[0] == "true"
}
