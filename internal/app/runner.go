// Package app wires configuration, storage, chain adapters, and the swap
// backend into the CLI surface.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Sonic-Vault/scout-api/internal/amount"
	"github.com/Sonic-Vault/scout-api/internal/chain"
	"github.com/Sonic-Vault/scout-api/internal/chain/evm"
	"github.com/Sonic-Vault/scout-api/internal/chain/solana"
	"github.com/Sonic-Vault/scout-api/internal/config"
	"github.com/Sonic-Vault/scout-api/internal/engine"
	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
	"github.com/Sonic-Vault/scout-api/internal/httpx"
	"github.com/Sonic-Vault/scout-api/internal/keys"
	"github.com/Sonic-Vault/scout-api/internal/model"
	"github.com/Sonic-Vault/scout-api/internal/store"
	"github.com/Sonic-Vault/scout-api/internal/swap"
	"github.com/Sonic-Vault/scout-api/internal/swap/aggregator"
	"github.com/Sonic-Vault/scout-api/internal/swap/amm"
	"github.com/Sonic-Vault/scout-api/internal/swap/quotestore"
)

const (
	cliName    = "scout"
	cliVersion = "1.0.0"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{stdout: stdout, stderr: stderr}
}

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	settings config.Settings
	root     *cobra.Command

	store   *store.Store
	adapter chain.Adapter
	evm     *evm.Adapter
	eng     *engine.Engine
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	state.close()
	if err == nil {
		return 0
	}
	state.renderError(err)
	return scouterr.ExitCode(err)
}

func (s *runtimeState) close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.evm != nil {
		s.evm.Close()
	}
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   cliName,
		Short: "Custodial wallet and swap orchestration engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return scouterr.Wrap(scouterr.KindInvalidInput, "load configuration", err)
			}
			s.settings = settings
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return scouterr.Wrap(scouterr.KindInvalidInput, "parse flags", err)
	})

	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&s.flags.DBPath, "db", "", "Path to the wallet database")
	cmd.PersistentFlags().StringVar(&s.flags.EVMRPCURL, "rpc-url", "", "EVM RPC endpoint")
	cmd.PersistentFlags().StringVar(&s.flags.SolanaRPC, "solana-rpc", "", "Solana RPC endpoint")
	cmd.PersistentFlags().StringVar(&s.flags.SwapBackend, "backend", "", "Swap backend (aggregator|amm)")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Request timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", 0, "Retries per request")

	cmd.AddCommand(s.newProfileCommand())
	cmd.AddCommand(s.newBalanceCommand())
	cmd.AddCommand(s.newTransferCommand())
	cmd.AddCommand(s.newTxCommand())
	cmd.AddCommand(s.newSwapCommand())
	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cliVersion)
		},
	}
}

// ensureEngine builds the store, the chain adapter, and the swap backend for
// the configured chain family. The AMM backend rides the Solana family; the
// aggregator rides EVM.
func (s *runtimeState) ensureEngine(ctx context.Context) error {
	if s.eng != nil {
		return nil
	}
	st, err := store.Open(s.settings.DBPath, s.settings.DBLockPath)
	if err != nil {
		return scouterr.Wrap(scouterr.KindFatal, "open wallet store", err)
	}
	s.store = st

	switch s.settings.SwapBackend {
	case config.SwapBackendAMM:
		rpc := solana.NewClient(s.settings.SolanaRPCURL,
			solana.WithCommitment(s.settings.SolanaCommitment),
			solana.WithTimeout(s.settings.Timeout),
			solana.WithMaxRetries(s.settings.Retries))
		s.adapter = solana.NewAdapter(rpc)

		seeds := make([]amm.PoolSeed, 0, len(s.settings.Pools))
		for _, p := range s.settings.Pools {
			seeds = append(seeds, amm.PoolSeed{
				Address:    p.Address,
				TokenAMint: p.TokenAMint,
				TokenBMint: p.TokenBMint,
			})
		}
		registry, err := amm.BuildRegistry(ctx, rpc, seeds)
		if err != nil {
			return err
		}
		quotes, err := s.newQuoteStore()
		if err != nil {
			return err
		}
		backend := amm.New(rpc, registry, quotes, amm.Options{
			FeeBps:      s.settings.SwapFeeBps,
			SlippageBps: s.settings.SlippageBps,
			QuoteTTL:    s.settings.QuoteTTL,
		})
		s.eng = engine.New(st, s.adapter, backend, engine.Options{
			Decimals: amount.SolanaDecimals,
			Generate: keys.GenerateSolana,
		})

	case config.SwapBackendAggregator:
		adapter, err := evm.Dial(ctx, s.settings.EVMRPCURL, s.settings.EVMChainID, evm.Options{
			ExplorerURL:    s.settings.EVMExplorerURL,
			ConfirmTimeout: s.settings.ConfirmTimeout,
			PollInterval:   s.settings.PollInterval,
		})
		if err != nil {
			return err
		}
		s.evm = adapter
		s.adapter = adapter

		backend := aggregator.New(
			httpx.New(s.settings.Timeout, s.settings.Retries),
			s.settings.AggregatorBaseURL,
			s.settings.QuoteTTL)
		s.eng = engine.New(st, adapter, backend, engine.Options{
			Decimals: amount.EVMDecimals,
			Generate: keys.GenerateEVM,
		})

	default:
		return scouterr.Newf(scouterr.KindInvalidInput, "unsupported swap backend %q", s.settings.SwapBackend)
	}
	return nil
}

func (s *runtimeState) newQuoteStore() (quotestore.Store, error) {
	if s.settings.RedisURL == "" {
		return quotestore.NewMemory(), nil
	}
	opt, err := redis.ParseURL(s.settings.RedisURL)
	if err != nil {
		return nil, scouterr.Wrap(scouterr.KindInvalidInput, "parse redis url", err)
	}
	return quotestore.NewRedis(redis.NewClient(opt)), nil
}

var _ swap.Backend = (*amm.Backend)(nil)
var _ swap.Backend = (*aggregator.Client)(nil)

func (s *runtimeState) emit(v any) error {
	enc := json.NewEncoder(s.runner.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *runtimeState) renderError(err error) {
	body := model.ErrorBody{
		Kind:    string(scouterr.KindOf(err)),
		Message: scouterr.UserMessage(err),
	}
	enc := json.NewEncoder(s.runner.stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}
