package app

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sonic-Vault/scout-api/internal/model"
	"github.com/Sonic-Vault/scout-api/internal/schema"
)

func (s *runtimeState) newProfileCommand() *cobra.Command {
	root := &cobra.Command{Use: "profile", Short: "Profile and wallet management"}

	var getUser string
	get := &cobra.Command{
		Use:   "get",
		Short: "Show a user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			profile, err := s.eng.GetProfile(cmd.Context(), getUser)
			if err != nil {
				return err
			}
			return s.emit(profile)
		},
	}
	get.Flags().StringVar(&getUser, "user", "", "External user id")
	_ = get.MarkFlagRequired("user")
	root.AddCommand(get)

	list := &cobra.Command{
		Use:   "list",
		Short: "List all profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			profiles, err := s.eng.ListProfiles(cmd.Context())
			if err != nil {
				return err
			}
			return s.emit(profiles)
		},
	}
	root.AddCommand(list)

	var createUser, createUsername, createName string
	create := &cobra.Command{
		Use:   "create",
		Short: "Provision a custodial wallet and profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			profile, err := s.eng.CreateProfile(cmd.Context(), createUser, createUsername, createName)
			if err != nil {
				return err
			}
			return s.emit(profile)
		},
	}
	create.Flags().StringVar(&createUser, "user", "", "External user id")
	create.Flags().StringVar(&createUsername, "username", "", "Username")
	create.Flags().StringVar(&createName, "name", "", "Display name")
	_ = create.MarkFlagRequired("user")
	root.AddCommand(create)

	return root
}

func (s *runtimeState) newBalanceCommand() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a user's native balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			balance, err := s.eng.GetBalance(cmd.Context(), user)
			if err != nil {
				return err
			}
			return s.emit(balance)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "External user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (s *runtimeState) newTransferCommand() *cobra.Command {
	var user, to, amt string
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Send native value from a user's wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			result, err := s.eng.Transfer(cmd.Context(), user, to, amt)
			if err != nil {
				return err
			}
			return s.emit(result)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "External user id")
	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	cmd.Flags().StringVar(&amt, "amount", "", "Amount as a decimal string")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newTxCommand() *cobra.Command {
	root := &cobra.Command{Use: "tx", Short: "Transaction queries"}

	var ref string
	status := &cobra.Command{
		Use:   "status",
		Short: "Resolve a transaction's confirmation state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			txStatus, err := s.adapter.Status(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return s.emit(map[string]string{"status": string(txStatus)})
		},
	}
	status.Flags().StringVar(&ref, "ref", "", "Transaction hash, signature, or explorer link")
	_ = status.MarkFlagRequired("ref")
	root.AddCommand(status)

	return root
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := schema.Build(s.root, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return s.emit(tree)
		},
	}
}

func (s *runtimeState) newSwapCommand() *cobra.Command {
	root := &cobra.Command{Use: "swap", Short: "Swap lifecycle"}

	var req model.QuoteRequest
	quote := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap and issue a time-bounded quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			result, err := s.eng.GetQuote(cmd.Context(), req)
			if err != nil {
				return err
			}
			return s.emit(result)
		},
	}
	quote.Flags().StringVar(&req.FromToken, "from-token", "", "Input token address")
	quote.Flags().StringVar(&req.ToToken, "to-token", "", "Output token address")
	quote.Flags().StringVar(&req.Amount, "amount", "", "Input amount in base units")
	quote.Flags().Int64Var(&req.SlippageBps, "slippage-bps", 0, "Slippage tolerance in basis points")
	quote.Flags().StringVar(&req.FromAddress, "from-address", "", "Sender wallet address")
	quote.Flags().StringVar(&req.ToAddress, "to-address", "", "Recipient wallet address")
	quote.Flags().BoolVar(&req.Gasless, "gasless", false, "Request a gasless quote")
	_ = quote.MarkFlagRequired("from-token")
	_ = quote.MarkFlagRequired("to-token")
	_ = quote.MarkFlagRequired("amount")
	root.AddCommand(quote)

	var execUser, execQuoteID string
	execute := &cobra.Command{
		Use:   "execute",
		Short: "Execute a previously issued quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			result, err := s.eng.ExecuteSwap(cmd.Context(), execUser, execQuoteID)
			if err != nil {
				return err
			}
			return s.emit(result)
		},
	}
	execute.Flags().StringVar(&execUser, "user", "", "External user id")
	execute.Flags().StringVar(&execQuoteID, "quote-id", "", "Quote id to execute")
	_ = execute.MarkFlagRequired("user")
	_ = execute.MarkFlagRequired("quote-id")
	root.AddCommand(execute)

	var statusWallet string
	status := &cobra.Command{
		Use:   "status",
		Short: "Aggregate swap outcomes for a wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			counts, err := s.eng.GetSwapStatus(cmd.Context(), statusWallet)
			if err != nil {
				return err
			}
			return s.emit(counts)
		},
	}
	status.Flags().StringVar(&statusWallet, "wallet", "", "Wallet address")
	_ = status.MarkFlagRequired("wallet")
	root.AddCommand(status)

	var detailsID string
	details := &cobra.Command{
		Use:   "details",
		Short: "Show one swap",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			result, err := s.eng.GetSwapDetails(cmd.Context(), detailsID)
			if err != nil {
				return err
			}
			return s.emit(result)
		},
	}
	details.Flags().StringVar(&detailsID, "swap-id", "", "Swap id")
	_ = details.MarkFlagRequired("swap-id")
	root.AddCommand(details)

	var distQuoteID string
	distributions := &cobra.Command{
		Use:   "distributions",
		Short: "Show the route split for a quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureEngine(cmd.Context()); err != nil {
				return err
			}
			result, err := s.eng.GetDistributions(cmd.Context(), distQuoteID)
			if err != nil {
				return err
			}
			return s.emit(result)
		},
	}
	distributions.Flags().StringVar(&distQuoteID, "quote-id", "", "Quote id")
	_ = distributions.MarkFlagRequired("quote-id")
	root.AddCommand(distributions)

	return root
}
