package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/internal/domain"
	"github.com/vadiminshakov/icofund/internal/services/workflow"
)

func (s *session) icoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ico",
		Short: "Participate in the SCM ICO",
	}
	cmd.AddCommand(
		s.icoInfoCmd(),
		s.icoBalanceCmd(),
		s.icoFundCmd(),
		s.icoClaimCmd(),
		s.icoWaitCmd(),
	)
	return cmd
}

func (s *session) icoInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Get status of the ICO",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := s.App(ctx)
			if err != nil {
				return err
			}

			state, err := app.Runner.RunInfo(ctx)
			if err != nil {
				return err
			}

			var valuation string
			if s.cfg.Quote != "" {
				v, quote, err := app.Runner.Valuation(ctx, state.LeftEth)
				if err != nil {
					s.logger.Warn("failed to value remaining ETH", zap.Error(err))
				} else {
					valuation = v.StringFixed(2) + " " + quote
				}
			}

			newPrinter(s.out).ledger(state, valuation)
			return nil
		},
	}
}

func (s *session) icoBalanceCmd() *cobra.Command {
	var eth bool
	cmd := &cobra.Command{
		Use:   "balance [address]",
		Short: "Get number of SCM tokens the ICO holds for an account (your account by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			account, err := s.accountArg(args)
			if err != nil {
				return err
			}
			app, err := s.App(ctx)
			if err != nil {
				return err
			}

			balance, err := app.Runner.RunBalance(ctx, account, eth)
			if err != nil {
				return err
			}
			newPrinter(s.out).field("ICO balance", balance.Format())
			return nil
		},
	}
	cmd.Flags().BoolVar(&eth, "eth", false, "display the ETH contributed instead of the SCM allocation")
	return cmd
}

func (s *session) icoFundCmd() *cobra.Command {
	var (
		wrap       bool
		approve    bool
		bestEffort bool
	)
	cmd := &cobra.Command{
		Use:   "fund <amount>",
		Short: "Buy SCM with WETH",
		Long: "Buy SCM with WETH. Amounts accept the suffixes wei, kwei, mwei, gwei, twei, pwei, eth and ether; " +
			"a bare number means whole ether and a 0x prefix means hex digits.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := domain.ParseAmount(domain.Ether, args[0])
			if err != nil {
				return err
			}
			if amount.IsZero() {
				return errors.New("amount must be positive")
			}

			policy := domain.FundingStrict
			if bestEffort {
				policy = domain.FundingBestEffort
			}

			ctx := cmd.Context()
			signer, err := s.Signer()
			if err != nil {
				return err
			}
			app, err := s.App(ctx)
			if err != nil {
				return err
			}

			detail := fmt.Sprintf("from %s to ICO %s, %s", signer.Address().Hex(), app.Addresses.ICO.Hex(), policy)
			if wrap {
				detail += ", wrapping ETH if needed"
			}
			if err := s.Confirm("Fund the ICO with "+amount.Format()+"?", detail); err != nil {
				return err
			}

			p := newPrinter(s.out)
			report, err := app.Runner.RunFunding(ctx, signer, workflow.FundingRequest{
				Amount:  amount,
				Policy:  policy,
				Wrap:    wrap,
				Approve: approve,
			})
			p.report(report)
			if err != nil {
				return err
			}
			p.field("State", report.Phase)
			p.done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&wrap, "wrap-weth", false, "wrap and approve ETH if the WETH balance is not enough")
	cmd.Flags().BoolVar(&approve, "approve-weth", false, "ensure the ICO is authorized to spend WETH")
	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "accept a partial fill when the ICO has less capacity left")
	return cmd
}

func (s *session) icoClaimCmd() *cobra.Command {
	var waitFinish bool
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim purchased SCM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			signer, err := s.Signer()
			if err != nil {
				return err
			}
			app, err := s.App(ctx)
			if err != nil {
				return err
			}
			if err := s.Confirm("Claim SCM?", "sender "+signer.Address().Hex()); err != nil {
				return err
			}

			p := newPrinter(s.out)
			report, err := app.Runner.RunClaim(ctx, signer, waitFinish)
			p.report(report)
			if err != nil {
				return err
			}
			p.done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&waitFinish, "wait", false, "if the ICO is not finished, wait for it")
	return cmd
}

func (s *session) icoWaitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wait",
		Short: "Wait for the ICO to finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := s.App(ctx)
			if err != nil {
				return err
			}

			p := newPrinter(s.out)
			report, err := app.Runner.RunWait(ctx)
			p.report(report)
			if err != nil {
				return err
			}
			p.field("State", report.Phase)
			return nil
		},
	}
}

// accountArg returns the address argument, or the signer's address when none is given.
func (s *session) accountArg(args []string) (common.Address, error) {
	if len(args) > 0 {
		return parseAddress(args[0])
	}
	signer, err := s.Signer()
	if err != nil {
		return common.Address{}, errors.Wrap(err, "no address given")
	}
	return signer.Address(), nil
}

func parseAddress(arg string) (common.Address, error) {
	if !common.IsHexAddress(arg) {
		return common.Address{}, errors.Errorf("invalid address %q", arg)
	}
	return common.HexToAddress(arg), nil
}
