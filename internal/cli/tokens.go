package cli

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/vadiminshakov/icofund/internal"
	"github.com/vadiminshakov/icofund/internal/domain"
)

type tokenSpec struct {
	name  string
	short string
	// wrapped adds deposit and withdraw.
	wrapped bool
}

func (s *session) tokenCmd(t tokenSpec) *cobra.Command {
	cmd := &cobra.Command{
		Use:   t.name,
		Short: t.short,
	}
	cmd.AddCommand(
		s.tokenBalanceCmd(t),
		s.tokenTransferCmd(t),
		s.tokenAllowanceCmd(t),
		s.tokenApproveCmd(t),
	)
	if t.wrapped {
		cmd.AddCommand(s.tokenDepositCmd(t), s.tokenWithdrawCmd(t))
	}
	return cmd
}

func (s *session) tokenBalanceCmd(t tokenSpec) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Get balance of the given wallet (your account by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner, err := s.accountArg(args)
			if err != nil {
				return err
			}
			app, err := s.App(ctx)
			if err != nil {
				return err
			}

			balance, err := app.Runner.TokenBalance(ctx, t.name, owner)
			if err != nil {
				return err
			}
			newPrinter(s.out).line(balance.Format())
			return nil
		},
	}
}

func (s *session) tokenTransferCmd(t tokenSpec) *cobra.Command {
	var ownerArg string
	cmd := &cobra.Command{
		Use:   "transfer <recipient> <amount>",
		Short: "Transfer funds between accounts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			var owner *common.Address
			if ownerArg != "" {
				addr, err := parseAddress(ownerArg)
				if err != nil {
					return err
				}
				owner = &addr
			}

			return s.tokenTx(cmd.Context(), t, args[1], func(ctx context.Context, app *internal.App, signer domain.Signer, amount domain.Amount) (domain.WorkflowReport, error) {
				return app.Runner.TokenTransfer(ctx, signer, t.name, owner, recipient, amount)
			}, func(amount domain.Amount) string {
				return fmt.Sprintf("Transfer %s to %s?", amount.Format(), recipient.Hex())
			})
		},
	}
	cmd.Flags().StringVar(&ownerArg, "owner", "", "spend from this account through your allowance (your account by default)")
	return cmd
}

func (s *session) tokenAllowanceCmd(t tokenSpec) *cobra.Command {
	return &cobra.Command{
		Use:   "allowance <owner> <spender>",
		Short: "Check allowance for the given owner-spender pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			spender, err := parseAddress(args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := s.App(ctx)
			if err != nil {
				return err
			}
			allowance, err := app.Runner.TokenAllowance(ctx, t.name, owner, spender)
			if err != nil {
				return err
			}
			newPrinter(s.out).line(allowance.Format())
			return nil
		},
	}
}

func (s *session) tokenApproveCmd(t tokenSpec) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <spender> <amount>",
		Short: "Allow another account to withdraw funds from yours (overrides the previous allowance)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spender, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			return s.tokenTx(cmd.Context(), t, args[1], func(ctx context.Context, app *internal.App, signer domain.Signer, amount domain.Amount) (domain.WorkflowReport, error) {
				return app.Runner.TokenApprove(ctx, signer, t.name, spender, amount)
			}, func(amount domain.Amount) string {
				return fmt.Sprintf("Approve %s to spend %s?", spender.Hex(), amount.Format())
			})
		},
	}
}

func (s *session) tokenDepositCmd(t tokenSpec) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Wrap ether",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.tokenTx(cmd.Context(), t, args[0], func(ctx context.Context, app *internal.App, signer domain.Signer, amount domain.Amount) (domain.WorkflowReport, error) {
				return app.Runner.TokenDeposit(ctx, signer, t.name, amount)
			}, func(amount domain.Amount) string {
				return "Wrap " + amount.Format() + "?"
			})
		},
	}
}

func (s *session) tokenWithdrawCmd(t tokenSpec) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <amount>",
		Short: "Unwrap ether",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.tokenTx(cmd.Context(), t, args[0], func(ctx context.Context, app *internal.App, signer domain.Signer, amount domain.Amount) (domain.WorkflowReport, error) {
				return app.Runner.TokenWithdraw(ctx, signer, t.name, amount)
			}, func(amount domain.Amount) string {
				return "Unwrap " + amount.Format() + "?"
			})
		},
	}
}

type tokenSend func(ctx context.Context, app *internal.App, signer domain.Signer, amount domain.Amount) (domain.WorkflowReport, error)

// tokenTx loads signer and app, parses amount in the token's currency, confirms and sends.
func (s *session) tokenTx(ctx context.Context, t tokenSpec, amountArg string, send tokenSend, title func(domain.Amount) string) error {
	signer, err := s.Signer()
	if err != nil {
		return err
	}
	app, err := s.App(ctx)
	if err != nil {
		return err
	}

	currency, err := app.Runner.TokenCurrency(t.name)
	if err != nil {
		return err
	}
	amount, err := domain.ParseAmount(currency, amountArg)
	if err != nil {
		return err
	}

	if err := s.Confirm(title(amount), t.name+" from "+signer.Address().Hex()); err != nil {
		return err
	}

	p := newPrinter(s.out)
	report, err := send(ctx, app, signer, amount)
	p.report(report)
	if err != nil {
		return err
	}
	p.done()
	return nil
}
