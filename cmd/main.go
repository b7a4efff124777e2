// Command icofund participates in the SCM ICO: it funds the sale with WETH, waits for
// the sale to finish, claims SCM and manages WETH and SCM balances.
//
// Usage:
//
//	icofund ico info
//	icofund ico fund 1.5eth --wrap-weth
//	icofund ico claim --wait
//	icofund weth deposit 2eth
//	icofund init
//
// Environment variables:
//
//	ICO_ADDRESS, SCM_ADDRESS, WETH_ADDRESS: contract overrides
//	ETH_KEYSTORE, ETH_PASSWORD: signer keystore and its password
//	ETH_PRIVATE_KEY: raw signer key, used instead of the keystore
//	ICOFUND_RPC_URL: node endpoint, overridden by --host
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/icofund/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		errStyle := lipgloss.NewRenderer(os.Stderr).NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
		fmt.Fprintln(os.Stderr, errStyle.Render("error:"), err)
		stop()
		os.Exit(1)
	}
}
