// Package setup runs the interactive config wizard.
package setup

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/icofund/config"
	"github.com/vadiminshakov/icofund/internal/domain"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers values collected by the wizard.
type answers struct {
	rpcURL         string
	icoAddress     string
	scmAddress     string
	wethAddress    string
	keystore       string
	wrapPolicy     string
	approvePolicy  string
	approveCeiling string
	quote          string
	journalDir     string
}

func defaults(cfg config.Config) answers {
	a := answers{
		rpcURL:         cfg.RPCURL,
		keystore:       cfg.Keystore,
		wrapPolicy:     string(cfg.Wrap),
		approvePolicy:  string(cfg.Approve.Mode),
		approveCeiling: cfg.Approve.Ceiling.Format(),
		quote:          cfg.Quote,
		journalDir:     cfg.JournalDir,
	}
	if cfg.Addresses.ICO != (common.Address{}) {
		a.icoAddress = cfg.Addresses.ICO.Hex()
	}
	if cfg.Addresses.SCM != (common.Address{}) {
		a.scmAddress = cfg.Addresses.SCM.Hex()
	}
	if cfg.Addresses.WETH != (common.Address{}) {
		a.wethAddress = cfg.Addresses.WETH.Hex()
	}
	return a
}

func header(w io.Writer, step string) {
	fmt.Fprint(w, "\033[H\033[2J")
	fmt.Fprintln(w, headerStyle.Render("ICOFUND CONFIG WIZARD"))
	fmt.Fprintln(w, stepStyle.Render(step))
}

// RunWizard asks for node, contracts, signer and policies, then writes a YAML config to path.
// Values of current are offered as defaults.
func RunWizard(w io.Writer, path string, current config.Config) error {
	a := defaults(current)
	var confirm bool

	header(w, "STEP 1: NODE")
	fmt.Fprintln(w, lipgloss.NewStyle().Foreground(subtle).Render("Where your ethereum node listens.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Node URL").
				Description("http, ws or ipc endpoint (e.g. http://localhost:8545)").
				Value(&a.rpcURL).
				Validate(validateURL),
		),
	).Run()
	if err != nil {
		return err
	}

	header(w, "STEP 2: CONTRACTS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("ICO address").
				Description("Leave empty to use ICO_ADDRESS at run time").
				Value(&a.icoAddress).
				Validate(validateOptionalAddress),
			huh.NewInput().
				Title("SCM address").
				Description("Leave empty to read it from the ICO contract").
				Value(&a.scmAddress).
				Validate(validateOptionalAddress),
			huh.NewInput().
				Title("WETH address").
				Description("Leave empty to read it from the ICO contract").
				Value(&a.wethAddress).
				Validate(validateOptionalAddress),
		),
	).Run()
	if err != nil {
		return err
	}

	header(w, "STEP 3: SIGNER")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Keystore").
				Description("V3 key file, or a directory holding exactly one. The password is asked at run time or read from ETH_PASSWORD").
				Value(&a.keystore),
		),
	).Run()
	if err != nil {
		return err
	}

	header(w, "STEP 4: FUNDING POLICIES")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How much ETH to wrap when WETH is short").
				Options(
					huh.NewOption("The whole amount", string(domain.WrapFull)),
					huh.NewOption("Only the missing part", string(domain.WrapShortfall)),
				).
				Value(&a.wrapPolicy),
			huh.NewSelect[string]().
				Title("WETH allowance granted to the ICO").
				Options(
					huh.NewOption("A fixed ceiling, raised to the amount when smaller", string(domain.ApproveCeiling)),
					huh.NewOption("Exactly the amount", string(domain.ApproveExact)),
				).
				Value(&a.approvePolicy),
			huh.NewInput().
				Title("Allowance ceiling").
				Description("Used with the ceiling policy (e.g. 10eth)").
				Value(&a.approveCeiling).
				Validate(validateAmount),
		),
	).Run()
	if err != nil {
		return err
	}

	header(w, "STEP 5: EXTRAS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Quote asset").
				Description("Values remaining ETH in `ico info` (e.g. USDT); empty disables it").
				Value(&a.quote),
			huh.NewInput().
				Title("Journal directory").
				Description("Where sent transactions are recorded").
				Value(&a.journalDir),
		),
	).Run()
	if err != nil {
		return err
	}

	f, err := a.file()
	if err != nil {
		return err
	}

	header(w, "FINAL CONFIRMATION")
	fmt.Fprintln(w, lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(a.summary()))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration to " + path + "?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return errors.New("setup cancelled by user")
	}

	if err := config.WriteFile(path, f); err != nil {
		return err
	}

	fmt.Fprintln(w, lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	time.Sleep(500 * time.Millisecond)
	return nil
}

// file converts answers to the YAML layout, validating them the way Load will.
func (a answers) file() (config.File, error) {
	quote := strings.ToUpper(strings.TrimSpace(a.quote))
	f := config.File{
		RPCURL:         strings.TrimSpace(a.rpcURL),
		Keystore:       strings.TrimSpace(a.keystore),
		ICOAddress:     strings.TrimSpace(a.icoAddress),
		SCMAddress:     strings.TrimSpace(a.scmAddress),
		WETHAddress:    strings.TrimSpace(a.wethAddress),
		WrapPolicy:     a.wrapPolicy,
		ApprovePolicy:  a.approvePolicy,
		ApproveCeiling: strings.TrimSpace(a.approveCeiling),
		JournalDir:     strings.TrimSpace(a.journalDir),
		Quote:          &quote,
	}

	if err := validateURL(f.RPCURL); err != nil {
		return config.File{}, err
	}
	for _, addr := range []string{f.ICOAddress, f.SCMAddress, f.WETHAddress} {
		if err := validateOptionalAddress(addr); err != nil {
			return config.File{}, err
		}
	}
	if _, err := domain.ParseWrapPolicy(f.WrapPolicy); err != nil {
		return config.File{}, err
	}
	if _, err := domain.ParseApproveMode(f.ApprovePolicy); err != nil {
		return config.File{}, err
	}
	if err := validateAmount(f.ApproveCeiling); err != nil {
		return config.File{}, err
	}

	return f, nil
}

func (a answers) summary() string {
	orDash := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "-"
		}
		return s
	}
	return fmt.Sprintf(
		"Node: %s\nICO: %s\nSCM: %s\nWETH: %s\nKeystore: %s\nWrap: %s\nApprove: %s (%s)\nQuote: %s\n",
		a.rpcURL, orDash(a.icoAddress), orDash(a.scmAddress), orDash(a.wethAddress), orDash(a.keystore),
		a.wrapPolicy, a.approvePolicy, a.approveCeiling, orDash(a.quote),
	)
}

func validateURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("node url cannot be empty")
	}
	if strings.HasSuffix(s, ".ipc") {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid url %q", s)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		return nil
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func validateOptionalAddress(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || common.IsHexAddress(s) {
		return nil
	}
	return fmt.Errorf("%q is not a hex address", s)
}

func validateAmount(s string) error {
	a, err := domain.ParseAmount(domain.Ether, s)
	if err != nil {
		return err
	}
	if a.IsZero() {
		return fmt.Errorf("must be positive")
	}
	return nil
}
