// Package cli maps command-line input onto workflow operations.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vadiminshakov/icofund/config"
	"github.com/vadiminshakov/icofund/internal"
	"github.com/vadiminshakov/icofund/internal/domain"
	"github.com/vadiminshakov/icofund/internal/services/workflow"
)

// ErrCancelled the operator declined a confirmation prompt.
var ErrCancelled = errors.New("cancelled by user")

type rootOptions struct {
	configPath string
	host       string
	keystore   string
	logLevel   string
	yes        bool
}

// session lazily builds what a command needs: config, logger, app and signer.
type session struct {
	opts rootOptions
	out  io.Writer

	cfg    config.Config
	logger *zap.Logger
	app    *internal.App
	signer domain.Signer

	confirm  func(title, detail string) (bool, error)
	password internal.PasswordPrompt
	newApp   func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*internal.App, error)
}

func newSession(out io.Writer) *session {
	return &session{
		out:      out,
		confirm:  confirmPrompt,
		password: passwordPrompt,
		newApp:   internal.NewApp,
	}
}

func (s *session) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "icofund",
		Short:         "Participate in the SCM ICO: fund with WETH, claim SCM, manage tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.load()
		},
	}
	cmd.SetOut(s.out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&s.opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&s.opts.host, "host", "", "endpoint of the ethereum node (default "+config.DefaultRPCURL+")")
	flags.StringVar(&s.opts.keystore, "keystore", "", "keystore file or directory (overrides "+config.EnvKeystore+")")
	flags.StringVar(&s.opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVarP(&s.opts.yes, "yes", "y", false, "send transactions without asking for confirmation")

	cmd.AddCommand(
		s.icoCmd(),
		s.tokenCmd(tokenSpec{name: workflow.TokenWETH, short: "Manage wrapped ether", wrapped: true}),
		s.tokenCmd(tokenSpec{name: workflow.TokenSCM, short: "Manage SCM tokens"}),
		s.historyCmd(),
		s.initCmd(),
	)

	return cmd
}

func (s *session) load() error {
	cfg, err := config.Load(s.opts.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Apply(config.Overrides{
		RPCURL:   s.opts.host,
		Keystore: s.opts.keystore,
		LogLevel: s.opts.logLevel,
	}); err != nil {
		return err
	}
	s.cfg = cfg

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	s.logger = logger
	return nil
}

func (s *session) close() {
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}

// App dials the node on first use.
func (s *session) App(ctx context.Context) (*internal.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	app, err := s.newApp(ctx, s.cfg, s.logger)
	if err != nil {
		return nil, err
	}
	s.app = app
	return app, nil
}

// Signer loads the operator key on first use.
func (s *session) Signer() (domain.Signer, error) {
	if s.signer != nil {
		return s.signer, nil
	}
	signer, err := internal.NewSigner(s.cfg, s.password)
	if err != nil {
		return nil, err
	}
	s.signer = signer
	return signer, nil
}

// Confirm asks before a transaction is sent unless --yes was given.
func (s *session) Confirm(title, detail string) error {
	if s.opts.yes {
		return nil
	}
	ok, err := s.confirm(title, detail)
	if err != nil {
		return errors.Wrap(err, "confirmation prompt")
	}
	if !ok {
		return ErrCancelled
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}

// Execute runs the command tree against os.Args; results go to stdout.
func Execute(ctx context.Context) error {
	s := newSession(os.Stdout)
	defer s.close()

	return s.rootCmd().ExecuteContext(ctx)
}
