// Package config loads icofund settings: defaults, then a YAML file, then the
// environment, then command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/icofund/internal/contracts"
	"github.com/vadiminshakov/icofund/internal/domain"
)

const (
	DefaultRPCURL              = "http://localhost:8545"
	DefaultBatchSize           = 100
	DefaultRPCRetries          = 3
	DefaultReceiptPollInterval = 2 * time.Second
	DefaultLogPollInterval     = 4 * time.Second
	DefaultJournalDir          = "./wal/journal"
	DefaultLogLevel            = "info"
	DefaultQuote               = "USDT"
)

// Config validated settings.
type Config struct {
	RPCURL string

	// Keystore path of a V3 key file or a directory with exactly one.
	Keystore   string
	Password   string
	PrivateKey string

	Addresses contracts.Addresses
	// Deployments known contract sets by network ID, consulted for addresses not set explicitly.
	Deployments map[uint64]contracts.Addresses

	BatchSize           int
	RPCRetries          int
	ReceiptPollInterval time.Duration
	LogPollInterval     time.Duration

	Wrap    domain.WrapPolicy
	Approve domain.ApprovePolicy

	JournalDir string
	LogLevel   string

	// Quote asset used to value ether; empty disables valuation.
	Quote    string
	PriceURL string
}

// File raw YAML layout. Every value is kept as text and parsed by Parse.
type File struct {
	RPCURL              string  `yaml:"rpc_url,omitempty"`
	Keystore            string  `yaml:"keystore,omitempty"`
	ICOAddress          string  `yaml:"ico_address,omitempty"`
	SCMAddress          string  `yaml:"scm_address,omitempty"`
	WETHAddress         string  `yaml:"weth_address,omitempty"`
	BatchSize           int     `yaml:"batch_size,omitempty"`
	RPCRetries          *int    `yaml:"rpc_retries,omitempty"`
	ReceiptPollInterval string  `yaml:"receipt_poll_interval,omitempty"`
	LogPollInterval     string  `yaml:"log_poll_interval,omitempty"`
	WrapPolicy          string  `yaml:"wrap_policy,omitempty"`
	ApprovePolicy       string  `yaml:"approve_policy,omitempty"`
	ApproveCeiling      string  `yaml:"approve_ceiling,omitempty"`
	JournalDir          string  `yaml:"journal_dir,omitempty"`
	LogLevel            string  `yaml:"log_level,omitempty"`
	Quote               *string `yaml:"quote,omitempty"`
	PriceURL            string  `yaml:"price_url,omitempty"`

	Deployments map[uint64]Deployment `yaml:"deployments,omitempty"`
}

// Deployment contract set of one network in the YAML layout.
type Deployment struct {
	ICO  string `yaml:"ico,omitempty"`
	SCM  string `yaml:"scm,omitempty"`
	WETH string `yaml:"weth,omitempty"`
}

// Default settings used when nothing else is configured.
func Default() Config {
	return Config{
		RPCURL:              DefaultRPCURL,
		BatchSize:           DefaultBatchSize,
		RPCRetries:          DefaultRPCRetries,
		ReceiptPollInterval: DefaultReceiptPollInterval,
		LogPollInterval:     DefaultLogPollInterval,
		Wrap:                domain.WrapFull,
		Approve:             domain.ApprovePolicy{Mode: domain.ApproveCeiling, Ceiling: domain.DefaultApproveCeiling()},
		JournalDir:          DefaultJournalDir,
		LogLevel:            DefaultLogLevel,
		Quote:               DefaultQuote,
	}
}

// Load builds the configuration from the YAML file at path (skipped when empty)
// and the process environment.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup lookupFunc) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := cfg.merge(f); err != nil {
			return Config{}, errors.Wrapf(err, "config %s", path)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// ReadFile decodes a YAML config file.
func ReadFile(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrap(err, "read config")
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, errors.Wrapf(err, "parse yaml config %s", path)
	}
	return f, nil
}

// WriteFile encodes f as YAML at path.
func WriteFile(path string, f File) error {
	raw, err := yaml.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

func (c *Config) merge(f File) error {
	if f.RPCURL != "" {
		c.RPCURL = f.RPCURL
	}
	if f.Keystore != "" {
		c.Keystore = f.Keystore
	}

	var err error
	if c.Addresses.ICO, err = parseAddress("ico_address", f.ICOAddress, c.Addresses.ICO); err != nil {
		return err
	}
	if c.Addresses.SCM, err = parseAddress("scm_address", f.SCMAddress, c.Addresses.SCM); err != nil {
		return err
	}
	if c.Addresses.WETH, err = parseAddress("weth_address", f.WETHAddress, c.Addresses.WETH); err != nil {
		return err
	}

	if f.BatchSize != 0 {
		c.BatchSize = f.BatchSize
	}
	if f.RPCRetries != nil {
		c.RPCRetries = *f.RPCRetries
	}
	if c.ReceiptPollInterval, err = parseDuration("receipt_poll_interval", f.ReceiptPollInterval, c.ReceiptPollInterval); err != nil {
		return err
	}
	if c.LogPollInterval, err = parseDuration("log_poll_interval", f.LogPollInterval, c.LogPollInterval); err != nil {
		return err
	}

	if f.WrapPolicy != "" {
		if c.Wrap, err = domain.ParseWrapPolicy(f.WrapPolicy); err != nil {
			return errors.Wrap(err, "incorrect 'wrap_policy' param in yaml config")
		}
	}
	if f.ApprovePolicy != "" {
		if c.Approve.Mode, err = domain.ParseApproveMode(f.ApprovePolicy); err != nil {
			return errors.Wrap(err, "incorrect 'approve_policy' param in yaml config")
		}
	}
	if f.ApproveCeiling != "" {
		if c.Approve.Ceiling, err = domain.ParseAmount(domain.Ether, f.ApproveCeiling); err != nil {
			return errors.Wrap(err, "incorrect 'approve_ceiling' param in yaml config (example: 10eth)")
		}
	}

	if f.JournalDir != "" {
		c.JournalDir = f.JournalDir
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	if f.Quote != nil {
		c.Quote = strings.ToUpper(strings.TrimSpace(*f.Quote))
	}
	if f.PriceURL != "" {
		c.PriceURL = f.PriceURL
	}

	return c.mergeDeployments(f.Deployments)
}

func (c *Config) mergeDeployments(in map[uint64]Deployment) error {
	if len(in) == 0 {
		return nil
	}
	if c.Deployments == nil {
		c.Deployments = make(map[uint64]contracts.Addresses, len(in))
	}

	for netID, d := range in {
		var (
			addrs contracts.Addresses
			err   error
		)
		prefix := fmt.Sprintf("deployments.%d.", netID)
		if addrs.ICO, err = parseAddress(prefix+"ico", d.ICO, common.Address{}); err != nil {
			return err
		}
		if addrs.SCM, err = parseAddress(prefix+"scm", d.SCM, common.Address{}); err != nil {
			return err
		}
		if addrs.WETH, err = parseAddress(prefix+"weth", d.WETH, common.Address{}); err != nil {
			return err
		}
		c.Deployments[netID] = addrs
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("rpc url is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.RPCRetries < 0 {
		return fmt.Errorf("rpc retries must not be negative, got %d", c.RPCRetries)
	}
	if c.ReceiptPollInterval <= 0 || c.LogPollInterval <= 0 {
		return errors.New("poll intervals must be positive")
	}
	if !c.Wrap.IsValid() {
		return fmt.Errorf("unknown wrap policy %q", c.Wrap)
	}
	if c.Approve.Mode == domain.ApproveCeiling && c.Approve.Ceiling.IsZero() {
		return errors.New("approve ceiling must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

func parseAddress(field, value string, fallback common.Address) (common.Address, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("incorrect '%s' param: %q is not a hex address", field, value)
	}
	return common.HexToAddress(value), nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("incorrect '%s' param (example: 2s), error: %w", field, err)
	}
	return d, nil
}
