package config

import (
	"strings"

	"github.com/pkg/errors"
)

// Environment variables recognised by Load.
const (
	EnvRPCURL     = "ICOFUND_RPC_URL"
	EnvICO        = "ICO_ADDRESS"
	EnvSCM        = "SCM_ADDRESS"
	EnvWETH       = "WETH_ADDRESS"
	EnvKeystore   = "ETH_KEYSTORE"
	EnvPassword   = "ETH_PASSWORD"
	EnvPrivateKey = "ETH_PRIVATE_KEY"
)

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	if v := get(EnvRPCURL); v != "" {
		c.RPCURL = v
	}
	if v := get(EnvKeystore); v != "" {
		c.Keystore = v
	}
	if v, ok := lookup(EnvPassword); ok {
		c.Password = v
	}
	if v := get(EnvPrivateKey); v != "" {
		c.PrivateKey = v
	}

	var err error
	if c.Addresses.ICO, err = parseAddress(EnvICO, get(EnvICO), c.Addresses.ICO); err != nil {
		return errors.Wrap(err, "environment")
	}
	if c.Addresses.SCM, err = parseAddress(EnvSCM, get(EnvSCM), c.Addresses.SCM); err != nil {
		return errors.Wrap(err, "environment")
	}
	if c.Addresses.WETH, err = parseAddress(EnvWETH, get(EnvWETH), c.Addresses.WETH); err != nil {
		return errors.Wrap(err, "environment")
	}

	return nil
}

// Overrides command-line values; empty fields leave the loaded config untouched.
type Overrides struct {
	RPCURL   string
	Keystore string
	LogLevel string
}

// Apply overrides on top of the loaded config and re-validates it.
func (c *Config) Apply(o Overrides) error {
	if o.RPCURL != "" {
		c.RPCURL = o.RPCURL
	}
	if o.Keystore != "" {
		c.Keystore = o.Keystore
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	return c.Validate()
}
