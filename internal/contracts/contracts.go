// Package contracts holds the ABIs of the ICO, SCM and WETH9 contracts and resolves their addresses.
package contracts

import (
	_ "embed"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Event and method names used across workflows.
const (
	EventFund      = "Fund"
	EventIcoClosed = "IcoClosed"
)

var (
	//go:embed ico.abi.json
	icoJSON string
	//go:embed erc20.abi.json
	erc20JSON string
	//go:embed weth9.abi.json
	weth9JSON string
)

var (
	// ICOABI token sale contract.
	ICOABI = mustParse("ICO", icoJSON)
	// ERC20ABI generic token, used for SCM.
	ERC20ABI = mustParse("IERC20", erc20JSON)
	// WETH9ABI wrapped ether.
	WETH9ABI = mustParse("WETH9", weth9JSON)
)

func mustParse(name, raw string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("contracts: parse " + name + " abi: " + err.Error())
	}
	return &parsed
}
