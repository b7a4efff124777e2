// Package domain defines the value types shared by the funding workflows.
package domain

import (
	"fmt"
	"strings"
)

// Pair market symbol used to value ether in a quote asset.
type Pair struct {
	// From base asset symbol.
	From string
	// To quote asset symbol.
	To string
}

// QuotePair values ETH in the given quote asset.
func QuotePair(quote string) Pair {
	return Pair{From: Ether.Symbol, To: strings.ToUpper(quote)}
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the exchange ticker, e.g. ETHUSDT.
func (p Pair) Symbol() string {
	return p.From + p.To
}
