package domain

import (
	"math/big"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Suffix maps a unit name to a power-of-ten multiplier.
type Suffix struct {
	Name string
	Exp  int32
}

// Currency describes how amounts of one token are entered and displayed.
type Currency struct {
	// Symbol short token name, used in logs.
	Symbol string
	// Canonical suffix appended by Format.
	Canonical string
	// Decimals number of fractional digits Format renders.
	Decimals int32
	// DefaultExp multiplier exponent used when the input has no suffix.
	DefaultExp int32

	suffixes []Suffix
}

// NewCurrency builds a currency; suffixes are matched longest first.
func NewCurrency(symbol, canonical string, decimals, defaultExp int32, suffixes ...Suffix) *Currency {
	sorted := make([]Suffix, len(suffixes))
	copy(sorted, suffixes)
	for i := range sorted {
		sorted[i].Name = strings.ToLower(sorted[i].Name)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Name) > len(sorted[j].Name)
	})

	return &Currency{
		Symbol:     symbol,
		Canonical:  canonical,
		Decimals:   decimals,
		DefaultExp: defaultExp,
		suffixes:   sorted,
	}
}

// Suffixes returns the suffix table in match order.
func (c *Currency) Suffixes() []Suffix {
	out := make([]Suffix, len(c.suffixes))
	copy(out, c.suffixes)
	return out
}

var (
	// Ether native currency and its wrapped token.
	Ether = NewCurrency("ETH", "eth", 18, 18,
		Suffix{Name: "ether", Exp: 18},
		Suffix{Name: "eth", Exp: 18},
		Suffix{Name: "pwei", Exp: 15},
		Suffix{Name: "twei", Exp: 12},
		Suffix{Name: "gwei", Exp: 9},
		Suffix{Name: "mwei", Exp: 6},
		Suffix{Name: "kwei", Exp: 3},
		Suffix{Name: "wei", Exp: 0},
	)

	// SCM token sold by the ICO.
	SCM = NewCurrency("SCM", "scm", 18, 18,
		Suffix{Name: "scm", Exp: 18},
		Suffix{Name: "wei", Exp: 0},
	)
)

// Amount exact token quantity in base units.
type Amount struct {
	units    big.Int
	currency *Currency
}

// NewAmount wraps a base-unit value. The value is copied.
func NewAmount(c *Currency, units *big.Int) Amount {
	var a Amount
	a.currency = c
	if units != nil {
		a.units.Set(units)
	}
	return a
}

// ZeroAmount returns zero in the given currency.
func ZeroAmount(c *Currency) Amount {
	return Amount{currency: c}
}

// ParseAmount parses human-readable text such as "10eth", "1500pwei" or "0x15".
func ParseAmount(c *Currency, text string) (Amount, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return Amount{}, &ParseError{Input: text, Reason: "empty amount"}
	}

	exp := c.DefaultExp
	for _, suffix := range c.suffixes {
		if strings.HasSuffix(s, suffix.Name) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix.Name))
			exp = suffix.Exp
			break
		}
	}
	if s == "" {
		return Amount{}, &ParseError{Input: text, Reason: "missing digits"}
	}

	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)

	if strings.HasPrefix(s, "0x") {
		digits := s[2:]
		if digits == "" {
			return Amount{}, &ParseError{Input: text, Reason: "missing hex digits"}
		}
		v, ok := new(big.Int).SetString(digits, 16)
		if !ok || v.Sign() < 0 || strings.ContainsAny(digits, "+-") {
			return Amount{}, &ParseError{Input: text, Reason: "malformed hex digits"}
		}
		return NewAmount(c, v.Mul(v, multiplier)), nil
	}

	if !isDecimalLiteral(s) {
		return Amount{}, &ParseError{Input: text, Reason: "malformed decimal digits"}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, &ParseError{Input: text, Reason: err.Error()}
	}
	d = d.Shift(exp)
	if !d.IsInteger() {
		return Amount{}, &ParseError{Input: text, Reason: "fraction is smaller than one base unit"}
	}

	return NewAmount(c, d.BigInt()), nil
}

// isDecimalLiteral accepts digits with at most one dot and at least one digit.
func isDecimalLiteral(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// Currency returns the descriptor the amount is denominated in.
func (a Amount) Currency() *Currency {
	if a.currency == nil {
		return Ether
	}
	return a.currency
}

// BaseUnits returns a copy of the exact magnitude.
func (a Amount) BaseUnits() *big.Int {
	return new(big.Int).Set(&a.units)
}

// Format renders the amount at fixed precision with the canonical suffix.
func (a Amount) Format() string {
	c := a.Currency()
	return decimal.NewFromBigInt(&a.units, -c.Decimals).StringFixed(c.Decimals) + c.Canonical
}

// String implements fmt.Stringer.
func (a Amount) String() string {
	return a.Format()
}

// Cmp compares base-unit magnitudes.
func (a Amount) Cmp(b Amount) int {
	return a.units.Cmp(&b.units)
}

// Equal reports whether both amounts hold the same base-unit magnitude.
func (a Amount) Equal(b Amount) bool {
	return a.Cmp(b) == 0
}

// LessThan reports a < b.
func (a Amount) LessThan(b Amount) bool {
	return a.Cmp(b) < 0
}

// IsZero reports whether the magnitude is zero.
func (a Amount) IsZero() bool {
	return a.units.Sign() == 0
}

// Sub returns a - b, floored at zero.
func (a Amount) Sub(b Amount) Amount {
	diff := new(big.Int).Sub(&a.units, &b.units)
	if diff.Sign() < 0 {
		diff.SetInt64(0)
	}
	return NewAmount(a.Currency(), diff)
}

// Max returns the larger of a and b.
func (a Amount) Max(b Amount) Amount {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// In re-denominates the same magnitude in another currency.
func (a Amount) In(c *Currency) Amount {
	return NewAmount(c, &a.units)
}
