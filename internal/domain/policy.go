package domain

import "fmt"

// FundingPolicy selects how the ICO is funded.
type FundingPolicy int

const (
	// FundingStrict fails unless the sale accepts the full amount.
	FundingStrict FundingPolicy = iota
	// FundingBestEffort accepts a partial fill up to the amount.
	FundingBestEffort
)

// String returns the string representation.
func (p FundingPolicy) String() string {
	switch p {
	case FundingStrict:
		return "strict"
	case FundingBestEffort:
		return "best-effort"
	default:
		return "unknown"
	}
}

// WrapPolicy decides how much native currency gets wrapped when the token balance is short.
type WrapPolicy string

const (
	// WrapFull wraps the whole requested amount.
	WrapFull WrapPolicy = "full"
	// WrapShortfall wraps only the missing part.
	WrapShortfall WrapPolicy = "shortfall"
)

// IsValid checks if the WrapPolicy value is valid.
func (w WrapPolicy) IsValid() bool {
	return w == WrapFull || w == WrapShortfall
}

// ParseWrapPolicy parses a config value; empty means WrapFull.
func ParseWrapPolicy(s string) (WrapPolicy, error) {
	if s == "" {
		return WrapFull, nil
	}
	w := WrapPolicy(s)
	if !w.IsValid() {
		return "", fmt.Errorf("unknown wrap policy %q (want full or shortfall)", s)
	}
	return w, nil
}

// ApproveMode decides the allowance granted to the ICO.
type ApproveMode string

const (
	// ApproveExact approves exactly the requested amount.
	ApproveExact ApproveMode = "exact"
	// ApproveCeiling approves a fixed ceiling, raised to the amount when smaller.
	ApproveCeiling ApproveMode = "ceiling"
)

// ApprovePolicy allowance mode plus the ceiling used by ApproveCeiling.
type ApprovePolicy struct {
	Mode    ApproveMode
	Ceiling Amount
}

// DefaultApproveCeiling is 10 whole ether.
func DefaultApproveCeiling() Amount {
	a, _ := ParseAmount(Ether, "10eth")
	return a
}

// AllowanceFor returns the allowance to request for the given amount.
func (p ApprovePolicy) AllowanceFor(amount Amount) Amount {
	if p.Mode == ApproveCeiling {
		return p.Ceiling.In(amount.Currency()).Max(amount)
	}
	return amount
}

// ParseApproveMode parses a config value; empty means ApproveCeiling.
func ParseApproveMode(s string) (ApproveMode, error) {
	switch ApproveMode(s) {
	case "":
		return ApproveCeiling, nil
	case ApproveExact, ApproveCeiling:
		return ApproveMode(s), nil
	default:
		return "", fmt.Errorf("unknown approve policy %q (want exact or ceiling)", s)
	}
}
