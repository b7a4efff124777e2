// Package pricer values sale amounts in a quote asset using exchange prices.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/icofund/internal/domain"
)

// Pricer returns the last price of pair.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// Value converts an ether-denominated amount into the quote asset.
func Value(ctx context.Context, p Pricer, amount domain.Amount, quote string) (decimal.Decimal, error) {
	price, err := p.GetPrice(ctx, domain.QuotePair(quote))
	if err != nil {
		return decimal.Decimal{}, err
	}

	c := amount.Currency()
	whole := decimal.NewFromBigInt(amount.BaseUnits(), -c.Decimals)
	return whole.Mul(price), nil
}
