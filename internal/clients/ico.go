package clients

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vadiminshakov/icofund/internal/domain"
)

// ICO token sale contract.
type ICO struct {
	*Contract
}

// NewICO wraps a bound sale contract.
func NewICO(c *Contract) *ICO {
	return &ICO{Contract: c}
}

// TokenAddresses SCM and WETH addresses the sale was deployed with.
func (i *ICO) TokenAddresses(ctx context.Context) (scm, weth common.Address, err error) {
	if scm, err = i.callAddress(ctx, "scm"); err != nil {
		return common.Address{}, common.Address{}, err
	}
	if weth, err = i.callAddress(ctx, "weth"); err != nil {
		return common.Address{}, common.Address{}, err
	}
	return scm, weth, nil
}

// Claim transfers the signer's SCM allocation once the sale is finished.
func (i *ICO) Claim(ctx context.Context, signer domain.Signer) (*types.Receipt, error) {
	return i.Transact(ctx, signer, "claim")
}
