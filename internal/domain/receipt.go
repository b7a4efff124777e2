package domain

import "github.com/ethereum/go-ethereum/common"

// Receipt confirmed funding transaction.
type Receipt struct {
	TxHash common.Hash
	Block  uint64
	// Funded ETH actually accepted by the sale.
	Funded Amount
	// Tokens SCM credited for Funded.
	Tokens Amount
}
