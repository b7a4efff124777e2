package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vadiminshakov/icofund/internal/domain"
)

func TestRevertReason(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason string
		ok     bool
	}{
		{"geth message", errors.New("execution reverted: not enough WETH"), "not enough WETH", true},
		{"bare revert", errors.New("execution reverted"), "", true},
		{"ganache revert", errors.New("VM Exception while processing transaction: revert not allowed to spend WETH"), "not allowed to spend WETH", true},
		{"hardhat reason", errors.New("VM Exception while processing transaction: reverted with reason string 'no SCM tokens to claim'"), "no SCM tokens to claim", true},
		{"not a revert", errors.New("connection refused"), "", false},
		{"nil", nil, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, ok := revertReason(tc.err)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(errors.New("connection reset by peer")))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(errors.New("execution reverted: ICO is closed")))
	assert.False(t, isTransient(&domain.RevertError{Method: "fund"}))
	assert.False(t, isTransient(nodeError{msg: "missing trie node"}))
}
