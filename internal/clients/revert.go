package clients

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/icofund/internal/domain"
)

var revertMarkers = []string{
	"execution reverted",
	"VM Exception while processing transaction: reverted with reason string",
	"VM Exception while processing transaction: revert",
}

// revertReason extracts the Error(string) reason of a reverted call.
// ok is false when err is not a revert at all.
func revertReason(err error) (reason string, ok bool) {
	if err == nil {
		return "", false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if raw, isString := dataErr.ErrorData().(string); isString {
			if data, decErr := hexutil.Decode(raw); decErr == nil {
				if unpacked, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return unpacked, true
				}
			}
		}
	}

	msg := err.Error()
	for _, marker := range revertMarkers {
		i := strings.Index(msg, marker)
		if i < 0 {
			continue
		}
		rest := strings.TrimSpace(msg[i+len(marker):])
		rest = strings.TrimPrefix(rest, ":")
		return strings.Trim(strings.TrimSpace(rest), "'\""), true
	}

	return "", false
}

// isTransient reports whether a failed read is worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, domain.ErrReverted) {
		return false
	}
	if _, ok := revertReason(err); ok {
		return false
	}

	// a JSON-RPC error object is the node's answer, not a transport hiccup
	var rpcErr rpc.Error
	return !errors.As(err, &rpcErr)
}
