// Package tokenmeta resolves display metadata (decimals, name, symbol)
// for deposit tokens. Lookups are best-effort: every implementation falls
// back to the static per-network table rather than returning an error to
// the projector.
package tokenmeta

import (
	"context"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type Metadata struct {
	Address  ethcommon.Address `json:"address"`
	Name     string            `json:"name"`
	Symbol   string            `json:"symbol"`
	Decimals uint8             `json:"decimals"`
}

type Source interface {
	// TokenMetadata never fails the caller: unresolvable fields come
	// back as fallback values. The error reports lookup trouble for
	// logging only.
	TokenMetadata(ctx context.Context, token ethcommon.Address) (Metadata, error)
}
