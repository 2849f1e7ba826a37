package tokenmeta

import (
	"context"
	"errors"
	"sync"

	"github.com/autarklabs/tokenrequest-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var errUnknownToken = errors.New("token metadata not registered")

// SimSource serves metadata from an in-memory registry. Used by tests
// and by server deployments with no eth RPC configured.
type SimSource struct {
	mu      sync.Mutex
	network string
	table   map[ethcommon.Address]Metadata
}

func NewSimSource(network string) *SimSource {
	return &SimSource{
		network: network,
		table:   make(map[ethcommon.Address]Metadata),
	}
}

func (s *SimSource) Register(meta Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table[meta.Address] = meta
}

func (s *SimSource) TokenMetadata(_ context.Context, token ethcommon.Address) (Metadata, error) {
	if common.IsNativeToken(token) {
		return NativeMetadata(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if meta, ok := s.table[token]; ok {
		return meta, nil
	}
	return Fallback(s.network, token), errUnknownToken
}
