package ledger

import (
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

const DefaultMaxAcceptedTokens = 100

type Config struct {
	// Address is the ledger's own account in the asset book; escrowed
	// deposits sit on this address until finalise or refund.
	Address ethcommon.Address

	// MaxAcceptedTokens bounds the deposit allow-list.
	MaxAcceptedTokens int

	// Now supplies request timestamps. Defaults to the wall clock;
	// tests pin it.
	Now func() time.Time
}

func (cfg *Config) withDefaults() *Config {
	out := *cfg
	if out.MaxAcceptedTokens == 0 {
		out.MaxAcceptedTokens = DefaultMaxAcceptedTokens
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return &out
}
