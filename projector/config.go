package projector

import (
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	DefaultChannelSize  = 64
	DefaultTimeToExpiry = 24 * time.Hour
)

type Config struct {
	// ChannelSize buffers the fold input stream.
	ChannelSize int

	// Network selects the static metadata fallback table.
	Network string

	// OrgToken is the token minted on finalise; its metadata is
	// resolved once at start.
	OrgToken ethcommon.Address

	// TimeToExpiry drives the read-time Expired display status.
	TimeToExpiry time.Duration

	// Now supplies read-time timestamps. Defaults to the wall clock.
	Now func() time.Time
}

func (cfg *Config) withDefaults() *Config {
	out := *cfg
	if out.ChannelSize == 0 {
		out.ChannelSize = DefaultChannelSize
	}
	if out.TimeToExpiry == 0 {
		out.TimeToExpiry = DefaultTimeToExpiry
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return &out
}
