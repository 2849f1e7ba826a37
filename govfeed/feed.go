// Package govfeed resolves off-chain governance action keys into
// outcomes. Resolution is a two-hop lookup: action metadata first
// (status plus a content address), then the content-addressed payload
// carrying the structured request id.
package govfeed

import "context"

type ActionStatus string

const (
	ActionStatusExecuted ActionStatus = "executed"
	ActionStatusFailed   ActionStatus = "failed"
)

// ActionMeta is the first hop: what the governance layer records about
// an action.
type ActionMeta struct {
	Key         string       `json:"key"`
	Status      ActionStatus `json:"status"`
	ContentHash string       `json:"contentHash"`
}

// Payload is the second hop, fetched by content hash. RequestID is a
// pointer so a missing field is distinguishable from id 0; payloads
// without it are filtered out, never propagated.
type Payload struct {
	RequestID *uint64 `json:"requestId"`
	Title     string  `json:"title"`
}

// Action is a fully resolved governance outcome.
type Action struct {
	Key       string
	Failed    bool
	RequestID uint64
}

type Feed interface {
	// ResolveAction returns (action, true, nil) for a well-formed
	// action. Malformed payloads yield ok == false with a nil error;
	// transport failures return the error. The payload hop is only
	// taken for failed actions, the only ones that carry a request id
	// the projector acts on.
	ResolveAction(ctx context.Context, key string) (*Action, bool, error)
}
