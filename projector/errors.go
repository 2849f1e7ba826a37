package projector

import "errors"

var (
	// ErrUnknownRequest means an event referred to a request id the fold
	// has never seen: the read-model has fallen out of sync with the
	// ledger. Non-fatal, but reported prominently.
	ErrUnknownRequest = errors.New("event refers to a token request that shouldn't exist")

	// ErrDuplicateRequest means a creation event re-used an id already
	// in the snapshot.
	ErrDuplicateRequest = errors.New("token request id already present in snapshot")
)
