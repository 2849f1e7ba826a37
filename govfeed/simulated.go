package govfeed

import (
	"context"
	"errors"
	"sync"
)

var errActionUnknown = errors.New("governance action not found")

// SimFeed is an in-memory feed for tests: actions and payloads are
// registered up front, lookups can be failure-injected per key.
type SimFeed struct {
	mu       sync.Mutex
	actions  map[string]ActionMeta
	payloads map[string]Payload
	broken   map[string]bool
}

func NewSimFeed() *SimFeed {
	return &SimFeed{
		actions:  make(map[string]ActionMeta),
		payloads: make(map[string]Payload),
		broken:   make(map[string]bool),
	}
}

func (f *SimFeed) PutAction(meta ActionMeta) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions[meta.Key] = meta
}

func (f *SimFeed) PutPayload(hash string, payload Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[hash] = payload
}

// Break makes lookups for the given key fail with a transport error.
func (f *SimFeed) Break(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken[key] = true
}

func (f *SimFeed) ResolveAction(_ context.Context, key string) (*Action, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.broken[key] {
		return nil, false, errActionUnknown
	}

	meta, ok := f.actions[key]
	if !ok {
		return nil, false, errActionUnknown
	}

	if meta.Status != ActionStatusFailed {
		return &Action{Key: key}, true, nil
	}

	payload, ok := f.payloads[meta.ContentHash]
	if !ok || payload.RequestID == nil {
		return nil, false, nil
	}

	return &Action{
		Key:       key,
		Failed:    true,
		RequestID: *payload.RequestID,
	}, true, nil
}
