package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// A burst larger than the observer's buffer must still arrive in commit
// order: a lost or reordered create would poison every later fold for
// that request id.
func TestPublisherOrderUnderBackpressure(t *testing.T) {
	pub := NewPublisher()
	observer := make(chan *Event, 1)
	pub.RegisterEventObserver(observer)

	const n = 200
	for seq := uint64(1); seq <= n; seq++ {
		pub.NotifyEvent(&Event{Seq: seq, Kind: EventRequestCreated})
	}

	for seq := uint64(1); seq <= n; seq++ {
		select {
		case ev := <-observer:
			assert.Equal(t, seq, ev.Seq)
		case <-time.After(time.Second):
			t.Fatalf("no event %d within a second", seq)
		}
	}
}

// A second observer keeps its own pace without affecting the first.
func TestPublisherIndependentObservers(t *testing.T) {
	pub := NewPublisher()
	fast := make(chan *Event, 64)
	slow := make(chan *Event, 1)
	pub.RegisterEventObserver(fast)
	pub.RegisterEventObserver(slow)

	const n = 32
	for seq := uint64(1); seq <= n; seq++ {
		pub.NotifyEvent(&Event{Seq: seq, Kind: EventRequestCreated})
	}

	for seq := uint64(1); seq <= n; seq++ {
		assert.Equal(t, seq, (<-fast).Seq)
	}
	for seq := uint64(1); seq <= n; seq++ {
		select {
		case ev := <-slow:
			assert.Equal(t, seq, ev.Seq)
		case <-time.After(time.Second):
			t.Fatalf("no event %d within a second", seq)
		}
	}
}
