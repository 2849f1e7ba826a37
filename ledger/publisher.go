package ledger

import (
	"sync"
)

// Publisher is a concurrent-safe fan-out of committed ledger events to
// observer channels. Register observers via RegisterEventObserver before
// Notify. Events reach every observer strictly in commit order; a slow
// observer overflows into a per-observer backlog drained by a single
// goroutine instead of blocking the ledger call.
type Publisher struct {
	observers []*observerQueue
	mu        sync.Mutex
}

// observerQueue holds the overflow for one observer. While draining is
// set, new events go into the backlog so the drainer stays the only
// sender and delivery order is preserved.
type observerQueue struct {
	ch       chan *Event
	backlog  []*Event
	draining bool
}

func NewPublisher() *Publisher {
	return &Publisher{
		observers: make([]*observerQueue, 0),
	}
}

// RegisterEventObserver registers a new observer for ledger events.
func (p *Publisher) RegisterEventObserver(observer chan *Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.observers = append(p.observers, &observerQueue{ch: observer})
}

func (p *Publisher) NotifyEvent(ev *Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, q := range p.observers {
		if q.draining {
			q.backlog = append(q.backlog, ev)
			continue
		}

		select {
		case q.ch <- ev:
		default:
			// channel full: queue and hand delivery to a drainer
			q.backlog = append(q.backlog, ev)
			q.draining = true
			go p.drain(q)
		}
	}
}

// drain delivers the backlog in order, then hands delivery back to the
// direct path.
func (p *Publisher) drain(q *observerQueue) {
	for {
		p.mu.Lock()
		if len(q.backlog) == 0 {
			q.draining = false
			p.mu.Unlock()
			return
		}
		ev := q.backlog[0]
		q.backlog = q.backlog[1:]
		p.mu.Unlock()

		q.ch <- ev
	}
}
