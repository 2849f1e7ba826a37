package projector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/autarklabs/tokenrequest-go/govfeed"
	"github.com/autarklabs/tokenrequest-go/ledger"
	"github.com/autarklabs/tokenrequest-go/tokenmeta"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

// LedgerSource is the read side of the ledger the projector replays
// from. *ledger.StateDB satisfies it.
type LedgerSource interface {
	GetAcceptedTokens() ([]ethcommon.Address, error)
	GetEventsFrom(from uint64) ([]*ledger.Event, error)
}

// Projector maintains the read-model. A single goroutine owns the
// snapshot and folds one ordered event stream; metadata and governance
// lookups run off the fold path and merge back as synthetic events, so
// the snapshot never sees a concurrent writer.
//
// The projector is never the source of truth: on a consistency error it
// reports loudly, keeps the previous snapshot and folds on.
type Projector struct {
	cfg    *Config
	source LedgerSource
	meta   tokenmeta.Source
	feed   govfeed.Feed

	inputs  chan Event
	lastSeq uint64

	// tokens whose metadata has been resolved or is in flight;
	// loop-owned, no lock
	resolved map[ethcommon.Address]bool

	mu       sync.RWMutex
	snapshot Snapshot

	consistencyErrs atomic.Uint64
	wg              sync.WaitGroup
}

func New(source LedgerSource, meta tokenmeta.Source, feed govfeed.Feed, cfg *Config) *Projector {
	c := cfg.withDefaults()
	return &Projector{
		cfg:      c,
		source:   source,
		meta:     meta,
		feed:     feed,
		inputs:   make(chan Event, c.ChannelSize),
		resolved: make(map[ethcommon.Address]bool),
	}
}

// Inputs receives connection-state changes, governance outcomes and
// synthetic events. Never closed by callers.
func (p *Projector) Inputs() chan<- Event {
	return p.inputs
}

// Snapshot returns a deep copy of the current read-model.
func (p *Projector) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot.Clone()
}

// DisplayedRequests returns the request views with the read-time expiry
// derivation applied.
func (p *Projector) DisplayedRequests() []RequestView {
	snap := p.Snapshot()
	now := p.cfg.Now()
	for i := range snap.Requests {
		snap.Requests[i].Status = snap.Requests[i].DisplayedStatus(now, p.cfg.TimeToExpiry)
	}
	return snap.Requests
}

func (p *Projector) TimeToExpiry() int64 {
	return int64(p.cfg.TimeToExpiry.Seconds())
}

// ConsistencyErrors counts events that referred to unknown request ids.
// Anything above zero means the read-model fell out of sync with the
// ledger.
func (p *Projector) ConsistencyErrors() uint64 {
	return p.consistencyErrs.Load()
}

// Start replays the event log from empty and then live-tails the
// publisher subscription. It blocks until ctx is cancelled.
func (p *Projector) Start(ctx context.Context, pub *ledger.Publisher) error {
	logger.Info("starting token request projector")
	defer logger.Info("stopping token request projector")

	obs := make(chan *ledger.Event, p.cfg.ChannelSize)
	if pub != nil {
		pub.RegisterEventObserver(obs)
	}

	p.fold(SyncStarted{})

	if err := p.loadInitialState(ctx); err != nil {
		return err
	}

	// cold-start replay, strictly in emission order
	events, err := p.source.GetEventsFrom(1)
	if err != nil {
		return err
	}
	for _, ev := range events {
		p.handleLedgerEvent(ctx, ev)
	}

	p.fold(SyncDone{})

	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			return ctx.Err()
		case ev := <-obs:
			// the publisher may overlap with the replayed range
			if ev.Seq > p.lastSeq {
				p.handleLedgerEvent(ctx, ev)
			}
		case ev := <-p.inputs:
			p.handle(ctx, ev)
		}
	}
}

func (p *Projector) loadInitialState(ctx context.Context) error {
	tokens, err := p.source.GetAcceptedTokens()
	if err != nil {
		logger.Errorf("failed to load accepted deposit tokens: err=%v", err)
		return err
	}

	metas := make([]tokenmeta.Metadata, 0, len(tokens))
	for _, token := range tokens {
		metas = append(metas, p.lookupMetadata(ctx, token))
		p.resolved[token] = true
	}
	p.fold(AcceptedTokensLoaded{Tokens: metas})

	p.fold(OrgTokenResolved{Meta: p.lookupMetadata(ctx, p.cfg.OrgToken)})

	return nil
}

func (p *Projector) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case GovernanceOutcome:
		for _, key := range e.Keys {
			p.wg.Add(1)
			go p.resolveAction(ctx, key)
		}
	default:
		p.fold(ev)
	}
}

func (p *Projector) handleLedgerEvent(ctx context.Context, ev *ledger.Event) {
	p.fold(LedgerEvent{Ev: ev})
	p.lastSeq = ev.Seq

	if ev.Kind == ledger.EventRequestCreated && !p.resolved[ev.DepositToken] {
		p.resolved[ev.DepositToken] = true
		token := ev.DepositToken
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			meta := p.lookupMetadata(ctx, token)
			p.post(ctx, TokenMetadataResolved{Meta: meta})
		}()
	}
}

// resolveAction runs the two-hop governance lookup off the fold path.
// Failures are logged and dropped; only actions the governance layer
// marked failed feed a rejection back into the fold.
func (p *Projector) resolveAction(ctx context.Context, key string) {
	defer p.wg.Done()

	action, ok, err := p.feed.ResolveAction(ctx, key)
	if err != nil {
		logger.WithField("key", key).Warnf("governance action lookup failed: err=%v", err)
		return
	}
	if !ok || !action.Failed {
		return
	}

	p.post(ctx, RequestRejected{
		RequestID: action.RequestID,
		ActionKey: key,
	})
}

// post feeds a synthetic event back into the ordered input stream.
func (p *Projector) post(ctx context.Context, ev Event) {
	select {
	case p.inputs <- ev:
	case <-ctx.Done():
	}
}

// lookupMetadata never fails: on lookup trouble the source already
// substituted the static fallback.
func (p *Projector) lookupMetadata(ctx context.Context, token ethcommon.Address) tokenmeta.Metadata {
	meta, err := p.meta.TokenMetadata(ctx, token)
	if err != nil {
		logger.WithField("token", token.Hex()).Debugf("token metadata lookup fell back: err=%v", err)
	}
	return meta
}

func (p *Projector) fold(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next, err := Apply(p.snapshot, ev)
	if err != nil {
		p.consistencyErrs.Add(1)
		logger.Errorf("read-model consistency violation: err=%v", err)
	}
	p.snapshot = next
}
