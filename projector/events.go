package projector

import (
	"github.com/autarklabs/tokenrequest-go/ledger"
	"github.com/autarklabs/tokenrequest-go/tokenmeta"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Event is one fold input. Ledger events arrive through the event-log
// replay and the live publisher subscription; everything else is either
// a connection-state change or a synthetic event posted by an async
// lookup, merged back into the same ordered stream.
type Event interface {
	foldEvent()
}

// SyncStarted / SyncDone flip the snapshot's syncing flag around the
// cold-start replay.
type SyncStarted struct{}

type SyncDone struct{}

// AccountChanged sets the active account the read-model is scoped to.
type AccountChanged struct {
	Account ethcommon.Address
}

// LedgerEvent wraps one committed ledger event.
type LedgerEvent struct {
	Ev *ledger.Event
}

// AcceptedTokensLoaded carries the resolved allow-list; loading it makes
// the snapshot ready.
type AcceptedTokensLoaded struct {
	Tokens []tokenmeta.Metadata
}

// OrgTokenResolved carries the metadata of the organization's own token.
type OrgTokenResolved struct {
	Meta tokenmeta.Metadata
}

// TokenMetadataResolved is synthetic: an async metadata lookup finished
// and its result folds into every matching entry.
type TokenMetadataResolved struct {
	Meta tokenmeta.Metadata
}

// GovernanceOutcome carries off-chain action keys to resolve. The run
// loop resolves them asynchronously; the reducer ignores this event
// itself.
type GovernanceOutcome struct {
	Keys []string
}

// RequestRejected is synthetic: a resolved governance action marked
// failed names this request. Display-only, the ledger keeps Pending.
type RequestRejected struct {
	RequestID uint64
	ActionKey string
}

func (SyncStarted) foldEvent()           {}
func (SyncDone) foldEvent()              {}
func (AccountChanged) foldEvent()        {}
func (LedgerEvent) foldEvent()           {}
func (AcceptedTokensLoaded) foldEvent()  {}
func (OrgTokenResolved) foldEvent()      {}
func (TokenMetadataResolved) foldEvent() {}
func (GovernanceOutcome) foldEvent()     {}
func (RequestRejected) foldEvent()       {}
