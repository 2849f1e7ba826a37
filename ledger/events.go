package ledger

import (
	"fmt"
	"math/big"

	"github.com/autarklabs/tokenrequest-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type EventKind string

const (
	EventRequestCreated   EventKind = "request_created"
	EventRequestRefunded  EventKind = "request_refunded"
	EventRequestFinalised EventKind = "request_finalised"
)

// Event is one row of the append-only log. Seq is assigned by the log on
// insert and is strictly increasing; folding events in Seq order from an
// empty snapshot reconstructs the read-model.
//
// Every kind carries the full request fields so a consumer can rebuild
// the record without a ledger read.
type Event struct {
	Seq           uint64
	Kind          EventKind
	RequestID     uint64
	Requester     ethcommon.Address
	DepositToken  ethcommon.Address
	DepositAmount *big.Int
	RequestAmount *big.Int
	Reference     string
	CreatedAt     int64
}

func (ev *Event) Clone() *Event {
	clone := *ev
	clone.DepositAmount = common.BigIntClone(ev.DepositAmount)
	clone.RequestAmount = common.BigIntClone(ev.RequestAmount)
	return &clone
}

func (ev *Event) String() string {
	return fmt.Sprintf("Event { Seq: %d, Kind: %s, RequestID: %d, Requester: %s, DepositToken: %s, DepositAmount: %v, RequestAmount: %v }",
		ev.Seq, ev.Kind, ev.RequestID, ev.Requester.String(), ev.DepositToken.String(), ev.DepositAmount, ev.RequestAmount)
}

func eventFromRequest(kind EventKind, r *TokenRequest) *Event {
	return &Event{
		Kind:          kind,
		RequestID:     r.ID,
		Requester:     r.Requester,
		DepositToken:  r.DepositToken,
		DepositAmount: common.BigIntClone(r.DepositAmount),
		RequestAmount: common.BigIntClone(r.RequestAmount),
		Reference:     r.Reference,
		CreatedAt:     r.CreatedAt,
	}
}
