package projector

import (
	"fmt"
	"math/big"

	"github.com/autarklabs/tokenrequest-go/ledger"
	"github.com/autarklabs/tokenrequest-go/tokenmeta"
)

// Apply is the fold step: (snapshot, event) -> snapshot. It is a pure
// function of its inputs, called sequentially by the single consumer
// loop, so replaying the same log from an empty snapshot always yields
// the same result.
//
// On a consistency error the previous snapshot is returned unchanged;
// the fold continues with the next event.
func Apply(s Snapshot, ev Event) (Snapshot, error) {
	switch e := ev.(type) {
	case SyncStarted:
		next := s.Clone()
		next.Syncing = true
		return next, nil

	case SyncDone:
		next := s.Clone()
		next.Syncing = false
		return next, nil

	case AccountChanged:
		next := s.Clone()
		next.Account = e.Account
		return next, nil

	case AcceptedTokensLoaded:
		next := s.Clone()
		next.AcceptedTokens = append([]tokenmeta.Metadata(nil), e.Tokens...)
		next.Ready = true
		return next, nil

	case OrgTokenResolved:
		next := s.Clone()
		next.Token = e.Meta
		return next, nil

	case LedgerEvent:
		return applyLedgerEvent(s, e.Ev)

	case TokenMetadataResolved:
		next := s.Clone()
		for i := range next.Requests {
			if next.Requests[i].DepositToken == e.Meta.Address {
				next.Requests[i].DepositName = e.Meta.Name
				next.Requests[i].DepositSymbol = e.Meta.Symbol
				next.Requests[i].DepositDecimals = e.Meta.Decimals
			}
		}
		for i := range next.AcceptedTokens {
			if next.AcceptedTokens[i].Address == e.Meta.Address {
				next.AcceptedTokens[i] = e.Meta
			}
		}
		return next, nil

	case RequestRejected:
		idx := s.findRequest(e.RequestID)
		if idx == -1 {
			return s, fmt.Errorf("%w: id=%d (governance action %s)", ErrUnknownRequest, e.RequestID, e.ActionKey)
		}
		// terminal display statuses stay put; governance outcomes only
		// reject entries still showing Pending
		if s.Requests[idx].Status != DisplayPending {
			return s, nil
		}
		next := s.Clone()
		next.Requests[idx].Status = DisplayRejected
		return next, nil

	case GovernanceOutcome:
		// resolved off the fold path; the synthetic RequestRejected
		// events carry the effect
		return s, nil

	default:
		return s, nil
	}
}

func applyLedgerEvent(s Snapshot, ev *ledger.Event) (Snapshot, error) {
	switch ev.Kind {
	case ledger.EventRequestCreated:
		if s.findRequest(ev.RequestID) != -1 {
			return s, fmt.Errorf("%w: id=%d", ErrDuplicateRequest, ev.RequestID)
		}
		next := s.Clone()
		view := RequestView{
			ID:            ev.RequestID,
			Requester:     ev.Requester,
			DepositToken:  ev.DepositToken,
			DepositAmount: new(big.Int).Set(ev.DepositAmount),
			RequestAmount: new(big.Int).Set(ev.RequestAmount),
			Reference:     ev.Reference,
			Status:        DisplayPending,
			CreatedAt:     ev.CreatedAt,
		}
		// deposit metadata comes straight from the allow-list when the
		// token is still on it; otherwise an async lookup fills it later
		for _, meta := range s.AcceptedTokens {
			if meta.Address == ev.DepositToken {
				view.DepositName = meta.Name
				view.DepositSymbol = meta.Symbol
				view.DepositDecimals = meta.Decimals
				break
			}
		}
		next.Requests = append(next.Requests, view)
		return next, nil

	case ledger.EventRequestRefunded:
		return updateStatus(s, ev.RequestID, DisplayRefunded)

	case ledger.EventRequestFinalised:
		return updateStatus(s, ev.RequestID, DisplayApproved)

	default:
		return s, nil
	}
}

func updateStatus(s Snapshot, id uint64, next DisplayStatus) (Snapshot, error) {
	idx := s.findRequest(id)
	if idx == -1 {
		return s, fmt.Errorf("%w: id=%d", ErrUnknownRequest, id)
	}
	out := s.Clone()
	out.Requests[idx].Status = next
	return out, nil
}
