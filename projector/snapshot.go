package projector

import (
	"math/big"
	"time"

	"github.com/autarklabs/tokenrequest-go/tokenmeta"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type DisplayStatus string

const (
	DisplayPending  DisplayStatus = "pending"
	DisplayApproved DisplayStatus = "approved"
	DisplayRefunded DisplayStatus = "refunded"
	// DisplayRejected is derived: the governance layer voted the request
	// down, which the projector discovers off-chain. The ledger record
	// underneath stays Pending.
	DisplayRejected DisplayStatus = "rejected"
	// DisplayExpired is a read-time status, never stored or folded.
	DisplayExpired DisplayStatus = "expired"
)

// RequestView mirrors one ledger request plus display metadata for the
// deposited asset.
type RequestView struct {
	ID              uint64            `json:"requestId"`
	Requester       ethcommon.Address `json:"requesterAddress"`
	DepositToken    ethcommon.Address `json:"depositToken"`
	DepositAmount   *big.Int          `json:"depositAmount"`
	RequestAmount   *big.Int          `json:"requestAmount"`
	Reference       string            `json:"reference"`
	Status          DisplayStatus     `json:"status"`
	CreatedAt       int64             `json:"date"`
	DepositName     string            `json:"depositName"`
	DepositSymbol   string            `json:"depositSymbol"`
	DepositDecimals uint8             `json:"depositDecimals"`
}

// DisplayedStatus derives the read-time status: a Pending entry past
// createdAt + ttl shows as Expired without ever mutating the fold or the
// ledger.
func (v *RequestView) DisplayedStatus(now time.Time, ttl time.Duration) DisplayStatus {
	if v.Status == DisplayPending && !now.Before(time.Unix(v.CreatedAt, 0).Add(ttl)) {
		return DisplayExpired
	}
	return v.Status
}

func (v *RequestView) clone() RequestView {
	out := *v
	out.DepositAmount = new(big.Int).Set(v.DepositAmount)
	out.RequestAmount = new(big.Int).Set(v.RequestAmount)
	return out
}

// Snapshot is the read-model: created empty, mutated exclusively by the
// reducer one event at a time, never rolled back.
type Snapshot struct {
	Requests       []RequestView        `json:"requests"`
	AcceptedTokens []tokenmeta.Metadata `json:"acceptedTokens"`
	Token          tokenmeta.Metadata   `json:"token"`
	Account        ethcommon.Address    `json:"account"`
	Syncing        bool                 `json:"isSyncing"`
	Ready          bool                 `json:"ready"`
}

func (s *Snapshot) Clone() Snapshot {
	out := *s
	if s.Requests != nil {
		out.Requests = make([]RequestView, len(s.Requests))
		for i := range s.Requests {
			out.Requests[i] = s.Requests[i].clone()
		}
	}
	if s.AcceptedTokens != nil {
		out.AcceptedTokens = append([]tokenmeta.Metadata(nil), s.AcceptedTokens...)
	}
	return out
}

func (s *Snapshot) findRequest(id uint64) int {
	for i := range s.Requests {
		if s.Requests[i].ID == id {
			return i
		}
	}
	return -1
}
