package ledger

import (
	"github.com/autarklabs/tokenrequest-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type sqlRequest struct {
	ID            uint64
	Requester     string // hex representation of address (no 0x prefix)
	DepositToken  string
	DepositAmount string // decimal representation, amounts exceed 64 bits
	RequestAmount string
	Reference     string
	Status        string
	CreatedAt     int64
}

// encode converts fields of a TokenRequest to relevant types that can be
// stored in the sql db.
func (s *sqlRequest) encode(r *TokenRequest) *sqlRequest {
	s.ID = r.ID
	s.Requester = common.ByteSliceToPureHexStr(r.Requester.Bytes())
	s.DepositToken = common.ByteSliceToPureHexStr(r.DepositToken.Bytes())
	s.DepositAmount = r.DepositAmount.String()
	s.RequestAmount = r.RequestAmount.String()
	s.Reference = r.Reference
	s.Status = string(r.Status)
	s.CreatedAt = r.CreatedAt

	return s
}

func (s *sqlRequest) decode() (*TokenRequest, error) {
	deposit, err := common.DecStrToBigInt(s.DepositAmount)
	if err != nil {
		return nil, err
	}
	request, err := common.DecStrToBigInt(s.RequestAmount)
	if err != nil {
		return nil, err
	}

	return &TokenRequest{
		ID:            s.ID,
		Requester:     ethcommon.HexToAddress(s.Requester),
		DepositToken:  ethcommon.HexToAddress(s.DepositToken),
		DepositAmount: deposit,
		RequestAmount: request,
		Reference:     s.Reference,
		Status:        RequestStatus(s.Status),
		CreatedAt:     s.CreatedAt,
	}, nil
}

type sqlEvent struct {
	Seq           uint64
	Kind          string
	RequestID     uint64
	Requester     string
	DepositToken  string
	DepositAmount string
	RequestAmount string
	Reference     string
	CreatedAt     int64
}

func (s *sqlEvent) encode(ev *Event) *sqlEvent {
	s.Seq = ev.Seq
	s.Kind = string(ev.Kind)
	s.RequestID = ev.RequestID
	s.Requester = common.ByteSliceToPureHexStr(ev.Requester.Bytes())
	s.DepositToken = common.ByteSliceToPureHexStr(ev.DepositToken.Bytes())
	s.DepositAmount = ev.DepositAmount.String()
	s.RequestAmount = ev.RequestAmount.String()
	s.Reference = ev.Reference
	s.CreatedAt = ev.CreatedAt

	return s
}

func (s *sqlEvent) decode() (*Event, error) {
	deposit, err := common.DecStrToBigInt(s.DepositAmount)
	if err != nil {
		return nil, err
	}
	request, err := common.DecStrToBigInt(s.RequestAmount)
	if err != nil {
		return nil, err
	}

	return &Event{
		Seq:           s.Seq,
		Kind:          EventKind(s.Kind),
		RequestID:     s.RequestID,
		Requester:     ethcommon.HexToAddress(s.Requester),
		DepositToken:  ethcommon.HexToAddress(s.DepositToken),
		DepositAmount: deposit,
		RequestAmount: request,
		Reference:     s.Reference,
		CreatedAt:     s.CreatedAt,
	}, nil
}
