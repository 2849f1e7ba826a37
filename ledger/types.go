package ledger

import (
	"database/sql"
	"fmt"
	"math/big"

	"github.com/autarklabs/tokenrequest-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"  // deposit escrowed, waiting on governance
	RequestStatusApproved RequestStatus = "approved" // finalised, org token minted
	RequestStatusRefunded RequestStatus = "refunded" // deposit returned to requester
	RequestStatusRejected RequestStatus = "rejected" // governance voted the request down
)

// TokenRequest is one escrow entry: a deposit held by the ledger in
// exchange for a pending claim on the organization's token.
type TokenRequest struct {
	ID            uint64
	Requester     ethcommon.Address
	DepositToken  ethcommon.Address // common.NativeToken for the native coin
	DepositAmount *big.Int
	RequestAmount *big.Int
	Reference     string // caller-supplied, stored verbatim
	Status        RequestStatus
	CreatedAt     int64 // unix seconds
}

func (r *TokenRequest) Clone() *TokenRequest {
	clone := *r
	clone.DepositAmount = common.BigIntClone(r.DepositAmount)
	clone.RequestAmount = common.BigIntClone(r.RequestAmount)
	return &clone
}

func (r *TokenRequest) String() string {
	return fmt.Sprintf(
		"TokenRequest { ID: %d, Requester: %s, DepositToken: %s, DepositAmount: %v, RequestAmount: %v, Status: %s, CreatedAt: %d }",
		r.ID, r.Requester.String(), r.DepositToken.String(), r.DepositAmount, r.RequestAmount, r.Status, r.CreatedAt,
	)
}

// TokenManager is the minting authority invoked on finalise. The concrete
// implementation lives in the tokenman package; the ledger only cares that
// the call either succeeds inside the transaction or fails it atomically.
type TokenManager interface {
	Address() ethcommon.Address
	Mint(tx *sql.Tx, to ethcommon.Address, amount *big.Int) error
}
