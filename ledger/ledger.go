package ledger

import (
	"database/sql"
	"math/big"
	"sync"

	"github.com/autarklabs/tokenrequest-go/bank"
	"github.com/autarklabs/tokenrequest-go/common"
	"github.com/autarklabs/tokenrequest-go/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

// Ledger is the authoritative escrow state machine. It is the only
// component allowed to change a request's canonical status, and every
// operation is one atomic transition: request row, escrow balance moves
// in the asset book and the event-log append commit together or not at
// all.
//
// A single mutex serializes mutations, reproducing the single-writer
// execution model of the host ledger environment.
type Ledger struct {
	cfg     *Config
	statedb *StateDB
	book    *bank.Bank
	pub     *Publisher

	tokenManager TokenManager
	vault        ethcommon.Address

	mu sync.Mutex
}

func New(statedb *StateDB, book *bank.Bank, cfg *Config) *Ledger {
	return &Ledger{
		cfg:     cfg.withDefaults(),
		statedb: statedb,
		book:    book,
		pub:     NewPublisher(),
	}
}

// Initialize wires the minting authority and the custody vault. The
// token manager must be contract-shaped; the vault may be any address
// here and is only re-guarded by SetVault. A vault persisted by an
// earlier SetVault wins over the argument, so the swap survives
// restarts.
func (l *Ledger) Initialize(tm TokenManager, vault ethcommon.Address) error {
	ok, err := l.book.IsContract(tm.Address())
	if err != nil {
		return err
	}
	if !ok {
		return ErrAddressNotContract
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokenManager = tm

	stored, found, err := l.statedb.GetKeyedValue(keyVault)
	if err != nil {
		return err
	}
	if found {
		l.vault = ethcommon.HexToAddress(stored)
		return nil
	}

	l.vault = vault
	return l.statedb.SetKeyedValue(keyVault, addrValue(vault))
}

func (l *Ledger) Publisher() *Publisher {
	return l.pub
}

func (l *Ledger) StateDB() *StateDB {
	return l.statedb
}

func (l *Ledger) Address() ethcommon.Address {
	return l.cfg.Address
}

func (l *Ledger) TokenManagerAddress() ethcommon.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokenManager == nil {
		return ethcommon.Address{}
	}
	return l.tokenManager.Address()
}

func (l *Ledger) VaultAddress() ethcommon.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vault
}

// CreateTokenRequest escrows a deposit and records a Pending request.
// attachedValue models the native coin sent along with the call; it must
// be zero for fungible-token deposits, which are pulled through the
// allowance the caller granted to the ledger address beforehand.
//
// On any guard or transfer failure the call aborts with no record and no
// balance change.
func (l *Ledger) CreateTokenRequest(
	caller ethcommon.Address,
	depositToken ethcommon.Address,
	depositAmount *big.Int,
	requestAmount *big.Int,
	reference string,
	attachedValue *big.Int,
) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accepted, err := l.statedb.IsAcceptedToken(depositToken)
	if err != nil {
		return 0, err
	}
	if !accepted {
		return 0, ErrTokenNotAccepted
	}

	if depositAmount == nil || depositAmount.Sign() <= 0 {
		return 0, ErrNoAmount
	}
	// a zero request amount would record a request that can never mint
	if requestAmount == nil || requestAmount.Sign() <= 0 {
		return 0, ErrNoAmount
	}

	if attachedValue == nil {
		attachedValue = big.NewInt(0)
	}

	if common.IsNativeToken(depositToken) {
		if attachedValue.Sign() == 0 {
			return 0, ErrNoAmount
		}
		if attachedValue.Cmp(depositAmount) != 0 {
			return 0, ErrEthValueMismatch
		}
	} else if attachedValue.Sign() != 0 {
		return 0, ErrEthValueMismatch
	}

	var (
		id uint64
		ev *Event
	)
	err = database.RunTx(l.statedb.DB(), func(tx *sql.Tx) error {
		if common.IsNativeToken(depositToken) {
			// the attached value moves into ledger custody
			if err := l.book.Transfer(tx, common.NativeToken, caller, l.cfg.Address, attachedValue); err != nil {
				return err
			}
		} else {
			// allowance-based pull; a short allowance or balance is
			// the "transfer returned false / reverted" case
			if err := l.book.TransferFrom(tx, depositToken, caller, l.cfg.Address, l.cfg.Address, depositAmount); err != nil {
				if err == bank.ErrInsufficientAllowance || err == bank.ErrInsufficientBalance {
					return ErrTokenTransferReverted
				}
				return err
			}
		}

		next, err := l.statedb.getNextRequestIDTx(tx)
		if err != nil {
			return err
		}
		id = next

		r := &TokenRequest{
			ID:            id,
			Requester:     caller,
			DepositToken:  depositToken,
			DepositAmount: new(big.Int).Set(depositAmount),
			RequestAmount: new(big.Int).Set(requestAmount),
			Reference:     reference,
			Status:        RequestStatusPending,
			CreatedAt:     l.cfg.Now().Unix(),
		}

		if err := l.statedb.InsertRequest(tx, r); err != nil {
			return err
		}
		if err := l.statedb.setNextRequestIDTx(tx, id+1); err != nil {
			return err
		}

		ev = eventFromRequest(EventRequestCreated, r)
		seq, err := l.statedb.AppendEvent(tx, ev)
		if err != nil {
			return err
		}
		ev.Seq = seq

		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.WithFields(logger.Fields{
		"id":        id,
		"requester": common.Shorten(caller.String(), 6),
		"token":     common.Shorten(depositToken.String(), 6),
		"deposit":   depositAmount,
		"request":   requestAmount,
	}).Info("token request created")

	l.pub.NotifyEvent(ev)
	return id, nil
}

// FinaliseTokenRequest approves a Pending request: the deposit moves from
// ledger custody into the vault and the requested amount of the org token
// is minted to the requester. Callable only by a holder of CapFinalise,
// in practice the governance forwarder after a vote passed.
func (l *Ledger) FinaliseTokenRequest(caller ethcommon.Address, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.statedb.HasCapability(caller, CapFinalise)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthFailed
	}

	var ev *Event
	err = database.RunTx(l.statedb.DB(), func(tx *sql.Tx) error {
		r, found, err := l.statedb.GetRequestTx(tx, id)
		if err != nil {
			return err
		}
		if !found || r.Status != RequestStatusPending {
			return ErrNoDeposit
		}

		if err := l.book.Transfer(tx, r.DepositToken, l.cfg.Address, l.vault, r.DepositAmount); err != nil {
			return err
		}
		if err := l.tokenManager.Mint(tx, r.Requester, r.RequestAmount); err != nil {
			return err
		}

		flipped, err := l.statedb.UpdateRequestStatus(tx, id, RequestStatusApproved)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrNoDeposit
		}

		r.Status = RequestStatusApproved
		ev = eventFromRequest(EventRequestFinalised, r)
		seq, err := l.statedb.AppendEvent(tx, ev)
		if err != nil {
			return err
		}
		ev.Seq = seq

		return nil
	})
	if err != nil {
		return err
	}

	logger.WithField("id", id).Info("token request finalised")

	l.pub.NotifyEvent(ev)
	return nil
}

// RefundTokenRequest returns the escrowed deposit to the requester.
// Only the requester of a still-Pending request may call; anything else,
// including a second refund, fails NOT_OWNER.
func (l *Ledger) RefundTokenRequest(caller ethcommon.Address, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ev *Event
	err := database.RunTx(l.statedb.DB(), func(tx *sql.Tx) error {
		r, found, err := l.statedb.GetRequestTx(tx, id)
		if err != nil {
			return err
		}
		if !found || r.Status != RequestStatusPending || r.Requester != caller {
			return ErrNotOwner
		}

		if err := l.book.Transfer(tx, r.DepositToken, l.cfg.Address, r.Requester, r.DepositAmount); err != nil {
			return err
		}

		flipped, err := l.statedb.UpdateRequestStatus(tx, id, RequestStatusRefunded)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrNotOwner
		}

		r.Status = RequestStatusRefunded
		ev = eventFromRequest(EventRequestRefunded, r)
		seq, err := l.statedb.AppendEvent(tx, ev)
		if err != nil {
			return err
		}
		ev.Seq = seq

		return nil
	})
	if err != nil {
		return err
	}

	logger.WithField("id", id).Info("token request refunded")

	l.pub.NotifyEvent(ev)
	return nil
}

// SetTokenManager swaps the minting authority. The new address must be
// contract-shaped. The swap is runtime-only: unlike the vault, the
// authority is an object with behavior and is rebuilt from
// configuration at boot.
func (l *Ledger) SetTokenManager(caller ethcommon.Address, tm TokenManager) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.statedb.HasCapability(caller, CapSetTokenManager)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthFailed
	}

	isContract, err := l.book.IsContract(tm.Address())
	if err != nil {
		return err
	}
	if !isContract {
		return ErrAddressNotContract
	}

	l.tokenManager = tm
	return nil
}

// SetVault swaps the custody vault. The new address must be
// contract-shaped.
func (l *Ledger) SetVault(caller ethcommon.Address, vault ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.statedb.HasCapability(caller, CapSetVault)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthFailed
	}

	isContract, err := l.book.IsContract(vault)
	if err != nil {
		return err
	}
	if !isContract {
		return ErrAddressNotContract
	}

	if err := l.statedb.SetKeyedValue(keyVault, addrValue(vault)); err != nil {
		return err
	}
	l.vault = vault
	return nil
}

// AddToken appends an address to the deposit allow-list.
func (l *Ledger) AddToken(caller ethcommon.Address, token ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.statedb.HasCapability(caller, CapManageTokens)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthFailed
	}

	present, err := l.statedb.IsAcceptedToken(token)
	if err != nil {
		return err
	}
	if present {
		return ErrTokenAlreadyAccepted
	}

	n, err := l.statedb.CountAcceptedTokens()
	if err != nil {
		return err
	}
	if n >= l.cfg.MaxAcceptedTokens {
		return ErrTooManyAcceptedTokens
	}

	return l.statedb.InsertAcceptedToken(token)
}

// RemoveToken drops an address from the deposit allow-list.
func (l *Ledger) RemoveToken(caller ethcommon.Address, token ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.statedb.HasCapability(caller, CapManageTokens)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthFailed
	}

	present, err := l.statedb.IsAcceptedToken(token)
	if err != nil {
		return err
	}
	if !present {
		return ErrTokenNotAccepted
	}

	return l.statedb.DeleteAcceptedToken(token)
}

// ---- reads ----

func (l *Ledger) GetTokenRequest(id uint64) (*TokenRequest, bool, error) {
	return l.statedb.GetRequest(id)
}

func (l *Ledger) NextRequestID() (uint64, error) {
	return l.statedb.GetNextRequestID()
}

func (l *Ledger) AcceptedDepositTokens() ([]ethcommon.Address, error) {
	return l.statedb.GetAcceptedTokens()
}

// EscrowBalance is the ledger's custody balance for one asset. For every
// asset it equals the sum of depositAmount over Pending requests.
func (l *Ledger) EscrowBalance(token ethcommon.Address) (*big.Int, error) {
	return l.book.BalanceOf(token, l.cfg.Address)
}

func addrValue(addr ethcommon.Address) string {
	return common.ByteSliceToPureHexStr(addr.Bytes())
}
