package bank

import (
	"database/sql"
	"math/big"

	"github.com/autarklabs/tokenrequest-go/common"
	"github.com/autarklabs/tokenrequest-go/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Bank is the asset book the ledger acts on. It keeps balances and
// allowances per token and a registry of contract-shaped addresses,
// standing in for the value layer of the host chain.
//
// Mutating calls take a *sql.Tx so that a whole ledger operation,
// request state plus every balance move, commits or rolls back as one.
type Bank struct {
	stmtCache *database.StmtCache
}

func New(db *sql.DB) (*Bank, error) {
	if _, err := db.Exec(balanceTable + allowanceTable + contractTable); err != nil {
		return nil, err
	}

	return &Bank{
		stmtCache: database.NewStmtCache(db),
	}, nil
}

func (b *Bank) Close() {
	b.stmtCache.Clear()
}

func (b *Bank) DB() *sql.DB {
	return b.stmtCache.DB()
}

// Mint credits amount of token to the holder out of thin air.
func (b *Bank) Mint(tx *sql.Tx, token, to ethcommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountInvalid
	}
	return b.credit(tx, token, to, amount)
}

// Transfer moves amount of token between two holders. It fails with
// ErrInsufficientBalance when the sender is short.
func (b *Bank) Transfer(tx *sql.Tx, token, from, to ethcommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountInvalid
	}
	if err := b.debit(tx, token, from, amount); err != nil {
		return err
	}
	return b.credit(tx, token, to, amount)
}

// TransferFrom is the allowance-based pull: spender moves amount of the
// owner's token to the receiver, consuming the allowance. This is the
// path a fungible-token deposit takes into escrow.
func (b *Bank) TransferFrom(tx *sql.Tx, token, owner, spender, to ethcommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountInvalid
	}

	allowance, err := b.allowanceTx(tx, token, owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}

	if err := b.setAllowance(tx, token, owner, spender, new(big.Int).Sub(allowance, amount)); err != nil {
		return err
	}

	return b.Transfer(tx, token, owner, to, amount)
}

func (b *Bank) Approve(tx *sql.Tx, token, owner, spender ethcommon.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrAmountInvalid
	}
	return b.setAllowance(tx, token, owner, spender, amount)
}

func (b *Bank) BalanceOf(token, holder ethcommon.Address) (*big.Int, error) {
	query := `SELECT amount FROM balance WHERE token = ? AND holder = ?`
	stmt, err := b.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	var amount string
	if err := stmt.QueryRow(addrHex(token), addrHex(holder)).Scan(&amount); err != nil {
		if err == sql.ErrNoRows {
			return big.NewInt(0), nil
		}
		return nil, err
	}

	return common.DecStrToBigInt(amount)
}

func (b *Bank) Allowance(token, owner, spender ethcommon.Address) (*big.Int, error) {
	query := `SELECT amount FROM allowance WHERE token = ? AND owner = ? AND spender = ?`
	stmt, err := b.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	var amount string
	if err := stmt.QueryRow(addrHex(token), addrHex(owner), addrHex(spender)).Scan(&amount); err != nil {
		if err == sql.ErrNoRows {
			return big.NewInt(0), nil
		}
		return nil, err
	}

	return common.DecStrToBigInt(amount)
}

// RegisterContract marks addr as carrying code. SetTokenManager/SetVault
// on the ledger only accept registered addresses.
func (b *Bank) RegisterContract(addr ethcommon.Address) error {
	query := `INSERT OR IGNORE INTO contract (addr) VALUES (?)`
	stmt, err := b.stmtCache.Prepare(query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(addrHex(addr))
	return err
}

func (b *Bank) IsContract(addr ethcommon.Address) (bool, error) {
	query := `SELECT 1 FROM contract WHERE addr = ?`
	stmt, err := b.stmtCache.Prepare(query)
	if err != nil {
		return false, err
	}

	var one int
	if err := stmt.QueryRow(addrHex(addr)).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// credit and debit do their arithmetic in Go. Amounts are decimal text
// in the db, so sqlite cannot add or compare them.
func (b *Bank) credit(tx *sql.Tx, token, holder ethcommon.Address, amount *big.Int) error {
	balance, err := b.balanceTx(tx, token, holder)
	if err != nil {
		return err
	}
	return b.setBalance(tx, token, holder, new(big.Int).Add(balance, amount))
}

func (b *Bank) debit(tx *sql.Tx, token, holder ethcommon.Address, amount *big.Int) error {
	balance, err := b.balanceTx(tx, token, holder)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return b.setBalance(tx, token, holder, new(big.Int).Sub(balance, amount))
}

func (b *Bank) setBalance(tx *sql.Tx, token, holder ethcommon.Address, amount *big.Int) error {
	query := `INSERT INTO balance (token, holder, amount) VALUES (?, ?, ?)
		ON CONFLICT (token, holder) DO UPDATE SET amount = excluded.amount`
	stmt, err := b.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(addrHex(token), addrHex(holder), amount.String())
	return err
}

func (b *Bank) balanceTx(tx *sql.Tx, token, holder ethcommon.Address) (*big.Int, error) {
	query := `SELECT amount FROM balance WHERE token = ? AND holder = ?`
	stmt, err := b.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return nil, err
	}

	var amount string
	if err := stmt.QueryRow(addrHex(token), addrHex(holder)).Scan(&amount); err != nil {
		if err == sql.ErrNoRows {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	return common.DecStrToBigInt(amount)
}

func (b *Bank) allowanceTx(tx *sql.Tx, token, owner, spender ethcommon.Address) (*big.Int, error) {
	query := `SELECT amount FROM allowance WHERE token = ? AND owner = ? AND spender = ?`
	stmt, err := b.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return nil, err
	}

	var amount string
	if err := stmt.QueryRow(addrHex(token), addrHex(owner), addrHex(spender)).Scan(&amount); err != nil {
		if err == sql.ErrNoRows {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	return common.DecStrToBigInt(amount)
}

func (b *Bank) setAllowance(tx *sql.Tx, token, owner, spender ethcommon.Address, amount *big.Int) error {
	query := `INSERT INTO allowance (token, owner, spender, amount) VALUES (?, ?, ?, ?)
		ON CONFLICT (token, owner, spender) DO UPDATE SET amount = excluded.amount`
	stmt, err := b.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(addrHex(token), addrHex(owner), addrHex(spender), amount.String())
	return err
}

func addrHex(addr ethcommon.Address) string {
	return common.ByteSliceToPureHexStr(addr.Bytes())
}
