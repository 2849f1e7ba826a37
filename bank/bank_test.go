package bank

import (
	"database/sql"
	"math/big"
	"testing"

	"github.com/autarklabs/tokenrequest-go/common"
	"github.com/autarklabs/tokenrequest-go/database"
	"github.com/stretchr/testify/assert"
)

func TestTransfer(t *testing.T) {
	sqlDB := GetMemoryDB()
	defer sqlDB.Close()
	b, err := New(sqlDB)
	assert.NoError(t, err)
	defer b.Close()

	token := common.RandEthAddress()
	alice := common.RandEthAddress()
	bob := common.RandEthAddress()

	assert.NoError(t, b.Fund(token, alice, big.NewInt(1000)))

	err = database.RunTx(sqlDB, func(tx *sql.Tx) error {
		return b.Transfer(tx, token, alice, bob, big.NewInt(300))
	})
	assert.NoError(t, err)

	balance, err := b.BalanceOf(token, alice)
	assert.NoError(t, err)
	assert.Equal(t, int64(700), balance.Int64())

	balance, err = b.BalanceOf(token, bob)
	assert.NoError(t, err)
	assert.Equal(t, int64(300), balance.Int64())

	// overdraft leaves both balances untouched
	err = database.RunTx(sqlDB, func(tx *sql.Tx) error {
		return b.Transfer(tx, token, alice, bob, big.NewInt(701))
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err = b.BalanceOf(token, alice)
	assert.NoError(t, err)
	assert.Equal(t, int64(700), balance.Int64())
}

func TestTransferFrom(t *testing.T) {
	sqlDB := GetMemoryDB()
	defer sqlDB.Close()
	b, err := New(sqlDB)
	assert.NoError(t, err)
	defer b.Close()

	token := common.RandEthAddress()
	owner := common.RandEthAddress()
	spender := common.RandEthAddress()
	receiver := common.RandEthAddress()

	assert.NoError(t, b.Fund(token, owner, big.NewInt(500)))

	// no allowance yet
	err = database.RunTx(sqlDB, func(tx *sql.Tx) error {
		return b.TransferFrom(tx, token, owner, spender, receiver, big.NewInt(100))
	})
	assert.ErrorIs(t, err, ErrInsufficientAllowance)

	assert.NoError(t, b.ApproveSpender(token, owner, spender, big.NewInt(100)))

	err = database.RunTx(sqlDB, func(tx *sql.Tx) error {
		return b.TransferFrom(tx, token, owner, spender, receiver, big.NewInt(100))
	})
	assert.NoError(t, err)

	balance, err := b.BalanceOf(token, receiver)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), balance.Int64())

	// allowance consumed
	allowance, err := b.Allowance(token, owner, spender)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), allowance.Int64())
}

// Base units of an 18-decimal token exceed 64 bits at everyday deposit
// sizes, so the book must carry them exactly.
func TestBigAmounts(t *testing.T) {
	sqlDB := GetMemoryDB()
	defer sqlDB.Close()
	b, err := New(sqlDB)
	assert.NoError(t, err)
	defer b.Close()

	token := common.RandEthAddress()
	alice := common.RandEthAddress()
	bob := common.RandEthAddress()

	// 2^64 + 100
	huge := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(100))
	assert.NoError(t, b.Fund(token, alice, huge))

	balance, err := b.BalanceOf(token, alice)
	assert.NoError(t, err)
	assert.Equal(t, huge.String(), balance.String())

	// the full amount moves, nothing is truncated on either side
	err = database.RunTx(sqlDB, func(tx *sql.Tx) error {
		return b.Transfer(tx, token, alice, bob, huge)
	})
	assert.NoError(t, err)

	balance, err = b.BalanceOf(token, alice)
	assert.NoError(t, err)
	assert.Equal(t, "0", balance.String())

	balance, err = b.BalanceOf(token, bob)
	assert.NoError(t, err)
	assert.Equal(t, huge.String(), balance.String())

	// allowances carry the same width
	assert.NoError(t, b.ApproveSpender(token, bob, alice, huge))
	allowance, err := b.Allowance(token, bob, alice)
	assert.NoError(t, err)
	assert.Equal(t, huge.String(), allowance.String())
}

func TestContractRegistry(t *testing.T) {
	sqlDB := GetMemoryDB()
	defer sqlDB.Close()
	b, err := New(sqlDB)
	assert.NoError(t, err)
	defer b.Close()

	addr := common.RandEthAddress()

	ok, err := b.IsContract(addr)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, b.RegisterContract(addr))

	ok, err = b.IsContract(addr)
	assert.NoError(t, err)
	assert.True(t, ok)
}
