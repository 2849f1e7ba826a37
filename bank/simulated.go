package bank

import (
	"database/sql"
	"math/big"

	"github.com/autarklabs/tokenrequest-go/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	_ "github.com/mattn/go-sqlite3"
)

func GetMemoryDB() *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		logger.Fatal(err)
	}
	// every pooled connection would get its own empty in-memory db
	db.SetMaxOpenConns(1)
	return db
}

// Fund credits a holder outside any ledger operation. Test facility.
func (b *Bank) Fund(token, holder ethcommon.Address, amount *big.Int) error {
	return database.RunTx(b.DB(), func(tx *sql.Tx) error {
		return b.Mint(tx, token, holder, amount)
	})
}

// ApproveSpender sets an allowance outside any ledger operation. Test facility.
func (b *Bank) ApproveSpender(token, owner, spender ethcommon.Address, amount *big.Int) error {
	return database.RunTx(b.DB(), func(tx *sql.Tx) error {
		return b.Approve(tx, token, owner, spender, amount)
	})
}
