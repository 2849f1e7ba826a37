// The minting authority the ledger invokes on finalise. It issues the
// organization's own token through the asset book; the ledger only holds
// it behind the TokenManager interface.

package tokenman

import (
	"database/sql"
	"math/big"

	"github.com/autarklabs/tokenrequest-go/bank"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type TokenManager struct {
	book  *bank.Bank
	addr  ethcommon.Address // the manager's own, contract-shaped address
	token ethcommon.Address // the org token it mints
}

func New(book *bank.Bank, addr, token ethcommon.Address) (*TokenManager, error) {
	if err := book.RegisterContract(addr); err != nil {
		return nil, err
	}

	return &TokenManager{
		book:  book,
		addr:  addr,
		token: token,
	}, nil
}

func (tm *TokenManager) Address() ethcommon.Address {
	return tm.addr
}

func (tm *TokenManager) Token() ethcommon.Address {
	return tm.token
}

// Mint issues amount of the org token to the receiver inside the
// caller's transaction.
func (tm *TokenManager) Mint(tx *sql.Tx, to ethcommon.Address, amount *big.Int) error {
	return tm.book.Mint(tx, tm.token, to, amount)
}
