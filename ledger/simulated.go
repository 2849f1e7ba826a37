package ledger

import (
	"database/sql"
	"sync"
	"time"

	"github.com/autarklabs/tokenrequest-go/bank"
	"github.com/autarklabs/tokenrequest-go/common"
	"github.com/autarklabs/tokenrequest-go/tokenman"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// SimClock is a settable clock for tests.
type SimClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewSimClock(start time.Time) *SimClock {
	return &SimClock{now: start}
}

func (c *SimClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *SimClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SimEnv assembles an in-memory ledger with a funded root account, one
// accepted fungible token and the native coin on the allow-list.
type SimEnv struct {
	DB           *sql.DB
	Book         *bank.Bank
	StateDB      *StateDB
	Ledger       *Ledger
	TokenManager *tokenman.TokenManager
	Clock        *SimClock

	Root     ethcommon.Address // holds every capability
	Vault    ethcommon.Address
	OrgToken ethcommon.Address // the token minted on finalise
	Erc20    ethcommon.Address // accepted fungible deposit token
}

func NewSimEnv() (*SimEnv, error) {
	db := bank.GetMemoryDB()

	book, err := bank.New(db)
	if err != nil {
		return nil, err
	}
	statedb, err := NewStateDB(db)
	if err != nil {
		return nil, err
	}

	clock := NewSimClock(time.Unix(1_700_000_000, 0))
	env := &SimEnv{
		DB:       db,
		Book:     book,
		StateDB:  statedb,
		Clock:    clock,
		Root:     common.RandEthAddress(),
		Vault:    common.RandEthAddress(),
		OrgToken: common.RandEthAddress(),
		Erc20:    common.RandEthAddress(),
	}

	env.Ledger = New(statedb, book, &Config{
		Address: common.RandEthAddress(),
		Now:     clock.Now,
	})

	tm, err := tokenman.New(book, common.RandEthAddress(), env.OrgToken)
	if err != nil {
		return nil, err
	}
	env.TokenManager = tm

	if err := env.Ledger.Initialize(tm, env.Vault); err != nil {
		return nil, err
	}

	for _, cap := range []Capability{CapFinalise, CapSetTokenManager, CapSetVault, CapManageTokens} {
		if err := statedb.GrantCapability(env.Root, cap); err != nil {
			return nil, err
		}
	}

	if err := env.Ledger.AddToken(env.Root, common.NativeToken); err != nil {
		return nil, err
	}
	if err := env.Ledger.AddToken(env.Root, env.Erc20); err != nil {
		return nil, err
	}

	return env, nil
}

func (env *SimEnv) Close() {
	env.StateDB.Close()
	env.Book.Close()
	env.DB.Close()
}
