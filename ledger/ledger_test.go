package ledger

import (
	"math/big"
	"testing"

	"github.com/autarklabs/tokenrequest-go/common"
	"github.com/autarklabs/tokenrequest-go/tokenman"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTokenRequestNative(t *testing.T) {
	env, err := NewSimEnv()
	require.NoError(t, err)
	defer env.Close()

	requester := common.RandEthAddress()
	assert.NoError(t, env.Book.Fund(common.NativeToken, requester, big.NewInt(5000)))

	id, err := env.Ledger.CreateTokenRequest(requester, common.NativeToken, big.NewInt(2000), big.NewInt(1), "", big.NewInt(2000))
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	next, err := env.Ledger.NextRequestID()
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), next)

	escrow, err := env.Ledger.EscrowBalance(common.NativeToken)
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), escrow.Int64())

	r, ok, err := env.Ledger.GetTokenRequest(id)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, requester, r.Requester)
	assert.Equal(t, RequestStatusPending, r.Status)
	assert.Equal(t, int64(2000), r.DepositAmount.Int64())

	// zero attached value
	_, err = env.Ledger.CreateTokenRequest(requester, common.NativeToken, big.NewInt(2000), big.NewInt(1), "", big.NewInt(0))
	assert.ErrorIs(t, err, ErrNoAmount)

	// mismatched attached value
	_, err = env.Ledger.CreateTokenRequest(requester, common.NativeToken, big.NewInt(100), big.NewInt(1), "", big.NewInt(50))
	assert.ErrorIs(t, err, ErrEthValueMismatch)

	// zero deposit amount
	_, err = env.Ledger.CreateTokenRequest(requester, common.NativeToken, big.NewInt(0), big.NewInt(1), "", big.NewInt(0))
	assert.ErrorIs(t, err, ErrNoAmount)

	// token not on the allow-list
	_, err = env.Ledger.CreateTokenRequest(requester, common.RandEthAddress(), big.NewInt(100), big.NewInt(1), "", nil)
	assert.ErrorIs(t, err, ErrTokenNotAccepted)

	// zero or missing request amount could never mint on finalise
	_, err = env.Ledger.CreateTokenRequest(requester, common.NativeToken, big.NewInt(100), big.NewInt(0), "", big.NewInt(100))
	assert.ErrorIs(t, err, ErrNoAmount)
	_, err = env.Ledger.CreateTokenRequest(requester, common.NativeToken, big.NewInt(100), nil, "", big.NewInt(100))
	assert.ErrorIs(t, err, ErrNoAmount)

	// failed calls left no record behind
	next, err = env.Ledger.NextRequestID()
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), next)
}

func TestCreateTokenRequestToken(t *testing.T) {
	env, err := NewSimEnv()
	require.NoError(t, err)
	defer env.Close()

	requester := common.RandEthAddress()
	assert.NoError(t, env.Book.Fund(env.Erc20, requester, big.NewInt(1000)))

	// no prior approval: the allowance pull reverts and nothing is recorded
	_, err = env.Ledger.CreateTokenRequest(requester, env.Erc20, big.NewInt(100), big.NewInt(1), "", nil)
	assert.ErrorIs(t, err, ErrTokenTransferReverted)

	escrow, err := env.Ledger.EscrowBalance(env.Erc20)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), escrow.Int64())

	next, err := env.Ledger.NextRequestID()
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), next)

	// attached native value on a token deposit is rejected
	assert.NoError(t, env.Book.ApproveSpender(env.Erc20, requester, env.Ledger.Address(), big.NewInt(100)))
	_, err = env.Ledger.CreateTokenRequest(requester, env.Erc20, big.NewInt(100), big.NewInt(1), "", big.NewInt(100))
	assert.ErrorIs(t, err, ErrEthValueMismatch)

	id, err := env.Ledger.CreateTokenRequest(requester, env.Erc20, big.NewInt(100), big.NewInt(1), "ref-1", nil)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	escrow, err = env.Ledger.EscrowBalance(env.Erc20)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), escrow.Int64())

	balance, err := env.Book.BalanceOf(env.Erc20, requester)
	assert.NoError(t, err)
	assert.Equal(t, int64(900), balance.Int64())

	r, ok, err := env.Ledger.GetTokenRequest(id)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ref-1", r.Reference)
}

func TestFinaliseTokenRequest(t *testing.T) {
	env, err := NewSimEnv()
	require.NoError(t, err)
	defer env.Close()

	requester := common.RandEthAddress()
	assert.NoError(t, env.Book.Fund(common.NativeToken, requester, big.NewInt(3000)))

	id, err := env.Ledger.CreateTokenRequest(requester, common.NativeToken, big.NewInt(2000), big.NewInt(5), "", big.NewInt(2000))
	assert.NoError(t, err)

	// caller without the finalise capability
	err = env.Ledger.FinaliseTokenRequest(common.RandEthAddress(), id)
	assert.ErrorIs(t, err, ErrAuthFailed)

	// unknown id
	err = env.Ledger.FinaliseTokenRequest(env.Root, 42)
	assert.ErrorIs(t, err, ErrNoDeposit)

	err = env.Ledger.FinaliseTokenRequest(env.Root, id)
	assert.NoError(t, err)

	// deposit moved into the vault, escrow emptied
	vaultBalance, err := env.Book.BalanceOf(common.NativeToken, env.Vault)
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), vaultBalance.Int64())

	escrow, err := env.Ledger.EscrowBalance(common.NativeToken)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), escrow.Int64())

	// requested amount of the org token minted to the requester
	minted, err := env.Book.BalanceOf(env.OrgToken, requester)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), minted.Int64())

	r, ok, err := env.Ledger.GetTokenRequest(id)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, RequestStatusApproved, r.Status)

	// second finalise fails, balances unchanged
	err = env.Ledger.FinaliseTokenRequest(env.Root, id)
	assert.ErrorIs(t, err, ErrNoDeposit)

	vaultBalance, err = env.Book.BalanceOf(common.NativeToken, env.Vault)
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), vaultBalance.Int64())
	minted, err = env.Book.BalanceOf(env.OrgToken, requester)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), minted.Int64())
}

func TestRefundTokenRequest(t *testing.T) {
	env, err := NewSimEnv()
	require.NoError(t, err)
	defer env.Close()

	requester := common.RandEthAddress()
	assert.NoError(t, env.Book.Fund(common.NativeToken, requester, big.NewInt(2000)))

	id, err := env.Ledger.CreateTokenRequest(requester, common.NativeToken, big.NewInt(2000), big.NewInt(1), "", big.NewInt(2000))
	assert.NoError(t, err)

	// a non-requester account may not refund
	err = env.Ledger.RefundTokenRequest(common.RandEthAddress(), id)
	assert.ErrorIs(t, err, ErrNotOwner)

	err = env.Ledger.RefundTokenRequest(requester, id)
	assert.NoError(t, err)

	balance, err := env.Book.BalanceOf(common.NativeToken, requester)
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), balance.Int64())

	escrow, err := env.Ledger.EscrowBalance(common.NativeToken)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), escrow.Int64())

	r, ok, err := env.Ledger.GetTokenRequest(id)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, RequestStatusRefunded, r.Status)

	// refunding twice fails the same way
	err = env.Ledger.RefundTokenRequest(requester, id)
	assert.ErrorIs(t, err, ErrNotOwner)

	// a resolved request cannot be refunded by anyone
	err = env.Ledger.RefundTokenRequest(env.Root, id)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestConservationInvariant(t *testing.T) {
	env, err := NewSimEnv()
	require.NoError(t, err)
	defer env.Close()

	alice := common.RandEthAddress()
	bob := common.RandEthAddress()
	assert.NoError(t, env.Book.Fund(common.NativeToken, alice, big.NewInt(10000)))
	assert.NoError(t, env.Book.Fund(env.Erc20, bob, big.NewInt(10000)))
	assert.NoError(t, env.Book.ApproveSpender(env.Erc20, bob, env.Ledger.Address(), big.NewInt(10000)))

	ids := []uint64{}
	id, err := env.Ledger.CreateTokenRequest(alice, common.NativeToken, big.NewInt(1000), big.NewInt(1), "", big.NewInt(1000))
	assert.NoError(t, err)
	ids = append(ids, id)
	id, err = env.Ledger.CreateTokenRequest(alice, common.NativeToken, big.NewInt(500), big.NewInt(2), "", big.NewInt(500))
	assert.NoError(t, err)
	ids = append(ids, id)
	id, err = env.Ledger.CreateTokenRequest(bob, env.Erc20, big.NewInt(700), big.NewInt(3), "", nil)
	assert.NoError(t, err)
	ids = append(ids, id)

	conserved(t, env, common.NativeToken)
	conserved(t, env, env.Erc20)

	assert.NoError(t, env.Ledger.RefundTokenRequest(alice, ids[0]))
	conserved(t, env, common.NativeToken)

	assert.NoError(t, env.Ledger.FinaliseTokenRequest(env.Root, ids[2]))
	conserved(t, env, env.Erc20)

	assert.NoError(t, env.Ledger.FinaliseTokenRequest(env.Root, ids[1]))
	conserved(t, env, common.NativeToken)
	conserved(t, env, env.Erc20)
}

// A deposit of 1000 units of an 18-decimal token is 10^21 base units,
// well past 64 bits. The full width must survive escrow, the event log
// and finalise.
func TestLargeDepositAmounts(t *testing.T) {
	env, err := NewSimEnv()
	require.NoError(t, err)
	defer env.Close()

	deposit, ok := new(big.Int).SetString("1000000000000000000000", 10)
	require.True(t, ok)
	request, ok := new(big.Int).SetString("50000000000000000000", 10)
	require.True(t, ok)

	requester := common.RandEthAddress()
	assert.NoError(t, env.Book.Fund(common.NativeToken, requester, deposit))

	id, err := env.Ledger.CreateTokenRequest(requester, common.NativeToken, deposit, request, "", deposit)
	assert.NoError(t, err)

	escrow, err := env.Ledger.EscrowBalance(common.NativeToken)
	assert.NoError(t, err)
	assert.Equal(t, deposit.String(), escrow.String())
	conserved(t, env, common.NativeToken)

	// the stored record and the event row carry the exact amounts
	r, found, err := env.Ledger.GetTokenRequest(id)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, deposit.String(), r.DepositAmount.String())
	assert.Equal(t, request.String(), r.RequestAmount.String())

	events, err := env.StateDB.GetEventsFrom(1)
	assert.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, deposit.String(), events[0].DepositAmount.String())

	assert.NoError(t, env.Ledger.FinaliseTokenRequest(env.Root, id))

	vaultBalance, err := env.Book.BalanceOf(common.NativeToken, env.Vault)
	assert.NoError(t, err)
	assert.Equal(t, deposit.String(), vaultBalance.String())

	minted, err := env.Book.BalanceOf(env.OrgToken, requester)
	assert.NoError(t, err)
	assert.Equal(t, request.String(), minted.String())
}

func TestAllowListBounds(t *testing.T) {
	env, err := NewSimEnv()
	require.NoError(t, err)
	defer env.Close()

	// no capability
	err = env.Ledger.AddToken(common.RandEthAddress(), common.RandEthAddress())
	assert.ErrorIs(t, err, ErrAuthFailed)

	// duplicate
	err = env.Ledger.AddToken(env.Root, env.Erc20)
	assert.ErrorIs(t, err, ErrTokenAlreadyAccepted)

	// unlisted removal
	err = env.Ledger.RemoveToken(env.Root, common.RandEthAddress())
	assert.ErrorIs(t, err, ErrTokenNotAccepted)

	// fill up to the maximum, then one more must fail
	n, err := env.StateDB.CountAcceptedTokens()
	assert.NoError(t, err)
	for i := n; i < DefaultMaxAcceptedTokens; i++ {
		assert.NoError(t, env.Ledger.AddToken(env.Root, common.RandEthAddress()))
	}
	err = env.Ledger.AddToken(env.Root, common.RandEthAddress())
	assert.ErrorIs(t, err, ErrTooManyAcceptedTokens)

	// removal frees a slot again
	assert.NoError(t, env.Ledger.RemoveToken(env.Root, env.Erc20))
	assert.NoError(t, env.Ledger.AddToken(env.Root, env.Erc20))
}

func TestSetTokenManagerAndVault(t *testing.T) {
	env, err := NewSimEnv()
	require.NoError(t, err)
	defer env.Close()

	tm2, err := tokenman.New(env.Book, common.RandEthAddress(), env.OrgToken)
	require.NoError(t, err)

	// no capability
	err = env.Ledger.SetTokenManager(common.RandEthAddress(), tm2)
	assert.ErrorIs(t, err, ErrAuthFailed)

	assert.NoError(t, env.Ledger.SetTokenManager(env.Root, tm2))
	assert.Equal(t, tm2.Address(), env.Ledger.TokenManagerAddress())

	// a plain account is not contract-shaped
	err = env.Ledger.SetVault(env.Root, common.RandEthAddress())
	assert.ErrorIs(t, err, ErrAddressNotContract)

	vault2 := common.RandEthAddress()
	assert.NoError(t, env.Book.RegisterContract(vault2))
	assert.NoError(t, env.Ledger.SetVault(env.Root, vault2))
	assert.Equal(t, vault2, env.Ledger.VaultAddress())
}

func TestVaultSurvivesRestart(t *testing.T) {
	env, err := NewSimEnv()
	require.NoError(t, err)
	defer env.Close()

	vault2 := common.RandEthAddress()
	assert.NoError(t, env.Book.RegisterContract(vault2))
	assert.NoError(t, env.Ledger.SetVault(env.Root, vault2))

	// a fresh ledger over the same state db boots with the swapped
	// vault, not the one it was handed
	reborn := New(env.StateDB, env.Book, &Config{
		Address: env.Ledger.Address(),
		Now:     env.Clock.Now,
	})
	assert.NoError(t, reborn.Initialize(env.TokenManager, env.Vault))
	assert.Equal(t, vault2, reborn.VaultAddress())
}

func TestEventLogAndPublisher(t *testing.T) {
	env, err := NewSimEnv()
	require.NoError(t, err)
	defer env.Close()

	observer := make(chan *Event, 16)
	env.Ledger.Publisher().RegisterEventObserver(observer)

	requester := common.RandEthAddress()
	assert.NoError(t, env.Book.Fund(common.NativeToken, requester, big.NewInt(5000)))

	id0, err := env.Ledger.CreateTokenRequest(requester, common.NativeToken, big.NewInt(1000), big.NewInt(1), "a", big.NewInt(1000))
	assert.NoError(t, err)
	id1, err := env.Ledger.CreateTokenRequest(requester, common.NativeToken, big.NewInt(2000), big.NewInt(2), "b", big.NewInt(2000))
	assert.NoError(t, err)
	assert.NoError(t, env.Ledger.RefundTokenRequest(requester, id0))
	assert.NoError(t, env.Ledger.FinaliseTokenRequest(env.Root, id1))

	events, err := env.StateDB.GetEventsFrom(1)
	assert.NoError(t, err)
	assert.Len(t, events, 4)

	assert.Equal(t, EventRequestCreated, events[0].Kind)
	assert.Equal(t, id0, events[0].RequestID)
	assert.Equal(t, requester, events[0].Requester)
	assert.Equal(t, int64(1000), events[0].DepositAmount.Int64())
	assert.Equal(t, "a", events[0].Reference)

	assert.Equal(t, EventRequestCreated, events[1].Kind)
	assert.Equal(t, EventRequestRefunded, events[2].Kind)
	assert.Equal(t, id0, events[2].RequestID)
	assert.Equal(t, EventRequestFinalised, events[3].Kind)
	assert.Equal(t, id1, events[3].RequestID)

	// sequence numbers are strictly increasing from 1
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}

	// the live observer saw the same four events in order
	for i := 0; i < 4; i++ {
		ev := <-observer
		assert.Equal(t, events[i].Seq, ev.Seq)
		assert.Equal(t, events[i].Kind, ev.Kind)
	}
}

// conserved asserts the escrow balance for an asset equals the sum of
// depositAmount over its Pending requests.
func conserved(t *testing.T, env *SimEnv, token ethcommon.Address) {
	t.Helper()

	escrow, err := env.Ledger.EscrowBalance(token)
	assert.NoError(t, err)
	sum, err := env.StateDB.GetPendingDepositSum(token)
	assert.NoError(t, err)
	assert.Zero(t, escrow.Cmp(sum))
}
