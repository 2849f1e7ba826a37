package ledger

import (
	"database/sql"

	"github.com/autarklabs/tokenrequest-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Capabilities gate the permissioned ledger operations. Access control is
// a flat (caller, capability) table, not a role hierarchy: whoever holds
// the capability may call, however they came to hold it. In particular
// CapFinalise is typically granted to a governance forwarder, and the
// ledger never learns anything about the vote behind the call.
type Capability string

const (
	CapFinalise        Capability = "FINALISE_TOKEN_REQUEST"
	CapSetTokenManager Capability = "SET_TOKEN_MANAGER"
	CapSetVault        Capability = "SET_VAULT"
	CapManageTokens    Capability = "MODIFY_TOKENS"
)

func (st *StateDB) GrantCapability(caller ethcommon.Address, cap Capability) error {
	query := `INSERT OR IGNORE INTO acl (caller, capability) VALUES (?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(common.ByteSliceToPureHexStr(caller.Bytes()), string(cap))
	return err
}

func (st *StateDB) RevokeCapability(caller ethcommon.Address, cap Capability) error {
	query := `DELETE FROM acl WHERE caller = ? AND capability = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(common.ByteSliceToPureHexStr(caller.Bytes()), string(cap))
	return err
}

func (st *StateDB) HasCapability(caller ethcommon.Address, cap Capability) (bool, error) {
	query := `SELECT 1 FROM acl WHERE caller = ? AND capability = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return false, err
	}

	var one int
	if err := stmt.QueryRow(common.ByteSliceToPureHexStr(caller.Bytes()), string(cap)).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
