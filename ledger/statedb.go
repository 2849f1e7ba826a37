package ledger

import (
	"database/sql"
	"math/big"
	"strconv"

	"github.com/autarklabs/tokenrequest-go/common"
	"github.com/autarklabs/tokenrequest-go/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	keyNextRequestID = "nextRequestId"
	keyVault         = "vault"
)

// StateDB persists the ledger: request records, the accepted-token
// allow-list, the capability table, the append-only event log and keyed
// settings.
type StateDB struct {
	stmtCache *database.StmtCache
}

func NewStateDB(db *sql.DB) (*StateDB, error) {
	if _, err := db.Exec(requestTable + acceptedTokenTable + eventTable + aclTable + kvTable); err != nil {
		return nil, err
	}

	return &StateDB{
		stmtCache: database.NewStmtCache(db),
	}, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

func (st *StateDB) DB() *sql.DB {
	return st.stmtCache.DB()
}

func (st *StateDB) InsertRequest(tx *sql.Tx, r *TokenRequest) error {
	query := `INSERT INTO request (` + requestParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := st.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return err
	}

	s := new(sqlRequest).encode(r)
	_, err = stmt.Exec(
		s.ID,
		s.Requester,
		s.DepositToken,
		s.DepositAmount,
		s.RequestAmount,
		s.Reference,
		s.Status,
		s.CreatedAt,
	)
	return err
}

func (st *StateDB) GetRequest(id uint64) (*TokenRequest, bool, error) {
	query := `SELECT` + requestParamList + `FROM request WHERE id = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, false, err
	}
	return scanRequest(stmt.QueryRow(id))
}

// GetRequestTx reads a request inside the mutation transaction so the
// status guard and the transition commit atomically.
func (st *StateDB) GetRequestTx(tx *sql.Tx, id uint64) (*TokenRequest, bool, error) {
	query := `SELECT` + requestParamList + `FROM request WHERE id = ?`
	stmt, err := st.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return nil, false, err
	}
	return scanRequest(stmt.QueryRow(id))
}

func scanRequest(row *sql.Row) (*TokenRequest, bool, error) {
	var s sqlRequest
	if err := row.Scan(
		&s.ID,
		&s.Requester,
		&s.DepositToken,
		&s.DepositAmount,
		&s.RequestAmount,
		&s.Reference,
		&s.Status,
		&s.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}

	r, err := s.decode()
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// UpdateRequestStatus flips a Pending request into a terminal status. The
// WHERE clause repeats the Pending guard so a transition can never be
// applied twice even if two calls race past the in-memory check.
func (st *StateDB) UpdateRequestStatus(tx *sql.Tx, id uint64, next RequestStatus) (bool, error) {
	query := `UPDATE request SET status = ? WHERE id = ? AND status = ?`
	stmt, err := st.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return false, err
	}

	res, err := stmt.Exec(string(next), id, string(RequestStatusPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (st *StateDB) GetRequestsByStatus(status RequestStatus) ([]*TokenRequest, error) {
	query := `SELECT` + requestParamList + `FROM request WHERE status = ? ORDER BY id`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*TokenRequest
	for rows.Next() {
		var s sqlRequest
		if err := rows.Scan(
			&s.ID,
			&s.Requester,
			&s.DepositToken,
			&s.DepositAmount,
			&s.RequestAmount,
			&s.Reference,
			&s.Status,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		r, err := s.decode()
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// GetPendingDepositSum returns the sum of depositAmount over Pending
// requests for one asset. Together with the bank balance of the ledger
// account this is the conservation invariant. The sum runs in Go since
// amounts are stored as decimal text.
func (st *StateDB) GetPendingDepositSum(token ethcommon.Address) (*big.Int, error) {
	query := `SELECT depositAmount FROM request WHERE depositToken = ? AND status = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	tokenHex := common.ByteSliceToPureHexStr(token.Bytes())
	rows, err := stmt.Query(tokenHex, string(RequestStatusPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sum := big.NewInt(0)
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return nil, err
		}
		n, err := common.DecStrToBigInt(amount)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, n)
	}
	return sum, rows.Err()
}

// ---- accepted-token allow-list ----

func (st *StateDB) IsAcceptedToken(token ethcommon.Address) (bool, error) {
	query := `SELECT 1 FROM acceptedToken WHERE token = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return false, err
	}

	var one int
	if err := stmt.QueryRow(common.ByteSliceToPureHexStr(token.Bytes())).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (st *StateDB) CountAcceptedTokens() (int, error) {
	query := `SELECT COUNT(*) FROM acceptedToken`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return 0, err
	}

	var n int
	if err := stmt.QueryRow().Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (st *StateDB) InsertAcceptedToken(token ethcommon.Address) error {
	query := `INSERT INTO acceptedToken (token, position)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM acceptedToken))`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(common.ByteSliceToPureHexStr(token.Bytes()))
	return err
}

func (st *StateDB) DeleteAcceptedToken(token ethcommon.Address) error {
	query := `DELETE FROM acceptedToken WHERE token = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(common.ByteSliceToPureHexStr(token.Bytes()))
	return err
}

func (st *StateDB) GetAcceptedTokens() ([]ethcommon.Address, error) {
	query := `SELECT token FROM acceptedToken ORDER BY position`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []ethcommon.Address{}
	for rows.Next() {
		var hex string
		if err := rows.Scan(&hex); err != nil {
			return nil, err
		}
		tokens = append(tokens, ethcommon.HexToAddress(hex))
	}
	return tokens, rows.Err()
}

// ---- keyed settings ----

func (st *StateDB) GetKeyedValue(key string) (string, bool, error) {
	query := `SELECT value FROM kv WHERE key = ?`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return "", false, err
	}

	var value string
	if err := stmt.QueryRow(key).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (st *StateDB) SetKeyedValue(key, value string) error {
	query := `INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(key, value)
	return err
}

func (st *StateDB) setKeyedValueTx(tx *sql.Tx, key, value string) error {
	query := `INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`
	stmt, err := st.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(key, value)
	return err
}

// GetNextRequestID returns the id the next created request will take.
// Ids start at 0 and are never reused.
func (st *StateDB) GetNextRequestID() (uint64, error) {
	value, ok, err := st.GetKeyedValue(keyNextRequestID)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseUint(value, 10, 64)
}

func (st *StateDB) getNextRequestIDTx(tx *sql.Tx) (uint64, error) {
	query := `SELECT value FROM kv WHERE key = ?`
	stmt, err := st.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return 0, err
	}

	var value string
	if err := stmt.QueryRow(keyNextRequestID).Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseUint(value, 10, 64)
}

func (st *StateDB) setNextRequestIDTx(tx *sql.Tx, next uint64) error {
	return st.setKeyedValueTx(tx, keyNextRequestID, strconv.FormatUint(next, 10))
}

// ---- event log ----

// AppendEvent inserts one event row and returns its assigned sequence
// number. Always called inside the transaction of the state change it
// describes.
func (st *StateDB) AppendEvent(tx *sql.Tx, ev *Event) (uint64, error) {
	query := `INSERT INTO event (` + eventParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := st.stmtCache.PrepareTx(tx, query)
	if err != nil {
		return 0, err
	}

	s := new(sqlEvent).encode(ev)
	res, err := stmt.Exec(
		s.Kind,
		s.RequestID,
		s.Requester,
		s.DepositToken,
		s.DepositAmount,
		s.RequestAmount,
		s.Reference,
		s.CreatedAt,
	)
	if err != nil {
		return 0, err
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(seq), nil
}

// GetEventsFrom returns all events with seq >= from, in emission order.
// A cold projector replays these before live-tailing the publisher.
func (st *StateDB) GetEventsFrom(from uint64) ([]*Event, error) {
	query := `SELECT seq,` + eventParamList + `FROM event WHERE seq >= ? ORDER BY seq`
	stmt, err := st.stmtCache.Prepare(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var s sqlEvent
		if err := rows.Scan(
			&s.Seq,
			&s.Kind,
			&s.RequestID,
			&s.Requester,
			&s.DepositToken,
			&s.DepositAmount,
			&s.RequestAmount,
			&s.Reference,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		ev, err := s.decode()
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
