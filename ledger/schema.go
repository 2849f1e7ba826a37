package ledger

import "strings"

var (
	strZeroBytes20 = strings.Repeat("0", 40)

	// table that stores the life cycle of a token request. Amounts are
	// decimal text, they exceed 64 bits for 18-decimal tokens; positivity
	// is guarded in code.
	requestTable = `CREATE TABLE IF NOT EXISTS request (
		id INTEGER PRIMARY KEY NOT NULL,
		requester CHAR(40) NOT NULL,
		depositToken CHAR(40) NOT NULL,
		depositAmount VARCHAR(80) NOT NULL,
		requestAmount VARCHAR(80) NOT NULL,
		reference TEXT NOT NULL,
		status VARCHAR(10) NOT NULL,
		createdAt BIGINT NOT NULL,
		CONSTRAINT chk_status CHECK (status IN ('pending', 'approved', 'refunded', 'rejected')),
		CONSTRAINT chk_requester CHECK (requester != '` + strZeroBytes20 + `')
	);`

	// ordered allow-list of depositable token addresses. The native-coin
	// sentinel is a regular entry.
	acceptedTokenTable = `CREATE TABLE IF NOT EXISTS acceptedToken (
		token CHAR(40) PRIMARY KEY NOT NULL,
		position INTEGER NOT NULL
	);`

	// append-only event log consumed by the projector. Every event row
	// carries the full request record so readers never need a second
	// lookup.
	eventTable = `CREATE TABLE IF NOT EXISTS event (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		kind VARCHAR(20) NOT NULL,
		requestId INTEGER NOT NULL,
		requester CHAR(40) NOT NULL,
		depositToken CHAR(40) NOT NULL,
		depositAmount VARCHAR(80) NOT NULL,
		requestAmount VARCHAR(80) NOT NULL,
		reference TEXT NOT NULL,
		createdAt BIGINT NOT NULL,
		CONSTRAINT chk_kind CHECK (kind IN ('request_created', 'request_refunded', 'request_finalised'))
	);`

	// capability table keyed by (caller, capability)
	aclTable = `CREATE TABLE IF NOT EXISTS acl (
		caller CHAR(40) NOT NULL,
		capability VARCHAR(32) NOT NULL,
		PRIMARY KEY (caller, capability)
	);`

	// table stores keyed settings: next request id and the vault address
	kvTable = `CREATE TABLE IF NOT EXISTS kv (
		key VARCHAR(32) PRIMARY KEY NOT NULL,
		value TEXT NOT NULL
	);`

	requestParamList = " id, requester, depositToken, depositAmount, requestAmount, reference, status, createdAt "
	eventParamList   = " kind, requestId, requester, depositToken, depositAmount, requestAmount, reference, createdAt "
)
