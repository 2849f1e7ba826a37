package bank

var (
	// balance per (token, holder). The native coin uses the sentinel
	// token address like any other asset. Amounts are decimal text:
	// base units of an 18-decimal token do not fit 64-bit columns.
	balanceTable = `CREATE TABLE IF NOT EXISTS balance (
		token CHAR(40) NOT NULL,
		holder CHAR(40) NOT NULL,
		amount VARCHAR(80) NOT NULL,
		PRIMARY KEY (token, holder)
	);`

	// allowance granted by owner to spender for a token
	allowanceTable = `CREATE TABLE IF NOT EXISTS allowance (
		token CHAR(40) NOT NULL,
		owner CHAR(40) NOT NULL,
		spender CHAR(40) NOT NULL,
		amount VARCHAR(80) NOT NULL,
		PRIMARY KEY (token, owner, spender)
	);`

	// addresses known to carry code, i.e. contract-shaped
	contractTable = `CREATE TABLE IF NOT EXISTS contract (
		addr CHAR(40) PRIMARY KEY NOT NULL
	);`
)
