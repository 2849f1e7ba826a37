package database

import "database/sql"

// RunTx executes fn inside a transaction, committing on nil error and
// rolling back otherwise. Every ledger mutation goes through this so a
// failing sub-step leaves no partial state behind.
func RunTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
