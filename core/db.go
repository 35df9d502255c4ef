package core

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
	}

	// TxRunner runs fn inside a single transaction.
	// The transaction is rolled back when fn returns an error.
	// exec is nil for storage backends without SQL transactions.
	TxRunner interface {
		InTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

// DBOrdering orders query results by Field.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
