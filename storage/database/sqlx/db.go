package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/edpsychconnect/connect/core"
)

const uniqueViolation = "23505"

type txRunner struct {
	db *sqlx.DB
}

var _ core.TxRunner = (*txRunner)(nil) // interface compliance check

// NewTxRunner returns a TxRunner backed by database transactions.
func NewTxRunner(db *sqlx.DB) core.TxRunner {
	return &txRunner{db: db}
}

func (r *txRunner) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

type repository struct {
	db *sqlx.DB
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.db
}

// forUpdate locks the selected rows when exec runs inside a transaction.
func forUpdate(exec core.DBExecutor) string {
	if _, ok := exec.(*sqlx.Tx); ok {
		return " FOR UPDATE"
	}
	return ""
}

// trapNoRowsErr maps "no rows" to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUUID reports whether id can be compared against a uuid column.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// namedGet binds the `:name` parameters of query from arg and scans the first row into dest.
func namedGet(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, arg interface{}) error {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, exec, dest, exec.Rebind(q), args...)
}

type where struct {
	conds []string
	args  []interface{}
}

// add appends a condition; each `?` in cond is bound to arg.
func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *where) raw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy renders ordering as an ORDER BY clause over columns, keyed by field name.
// Unknown fields are skipped; def is used when nothing remains.
func orderBy(ordering []core.DBOrdering, columns map[string]string, def string) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(clauses) == 0 {
		return " ORDER BY " + def
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

func toInt64Array(ints []int) pq.Int64Array {
	arr := make(pq.Int64Array, 0, len(ints))
	for _, i := range ints {
		arr = append(arr, int64(i))
	}
	return arr
}

func fromInt64Array(arr pq.Int64Array) []int {
	ints := make([]int, 0, len(arr))
	for _, i := range arr {
		ints = append(ints, int(i))
	}
	return ints
}

func toStringArray(ss []string) pq.StringArray {
	if ss == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(ss)
}

func fromStringArray(arr pq.StringArray) []string {
	if arr == nil {
		return []string{}
	}
	return []string(arr)
}
