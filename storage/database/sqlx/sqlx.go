// Package sqlxrepos implements the domain repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
)

const uniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// where accumulates AND-ed conditions written with `?` bind vars.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// orderBy renders already whitelisted orderings.
func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

// paginate counts the rows matching w, then selects the requested page into dest.
func paginate(ctx context.Context, db *sqlx.DB, dest interface{}, columns, table string, w where, ordering string, page core.Pagination) (int, error) {
	var total int
	countQ := db.Rebind("SELECT COUNT(*) FROM " + table + w.String())
	if err := db.GetContext(ctx, &total, countQ, w.args...); err != nil {
		return 0, errors.Wrapf(err, "counting %s", table)
	}

	args := append(append([]interface{}{}, w.args...), page.Limit(), page.Offset())
	q := db.Rebind("SELECT " + columns + " FROM " + table + w.String() + ordering + " LIMIT ? OFFSET ?")
	if err := db.SelectContext(ctx, dest, q, args...); err != nil {
		return 0, errors.Wrapf(err, "querying %s", table)
	}
	return total, nil
}
