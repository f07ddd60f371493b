package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// execOne runs a statement that must match at least one row. The
// connection uses clientFoundRows, so RowsAffected counts matched rows
// even when the values are unchanged.
func execOne(ctx context.Context, db sqlx.ExecerContext, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
