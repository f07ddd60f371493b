// Package repository defines the MySQL-backed stores and the error types
// reused across them. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no row matches the lookup. Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique
// index. Callers map it onto their own domain error.
var ErrDuplicate = errors.New("duplicate entry")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent records, such as deleting a classroom that still
// has enrollments. Handlers translate it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers.
const (
	errDupEntry        = 1062
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
)

// translate maps driver errors onto the sentinels above. Unknown errors
// are returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDupEntry:
			return ErrDuplicate
		case errRowIsReferenced, errNoReferencedRow:
			return ErrConflict
		}
	}
	return err
}
