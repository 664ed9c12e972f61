package store

import (
	"errors"

	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrRequiredFields is returned when a contact would be stored without a name or a phone number.
	ErrRequiredFields = errors.New("store: name and phone are required")

	// ErrEmptyKeyword is returned by Search for a blank keyword.
	ErrEmptyKeyword = errors.New("store: search keyword is empty")

	// ErrNotFound is returned when no contact has the requested id.
	ErrNotFound = errors.New("store: contact not found")

	// ErrNoChanges is returned by Update when the merged contact equals the stored one. Nothing
	// has been written in that case.
	ErrNoChanges = errors.New("store: no changes")

	// ErrConstraint is returned when the database rejects a write because of a constraint, for
	// example a unique index on the phone column.
	ErrConstraint = errors.New("store: constraint violation")
)

// codedError is implemented by the errors of the sqlite driver.
type codedError interface {
	Code() int
}

// isConstraintViolation reports whether err carries an SQLite result code of the CONSTRAINT family.
// The extended codes (UNIQUE, NOTNULL, ...) keep the primary code in their lowest byte.
func isConstraintViolation(err error) bool {
	var coded codedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
