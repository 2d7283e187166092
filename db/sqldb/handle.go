package sqldb

import (
	"context"
	"errors"
)

var ErrNoRows = errors.New("sqldb: no rows in result set")

// Handle is the read-only query surface the invoice source needs.
// Implementations map their driver's no-rows error to ErrNoRows.
type Handle interface {
	QueryRows(ctx context.Context, query string, args ...any) (Rows, error) // Eager. Fail upfront on statement execution
	QueryRow(ctx context.Context, query string, args ...any) Row            // Lazy. only fails at Scan()
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

type Row interface {
	Scan(dest ...any) error
}

// Scannable is a pointer to a row model that lists its scan targets in column order
type Scannable[T any] interface {
	~*T
	TargetFields() []any
}
