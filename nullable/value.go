// Package nullable wraps sql.Null for columns that may be NULL in invoice tables.
package nullable

import (
	"database/sql"
	"encoding/json"
)

// Value implements sql.Scanner through the embedded sql.Null
// and encodes NULL as JSON null
type Value[T any] struct {
	sql.Null[T]
}

func Of[T any](v T) Value[T] {
	return Value[T]{sql.Null[T]{V: v, Valid: true}}
}

func (n Value[T]) MarshalJSON() ([]byte, error) {
	if n.Valid {
		return json.Marshal(n.V)
	}
	return []byte("null"), nil
}

func (n *Value[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Value[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Of(v)
	return nil
}

// Or returns fallback for NULL
func (n Value[T]) Or(fallback T) T {
	if !n.Valid {
		return fallback
	}
	return n.V
}

func (n Value[T]) IsNil() bool {
	return !n.Valid
}

type (
	String = Value[string]
	Float  = Value[float64]
)
