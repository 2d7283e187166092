package kvdb

import (
	"context"
	"errors"
	"time"
)

// Client is the key-value store behind the run journal.
// Run records are hashes; the run index is a list.
type Client interface {
	Init() error
	Close() error
	GetConf() *Conf

	//---- Key Ops ----

	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) (int64, error)
	// Expire sets/updates expiration for a key
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) // found & updated, err

	//---- List Ops ----

	Push(ctx context.Context, key string, value string) error
	Len(ctx context.Context, key string) (int64, error)
	Range(ctx context.Context, key string, start int64, stop int64) ([]string, error) // 0-basis, stop inclusive
	Remove(ctx context.Context, key string, cnt int64, value any) (int64, error)      // cnt = removed dups. 0 = all
	Trim(ctx context.Context, key string, start int64, stop int64) error              // 0-basis, stop inclusive
	// MoveToTail removes every occurrence of value, appends it once and keeps the last maxLen items.
	// Applied atomically.
	MoveToTail(ctx context.Context, key string, value string, maxLen int64) error

	//---- Hash Ops ----

	SetFields(ctx context.Context, key string, fields map[string]any) error
	// SetFieldsExpire is SetFields and Expire in one step. expiration <= 0 leaves the TTL untouched
	SetFieldsExpire(ctx context.Context, key string, fields map[string]any, expiration time.Duration) error
	GetField(ctx context.Context, key string, field string) (string, bool, error) // val, found, err
	// GetAllFields returns an empty map if the key is not found
	GetAllFields(ctx context.Context, key string) (map[string]string, error)
}

var ErrNotSupported = errors.New("kvdb: operation not supported")

// ErrWrongType is returned when a key holds a value of another kind (list vs hash)
var ErrWrongType = errors.New("kvdb: operation against a key holding the wrong kind of value")

var ErrInvalidConf = errors.New("kvdb: invalid configuration")
