package sqldb

import (
	"context"
	"errors"
	"time"
)

const (
	connectTimeout  = 5 * time.Second
	maxConns        = 4 // one build run at a time
	connMaxLifetime = 3 * time.Minute
)

var ErrNotInitialized = errors.New("sqldb: client not initialized")

type Client interface {
	Init(ctx context.Context) error
	Close() error
	GetHandle() Handle
	GetConf() *Conf
	Ping(ctx context.Context) error
}

// ConnectTimeout bounds Init
func ConnectTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, connectTimeout)
}

// PoolLimits are the connection pool limits shared by the implementations
func PoolLimits() (int, time.Duration) {
	return maxConns, connMaxLifetime
}
