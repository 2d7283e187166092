// Package pgsql reads invoices from PostgreSQL through a pgx pool.
package pgsql

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeptools/gw-invoicer/db/sqldb"
)

type Client struct {
	Handle // [Embedded] for Promoted Methods
	Conf   *sqldb.Conf
}

// Ensure pgsql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

// Register adds the "pgsql" factory to sqldb
func Register() {
	sqldb.RegisterFactory("pgsql", func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{Conf: conf}, nil
	})
}

func (c *Client) Init(ctx context.Context) error {
	config, err := pgxpool.ParseConfig(c.Conf.PgSQLDSN())
	if err != nil {
		return fmt.Errorf("pgsql config: %w", err)
	}
	conns, lifetime := sqldb.PoolLimits()
	config.MaxConns = int32(conns)
	config.MaxConnLifetime = lifetime

	ctx, cancel := sqldb.ConnectTimeout(ctx)
	defer cancel()
	if c.Pool, err = pgxpool.NewWithConfig(ctx, config); err != nil {
		return fmt.Errorf("pgsql pool: %w", err)
	}
	if err = c.Ping(ctx); err != nil {
		c.Pool.Close()
		c.Pool = nil
		return fmt.Errorf("pgsql ping: %w", err)
	}
	log.Printf("[INFO][PGSQL] connected to %s/%s", config.ConnConfig.Host, config.ConnConfig.Database)
	return nil
}

func (c *Client) GetHandle() sqldb.Handle {
	return &Handle{Pool: c.Pool}
}

func (c *Client) GetConf() *sqldb.Conf {
	return c.Conf
}

func (c *Client) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return sqldb.ErrNotInitialized
	}
	return c.Pool.Ping(ctx)
}

func (c *Client) Close() error {
	if c.Pool == nil {
		return nil
	}
	c.Pool.Close()
	log.Println("[INFO][PGSQL] pool closed")
	return nil
}
