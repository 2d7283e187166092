// Package mysql reads invoices from MySQL through database/sql and go-sql-driver.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql" // side-effect
	"github.com/zeptools/gw-invoicer/db/sqldb"
)

type Client struct {
	Conf *sqldb.Conf

	// db fields are implementation details, not exported
	db *sql.DB
}

// Ensure mysql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

// Register adds the "mysql" factory to sqldb
func Register() {
	sqldb.RegisterFactory("mysql", func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{Conf: conf}, nil
	})
}

func (c *Client) Init(ctx context.Context) error {
	db, err := sql.Open("mysql", c.Conf.MySQLDSN())
	if err != nil {
		return fmt.Errorf("mysql open: %w", err)
	}
	conns, lifetime := sqldb.PoolLimits()
	db.SetConnMaxLifetime(lifetime)
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)

	ctx, cancel := sqldb.ConnectTimeout(ctx)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("mysql ping: %w", err)
	}
	c.db = db
	log.Printf("[INFO][MYSQL] connected to %s", c.Conf.DB)
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.db == nil {
		return sqldb.ErrNotInitialized
	}
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return err
	}
	log.Println("[INFO][MYSQL] pool closed")
	return nil
}

func (c *Client) GetHandle() sqldb.Handle {
	return &Handle{DB: c.db}
}

func (c *Client) GetConf() *sqldb.Conf {
	return c.Conf
}
