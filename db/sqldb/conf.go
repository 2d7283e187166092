package sqldb

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultPgSQLPort    = 5432
	DefaultMySQLPort    = 3306
	DefaultQueryTimeout = 10 * time.Second
)

// Conf is one entry of config/.sql-databases.json
type Conf struct {
	Type  string            `json:"type"` // mysql, pgsql
	Host  string            `json:"host"`
	Port  int               `json:"port"` // default port of Type if 0
	User  string            `json:"user"`
	PW    string            `json:"pw"`
	DB    string            `json:"db"`
	TZ    string            `json:"tz"`    // Connection Timezone. UTC if empty
	DSN   string            `json:"dsn"`   // To Overwrite Default DSN
	Stmts map[string]string `json:"stmts"` // Raw statements by key, overriding built-in ones

	QueryTimeoutSeconds int `json:"query_timeout_seconds"` // DefaultQueryTimeout if 0
}

// Stmt returns the configured raw statement for key, or fallback
func (c *Conf) Stmt(key string, fallback string) string {
	if s, ok := c.Stmts[key]; ok && s != "" {
		return s
	}
	return fallback
}

func (c *Conf) tz() string {
	if c.TZ == "" {
		return "UTC"
	}
	return c.TZ
}

func (c *Conf) port(fallback int) int {
	if c.Port == 0 {
		return fallback
	}
	return c.Port
}

// PgSQLDSN is DSN if set, otherwise a keyword/value connection string
func (c *Conf) PgSQLDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=%s",
		c.Host, c.port(DefaultPgSQLPort), c.User, c.PW, c.DB, c.tz())
}

// MySQLDSN is DSN if set, otherwise a go-sql-driver DSN with parseTime on
func (c *Conf) MySQLDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=%s",
		c.User, c.PW, c.Host, c.port(DefaultMySQLPort), c.DB, url.QueryEscape(c.tz()))
}

// QueryContext bounds a query by QueryTimeoutSeconds
func (c *Conf) QueryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := DefaultQueryTimeout
	if c.QueryTimeoutSeconds > 0 {
		timeout = time.Duration(c.QueryTimeoutSeconds) * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
