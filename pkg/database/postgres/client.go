package pg

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/pkg/errors"

	// Registers the New Relic instrumented pgx driver as "nrpgx"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

const driverName = "nrpgx"

type Config struct {
	User               string
	Password           string
	Host               string
	Port               int
	DbName             string
	SslMode            string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// DSN returns the connection URL for c. SslMode defaults to disable.
func (c *Config) DSN() string {
	sslMode := c.SslMode
	if len(sslMode) == 0 {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DbName,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}

// NewWithConfig opens a connection pool for c and verifies it with a ping.
func NewWithConfig(c *Config) (*sql.DB, error) {
	db, err := NewWithDSN(c.DSN())
	if err != nil {
		return nil, err
	}

	if c.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(c.MaxOpenConnections)
	}
	if c.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(c.MaxIdleConnections)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
	return db, nil
}

// NewWithDSN opens a connection pool using a postgres connection string and
// verifies it with a ping.
func NewWithDSN(dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error opening postgres connection pool")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error pinging postgres")
	}

	return db, nil
}
