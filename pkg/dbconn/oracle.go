package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	go_ora "github.com/sijms/go-ora/v2"
)

const connMaxLifetime = time.Minute * 3

// Config describes the source database connection for an export.
type Config struct {
	// Host is the source hostname, with an optional :port suffix.
	// The standard listener port is assumed when absent.
	Host     string
	Service  string
	Username string
	Password string
	// MaxOpenConnections is overwritten by the runner from the thread
	// count, plus headroom for catalog queries.
	MaxOpenConnections int
}

func NewConfig() *Config {
	return &Config{
		Host:               "localhost:1521",
		MaxOpenConnections: 4,
	}
}

// NewOracle connects to the source database described by config.
// It pings the connection to ensure it is valid before any catalog
// queries run against it.
func NewOracle(ctx context.Context, config *Config) (*sql.DB, error) {
	host, port, err := splitHostPort(config.Host)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("oracle", go_ora.BuildUrl(host, port, config.Service, config.Username, config.Password, nil))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not connect to %s: %w", config.Host, err)
	}
	db.SetMaxOpenConns(config.MaxOpenConnections)
	db.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

// splitHostPort splits an optional :port suffix from hostport. A bare
// hostname is valid and gets the default listener port; a malformed
// port is an error rather than a fallback.
func splitHostPort(hostport string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, 1521, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", hostport, err)
	}
	return host, port, nil
}
