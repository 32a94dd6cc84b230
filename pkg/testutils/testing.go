// Package testutils contains some common utilities used exclusively
// by the test suite.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

// DSN returns the target database used by the test suite. Verification
// tests load generated scripts here and replay the check suite.
func DSN() string {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		return "ferry:ferry@tcp(127.0.0.1:3306)/test"
	}
	return dsn
}

// DSNForDatabase returns a DSN for a specific database name
func DSNForDatabase(dbName string) string {
	baseDSN := DSN()
	// Replace the database part of the DSN
	parts := strings.Split(baseDSN, "/")
	if len(parts) >= 2 {
		parts[len(parts)-1] = dbName
		return strings.Join(parts, "/")
	}
	return baseDSN
}

// CreateUniqueTestDatabase creates a unique database for a test
func CreateUniqueTestDatabase(t *testing.T) string {
	t.Helper()

	// Create a unique database name based on test name
	dbName := fmt.Sprintf("t_%s_%d",
		strings.ReplaceAll(strings.ToLower(t.Name()), "/", "_"),
		os.Getpid())

	// Connect without specifying a database
	baseDSN := DSN()
	lastSlash := strings.LastIndex(baseDSN, "/")
	if lastSlash >= 0 {
		// Keep everything up to and including the slash, but remove the database name
		rootDSN := baseDSN[:lastSlash+1]

		db, err := sql.Open("mysql", rootDSN)
		assert.NoError(t, err)
		defer func() {
			_ = db.Close()
		}()
		// Create the database
		_, err = db.ExecContext(context.Background(), "CREATE DATABASE IF NOT EXISTS "+dbName)
		assert.NoError(t, err)

		// Register cleanup to drop the database
		t.Cleanup(func() {
			db, err := sql.Open("mysql", rootDSN)
			assert.NoError(t, err)
			defer func() {
				_ = db.Close()
			}()
			_, err = db.ExecContext(context.Background(), "DROP DATABASE IF EXISTS "+dbName)
			assert.NoError(t, err)
		})
	}
	return dbName
}

// RunSQLInDatabase runs SQL in a specific database
func RunSQLInDatabase(t *testing.T, dbName, stmt string) {
	t.Helper()
	dsn := DSNForDatabase(dbName)
	db, err := sql.Open("mysql", dsn)
	assert.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	_, err = db.ExecContext(context.Background(), stmt)
	assert.NoError(t, err)
}

// OracleHost returns the source instance used by export tests, with
// the same env-or-default convention as DSN.
func OracleHost() string {
	host := os.Getenv("ORACLE_HOST")
	if host == "" {
		return "localhost:1521"
	}
	return host
}

func OracleService() string {
	return os.Getenv("ORACLE_SERVICE")
}

func OracleUser() string {
	return os.Getenv("ORACLE_USER")
}

func OraclePassword() string {
	return os.Getenv("ORACLE_PASSWORD")
}

// SkipIfNoOracle skips tests that need a live source instance. Unlike
// the target database, a source is not part of the default test
// runner, so these tests are opt-in.
func SkipIfNoOracle(t *testing.T) {
	t.Helper()
	if OracleService() == "" {
		t.Skip("set ORACLE_SERVICE, ORACLE_USER and ORACLE_PASSWORD to run source tests")
	}
}
