package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// NewMySQL connects to the target database so the generated check
// script can be replayed against it. The DSN is in go-sql-driver
// format. Session options are appended so the checks observe the same
// behavior the load scripts assume.
func NewMySQL(ctx context.Context, inputDSN string) (*sql.DB, error) {
	if _, err := mysql.ParseDSN(inputDSN); err != nil {
		return nil, fmt.Errorf("invalid target DSN: %w", err)
	}
	ops := []string{
		// The scripts are loaded with the server's default SQL mode
		// unset, so the checks run the same way.
		fmt.Sprintf("%s=%s", "sql_mode", url.QueryEscape(`""`)),
		fmt.Sprintf("%s=%s", "time_zone", url.QueryEscape(`"+00:00"`)),
		fmt.Sprintf("%s=%s", "allowNativePasswords", "true"),
	}
	separator := "?"
	if strings.Contains(inputDSN, "?") {
		separator = "&"
	}
	db, err := sql.Open("mysql", fmt.Sprintf("%s%s%s", inputDSN, separator, strings.Join(ops, "&")))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	db.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}
