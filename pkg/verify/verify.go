// Package verify executes a generated check script against an imported
// target database and reports each assertion's result.
package verify

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/block/ferry/pkg/dbconn"
	"github.com/block/ferry/pkg/utils"
)

type Verify struct {
	TargetDSN string `name:"target-dsn" help:"Target DSN, e.g. user:pass@tcp(host:3306)/schema" required:""`
	Script    string `name:"script" help:"Path to the generated check script" optional:"" default:"check_all.sql"`
}

func (v *Verify) Run() error {
	return v.run(context.TODO(), slog.Default())
}

func (v *Verify) run(ctx context.Context, logger *slog.Logger) error {
	stmts, err := readStatements(v.Script)
	if err != nil {
		return err
	}
	if len(stmts) == 0 {
		return fmt.Errorf("no check statements found in %s", v.Script)
	}
	db, err := dbconn.NewMySQL(ctx, v.TargetDSN)
	if err != nil {
		return err
	}
	defer utils.CloseAndLog(db)

	failed := 0
	for _, stmt := range stmts {
		var checkStatus, checkName, tableName string
		if err := db.QueryRowContext(ctx, stmt).Scan(&checkStatus, &checkName, &tableName); err != nil {
			return fmt.Errorf("could not run check %q: %w", stmt, err)
		}
		if checkStatus == "OK" {
			logger.Info("check passed", "table", tableName, "check", checkName)
			continue
		}
		failed++
		logger.Error("check failed", "table", tableName, "check", checkName, "status", checkStatus)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(stmts))
	}
	logger.Info("all checks passed", "count", len(stmts))
	return nil
}

// readStatements loads a one-statement-per-line check script, skipping
// blank lines and comments.
func readStatements(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.CloseAndLog(f)

	var stmts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		stmts = append(stmts, strings.TrimSuffix(line, ";"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stmts, nil
}
