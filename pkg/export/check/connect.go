package check

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/block/ferry/pkg/dbconn"
	"github.com/block/ferry/pkg/utils"
)

func init() {
	registerCheck("connect", connectCheck, ScopePreRun)
}

// connectCheck verifies the source is reachable and the session can
// read its own table catalog before the export starts any real work.
// This ensures that we first return an error like connection refused
// if the host is unreachable, rather than a confusing catalog error
// mid-export.
func connectCheck(ctx context.Context, r Resources, _ *slog.Logger) error {
	config := dbconn.NewConfig()
	config.Host = r.Host
	config.Service = r.Service
	config.Username = r.Username
	config.Password = r.Password
	db, err := dbconn.NewOracle(ctx, config)
	if err != nil {
		return err
	}
	defer utils.CloseAndLog(db)
	var tables int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_tables").Scan(&tables); err != nil {
		return fmt.Errorf("could not read the table catalog: %w", err)
	}
	return nil
}
