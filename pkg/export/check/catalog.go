package check

import (
	"context"
	"fmt"
	"log/slog"
)

func init() {
	registerCheck("catalog", catalogCheck, ScopePreflight)
}

// catalogCheck confirms the column catalog is readable on the export
// connection. Being able to list tables is not enough: without column
// metadata no table can be exported.
func catalogCheck(ctx context.Context, r Resources, _ *slog.Logger) error {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_tab_columns WHERE ROWNUM <= 1").Scan(&n)
	if err != nil {
		return fmt.Errorf("could not read the column catalog: %w", err)
	}
	return nil
}
