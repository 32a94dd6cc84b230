package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

func init() {
	registerCheck("params", paramsCheck, ScopePreRun)
}

// paramsCheck validates the basic export parameters before any
// connection is attempted.
func paramsCheck(_ context.Context, r Resources, _ *slog.Logger) error {
	if r.Threads < 1 {
		return errors.New("threads must be at least 1")
	}
	if r.Format != "dir" && r.Format != "zip" {
		return fmt.Errorf("unknown output format %q", r.Format)
	}
	if r.Service == "" {
		return errors.New("service name is required")
	}
	if r.Username == "" {
		return errors.New("username is required")
	}
	return nil
}
