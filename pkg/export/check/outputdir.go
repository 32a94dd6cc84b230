package check

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

func init() {
	registerCheck("outputdir", outputDirCheck, ScopePreRun)
}

// outputDirCheck ensures the output directory exists and is empty.
// Refusing to create it catches mistyped paths, and refusing to write
// into a non-empty directory prevents mixing the artifacts of two runs.
func outputDirCheck(_ context.Context, r Resources, _ *slog.Logger) error {
	info, err := os.Stat(r.OutputDir)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("output directory %s does not exist", r.OutputDir)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", r.OutputDir)
	}
	entries, err := os.ReadDir(r.OutputDir)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("output directory %s is not empty", r.OutputDir)
	}
	return nil
}
