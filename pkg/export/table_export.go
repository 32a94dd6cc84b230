package export

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/block/ferry/pkg/checksum"
	"github.com/block/ferry/pkg/dbconn/sqlescape"
	"github.com/block/ferry/pkg/sink"
	"github.com/block/ferry/pkg/table"
)

// tableExporter drives the export of one table through a strictly
// linear pipeline: discover columns, count rows, stream the cursor
// through the literal encoder into the insert script, then render the
// check statements from the accumulated checksums. Empty tables stop
// after the count: they produce no insert script and no checks.
type tableExporter struct {
	db             *sql.DB
	table          *table.TableInfo
	scripts        sink.Store
	lobs           sink.Store
	excludeColumns []string
	logger         *slog.Logger

	// populated by Run, read by the runner after the worker completes
	checks   []string
	rows     int64
	lobBytes int64
}

func newTableExporter(db *sql.DB, ti *table.TableInfo, scripts, lobs sink.Store, excludeColumns []string, logger *slog.Logger) *tableExporter {
	return &tableExporter{
		db:             db,
		table:          ti,
		scripts:        scripts,
		lobs:           lobs,
		excludeColumns: excludeColumns,
		logger:         logger,
	}
}

func (t *tableExporter) Run(ctx context.Context) error {
	if err := t.table.SetInfo(ctx); err != nil {
		return fmt.Errorf("could not read columns of %s: %w", t.table.TableName, err)
	}
	t.table.MarkExcludedColumns(t.excludeColumns)
	if len(t.table.ExportColumns()) == 0 {
		return fmt.Errorf("table %s has no exportable columns", t.table.TableName)
	}
	if err := t.table.UpdateRowCount(ctx); err != nil {
		return fmt.Errorf("could not count rows of %s: %w", t.table.TableName, err)
	}
	if t.table.Rows == 0 {
		t.logger.Info("table is empty, skipping insert script", "table", t.table.TableName)
		return nil
	}
	return t.exportRows(ctx)
}

func (t *tableExporter) exportRows(ctx context.Context) error {
	acc := checksum.NewAccumulator(t.table)
	enc := newEncoder(t.table, acc, t.lobs)

	script, err := t.scripts.Create(strings.ToLower(t.table.TableName) + ".sql")
	if err != nil {
		return err
	}
	if err := t.streamRows(ctx, script, enc); err != nil {
		_ = script.Close()
		return err
	}
	if err := script.Close(); err != nil {
		return err
	}
	t.checks = acc.RenderChecks()
	t.lobBytes = enc.lobBytes
	return nil
}

// streamRows runs the source cursor to completion, writing one INSERT
// statement per row.
func (t *tableExporter) streamRows(ctx context.Context, script io.Writer, enc *encoder) error {
	cols := t.table.ExportColumns()
	target := sqlescape.Identifier(t.table.TableName)
	names := make([]string, len(cols))
	sourceNames := make([]string, len(cols))
	for i, c := range cols {
		names[i] = sqlescape.Identifier(c.Name)
		sourceNames[i] = `"` + c.Name + `"`
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", target, strings.Join(names, ", "))

	w := bufio.NewWriter(script)
	if _, err := fmt.Fprintf(w, "SELECT 'Loading %s' AS INFO;\n", sqlescape.EscapeString(target)); err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(sourceNames, ", "), t.table.QuotedName)
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("could not read rows of %s: %w", t.table.TableName, err)
	}
	defer rows.Close()

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	cells := make([]table.Cell, len(cols))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("could not scan row of %s: %w", t.table.TableName, err)
		}
		for i, v := range values {
			cell, err := table.NewCellFromValue(v, cols[i])
			if err != nil {
				return err
			}
			cells[i] = cell
		}
		tuple, err := enc.encodeRow(cells)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%s;\n", prefix, tuple); err != nil {
			return err
		}
		t.rows++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("could not read rows of %s: %w", t.table.TableName, err)
	}
	return w.Flush()
}
