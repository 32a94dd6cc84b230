package export

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/block/ferry/pkg/dbconn"
	"github.com/block/ferry/pkg/dbconn/sqlescape"
	"github.com/block/ferry/pkg/export/check"
	"github.com/block/ferry/pkg/metrics"
	"github.com/block/ferry/pkg/sink"
	"github.com/block/ferry/pkg/status"
	"github.com/block/ferry/pkg/table"
)

type Runner struct {
	export *Export
	conf   *confParams

	db       *sql.DB
	dbConfig *dbconn.Config

	scripts sink.Store
	lobs    sink.Store

	// tables holds one exporter per included table, in discovery order.
	// The slice is fixed before the workers start.
	tables     []*tableExporter
	tablesDone atomic.Int64

	status    status.State // must use atomic helpers to change.
	startTime time.Time

	// Attached logger
	logger     *slog.Logger
	cancelFunc context.CancelFunc

	// MetricsSink
	metricsSink metrics.Sink
}

var _ status.Task = (*Runner)(nil)

func NewRunner(e *Export) (*Runner, error) {
	conf, err := e.normalizeOptions()
	if err != nil {
		return nil, err
	}
	return &Runner{
		export:      e,
		conf:        conf,
		logger:      slog.Default(),
		metricsSink: &metrics.NoopSink{},
	}, nil
}

func (r *Runner) SetMetricsSink(sink metrics.Sink) {
	r.metricsSink = sink
}

func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

func (r *Runner) Run(ctx context.Context) error {
	ctx, r.cancelFunc = context.WithCancel(ctx)
	defer r.cancelFunc()
	r.startTime = time.Now()
	r.logger.Info("Starting ferry export",
		"host", r.export.Host,
		"service", r.export.Service,
		"threads", r.export.Threads,
		"format", r.export.Format,
	)
	if r.export.Format == "zip" && r.export.Threads > 1 {
		// A zip archive can only have one entry open at a time.
		r.logger.Warn("zip output limits the export to a single thread",
			"requested-threads", r.export.Threads,
		)
		r.export.Threads = 1
	}

	// Create the source connection. It will be closed in r.Close().
	// Workers hold one connection each while streaming rows; +1 leaves
	// room for the catalog queries.
	var err error
	r.dbConfig = dbconn.NewConfig()
	r.dbConfig.Host = r.export.Host
	r.dbConfig.Service = r.export.Service
	r.dbConfig.Username = r.export.Username
	r.dbConfig.Password = r.export.Password
	r.dbConfig.MaxOpenConnections = r.export.Threads + 1
	r.db, err = dbconn.NewOracle(ctx, r.dbConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to source database (host: %s service: %s): %w",
			r.export.Host, r.export.Service, err)
	}

	if err := r.runChecks(ctx, check.ScopePreflight); err != nil {
		return err
	}
	if err := r.openStores(); err != nil {
		return err
	}

	r.status.Set(status.DiscoverTables)
	tableNames, err := r.discoverTables(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("discovered tables", "count", len(tableNames))
	r.tables = make([]*tableExporter, 0, len(tableNames))
	for _, name := range tableNames {
		ti := table.NewTableInfo(r.db, r.export.Username, name)
		r.tables = append(r.tables,
			newTableExporter(r.db, ti, r.scripts, r.lobs, r.conf.GetExcludeColumns(name), r.logger))
	}

	// Start the status reporting goroutine.
	status.WatchTask(ctx, r, r.logger)

	r.status.Set(status.ExportRows)
	g, errGrpCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.export.Threads)
	for _, te := range r.tables {
		te := te
		g.Go(func() error {
			started := time.Now()
			if err := te.Run(errGrpCtx); err != nil {
				return err
			}
			r.tablesDone.Add(1)
			r.logger.Info("table exported",
				"table", te.table.TableName,
				"rows", te.rows,
				"lob-bytes", te.lobBytes,
				"duration", time.Since(started).Round(time.Millisecond),
			)
			if err := r.sendMetrics(errGrpCtx, te, time.Since(started)); err != nil {
				// we don't want to stop the export if metrics sending fails, log and continue
				r.logger.Error("error sending metrics from export", "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.status.Set(status.WriteScripts)
	if err := r.writeScripts(); err != nil {
		return err
	}
	if err := r.closeStores(); err != nil {
		return err
	}
	r.logger.Info("export complete",
		"tables", len(r.tables),
		"total-time", time.Since(r.startTime).Round(time.Second),
	)
	return nil
}

func (r *Runner) runChecks(ctx context.Context, scope check.ScopeFlag) error {
	return check.RunChecks(ctx, check.Resources{
		DB:        r.db,
		Threads:   r.export.Threads,
		Format:    r.export.Format,
		OutputDir: r.export.OutputDir,
		LobDir:    r.export.LobDir,
		// For the pre-run checks we don't have a DB connection yet.
		// Instead we check the credentials provided.
		Host:     r.export.Host,
		Service:  r.export.Service,
		Username: r.export.Username,
		Password: r.export.Password,
	}, r.logger, scope)
}

// discoverTables lists the schema's tables in lexicographic order,
// dropping index-organized overflow segments and configured exclusions.
func (r *Runner) discoverTables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT table_name FROM user_tables ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("could not list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if strings.HasPrefix(name, "SYS_IOT_OVER_") {
			continue
		}
		if r.excludedTable(name) {
			r.logger.Info("skipping excluded table", "table", name)
			continue
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *Runner) excludedTable(name string) bool {
	for _, exclude := range r.export.ExcludeTables {
		if strings.EqualFold(exclude, name) {
			return true
		}
	}
	return false
}

func (r *Runner) openStores() error {
	if r.export.Format == "zip" {
		scripts, err := sink.NewZipStore(filepath.Join(r.export.OutputDir, "scripts.zip"))
		if err != nil {
			return err
		}
		lobs, err := sink.NewZipStore(filepath.Join(r.export.OutputDir, "lobs.zip"))
		if err != nil {
			_ = scripts.Close()
			return err
		}
		r.scripts, r.lobs = scripts, lobs
		return nil
	}
	store := sink.NewDirStore(r.export.OutputDir)
	r.scripts, r.lobs = store, store
	return nil
}

// closeStores finalizes the output containers. It is safe to call more
// than once; Close() also calls it.
func (r *Runner) closeStores() error {
	if r.scripts != nil {
		if err := r.scripts.Close(); err != nil {
			return err
		}
		r.scripts = nil
	}
	if r.lobs != nil {
		if err := r.lobs.Close(); err != nil {
			return err
		}
		r.lobs = nil
	}
	return nil
}

// writeScripts emits the truncate, check and master scripts once all
// table workers have completed, in discovery order.
func (r *Runner) writeScripts() error {
	truncates := make([]string, 0, len(r.tables))
	for _, te := range r.tables {
		truncates = append(truncates, fmt.Sprintf("TRUNCATE TABLE %s;", sqlescape.Identifier(te.table.TableName)))
	}
	if err := r.writeScript("truncate_all.sql", truncates); err != nil {
		return err
	}

	var checks []string
	for _, te := range r.tables {
		for _, stmt := range te.checks {
			checks = append(checks, stmt+";")
		}
	}
	if err := r.writeScript("check_all.sql", checks); err != nil {
		return err
	}
	return r.writeMasterScript()
}

func (r *Runner) writeMasterScript() error {
	lines := []string{
		fmt.Sprintf("-- ferry export of %s@%s/%s", r.export.Username, r.export.Host, r.export.Service),
		fmt.Sprintf("-- generated %s run %s", time.Now().UTC().Format(time.RFC3339), uuid.New().String()),
		fmt.Sprintf("SET @lob_dir = '%s';", sqlescape.EscapeString(r.export.LobDir)),
		"SET FOREIGN_KEY_CHECKS=0;",
		"source truncate_all.sql",
	}
	for _, te := range r.tables {
		if te.table.Rows == 0 {
			continue
		}
		lines = append(lines, "source "+strings.ToLower(te.table.TableName)+".sql")
	}
	lines = append(lines,
		"source check_all.sql",
		"SET FOREIGN_KEY_CHECKS=1;",
	)
	return r.writeScript("import_all.sql", lines)
}

func (r *Runner) writeScript(name string, lines []string) error {
	f, err := r.scripts.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (r *Runner) sendMetrics(ctx context.Context, te *tableExporter, exportTime time.Duration) error {
	m := &metrics.Metrics{
		Values: []metrics.MetricValue{
			{
				Name:  metrics.TableExportTimeMetricName,
				Type:  metrics.GAUGE,
				Value: float64(exportTime.Milliseconds()), // in milliseconds
			},
			{
				Name:  metrics.TableRowsExportedMetricName,
				Type:  metrics.COUNTER,
				Value: float64(te.rows),
			},
			{
				Name:  metrics.TableLobBytesWrittenMetricName,
				Type:  metrics.COUNTER,
				Value: float64(te.lobBytes),
			},
		},
	}

	contextWithTimeout, cancel := context.WithTimeout(ctx, metrics.SinkTimeout)
	defer cancel()

	return r.metricsSink.Send(contextWithTimeout, m)
}

func (r *Runner) Progress() status.Progress {
	var summary string
	switch r.status.Get() { //nolint: exhaustive
	case status.DiscoverTables:
		summary = "Discovering tables"
	case status.ExportRows:
		summary = fmt.Sprintf("%d/%d tables %s",
			r.tablesDone.Load(),
			len(r.tables),
			r.status.Get().String(),
		)
	case status.WriteScripts:
		summary = "Writing scripts"
	}
	return status.Progress{
		CurrentState: r.status.Get(),
		Summary:      summary,
	}
}

func (r *Runner) Status() string {
	state := r.status.Get()
	if state > status.WriteScripts {
		return ""
	}
	return fmt.Sprintf("export status: state=%s tables-done=%d/%d total-time=%s conns-in-use=%d",
		state.String(),
		r.tablesDone.Load(),
		len(r.tables),
		time.Since(r.startTime).Round(time.Second),
		r.db.Stats().InUse,
	)
}

func (r *Runner) Close() error {
	r.status.Set(status.Close)
	if err := r.closeStores(); err != nil {
		return err
	}
	if r.db != nil {
		err := r.db.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) Cancel() {
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
}
