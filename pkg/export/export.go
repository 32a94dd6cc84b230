// Package export contains the logic for exporting a schema's data as
// a replayable set of target load scripts.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/block/ferry/pkg/export/check"
	"github.com/block/ferry/pkg/metrics"
)

type Export struct {
	Host          string   `name:"host" help:"Source hostname" optional:"" default:"localhost:1521"`
	Service       string   `name:"service" help:"Source service name" optional:""`
	Username      string   `name:"username" help:"Source username" optional:""`
	Password      string   `name:"password" help:"Source password" optional:""`
	OutputDir     string   `name:"output-dir" help:"Directory the scripts and large-object files are written to" required:""`
	Format        string   `name:"format" help:"Output container: dir (plain files) or zip (scripts.zip plus lobs.zip)" optional:"" default:"dir"`
	Threads       int      `name:"threads" help:"Number of tables to export concurrently" optional:"" default:"1"`
	LobDir        string   `name:"lob-dir" help:"Path prefix the target server reads large-object files from" optional:"" default:"/var/lib/mysql-files"`
	ExcludeTables []string `name:"exclude-tables" help:"Tables to skip, case insensitive" optional:""`
	Config        string   `name:"config" help:"Path to a my.cnf style config file with [client] credentials and [export] exclusions" optional:""`
	ReportMetrics bool     `name:"report-metrics" help:"Log per-table export metrics" optional:"" default:"false"`
}

func (e *Export) Run() error {
	export, err := NewRunner(e)
	if err != nil {
		return err
	}
	defer export.Close()
	if e.ReportMetrics {
		export.SetMetricsSink(metrics.NewLogSink(slog.Default()))
	}
	if err := export.runChecks(context.TODO(), check.ScopePreRun); err != nil {
		return err
	}
	if err := export.Run(context.TODO()); err != nil {
		return err
	}
	return nil
}

// normalizeOptions does some validation and sets defaults, merging in
// values from the optional config file. Explicit flags win over the
// config file, which wins over built-in defaults.
func (e *Export) normalizeOptions() (*confParams, error) {
	conf, err := newConfParams(e.Config)
	if err != nil {
		return nil, err
	}
	if e.Threads == 0 {
		e.Threads = 1
	}
	if e.Format == "" {
		e.Format = "dir"
	}
	if e.Host == "" || e.Host == defaultHost {
		e.Host = conf.GetHost()
	}
	if !strings.Contains(e.Host, ":") {
		e.Host = fmt.Sprintf("%s:%d", e.Host, 1521)
	}
	if e.Service == "" {
		e.Service = conf.GetService()
	}
	if e.Username == "" {
		e.Username = conf.GetUser()
	}
	if e.Password == "" {
		e.Password = conf.GetPassword()
	}
	if e.OutputDir == "" {
		return nil, errors.New("output-dir is required")
	}
	e.ExcludeTables = append(e.ExcludeTables, conf.GetExcludeTables()...)
	return conf, nil
}
