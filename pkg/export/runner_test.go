package export

import (
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/block/ferry/pkg/sink"
	"github.com/block/ferry/pkg/status"
	"github.com/block/ferry/pkg/table"
	"github.com/block/ferry/pkg/testutils"
	"github.com/block/ferry/pkg/utils"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunnerMissingOutputDir(t *testing.T) {
	_, err := NewRunner(&Export{})
	assert.Error(t, err)
	assert.ErrorContains(t, err, "output-dir is required")
}

func TestBadSourceCredentials(t *testing.T) {
	export := &Export{
		Host:      "127.0.0.1:9999",
		Service:   "XEPDB1",
		Username:  "nobody",
		Password:  "wrong",
		OutputDir: t.TempDir(),
	}
	err := export.Run()
	assert.Error(t, err)
	assert.ErrorContains(t, err, "could not connect to 127.0.0.1:9999")
}

func scriptedRunner(outDir string) *Runner {
	r := &Runner{
		export: &Export{
			Host:     "localhost:1521",
			Service:  "XEPDB1",
			Username: "app",
			LobDir:   "/var/lib/mysql-files",
		},
		logger: slog.Default(),
	}
	r.scripts = sink.NewDirStore(outDir)
	r.tables = []*tableExporter{
		{
			table:  &table.TableInfo{TableName: "CUSTOMERS", Rows: 2},
			checks: []string{"SELECT 1", "SELECT 2"},
		},
		{
			table: &table.TableInfo{TableName: "ORDERS", Rows: 0},
		},
	}
	return r
}

func TestWriteScripts(t *testing.T) {
	outDir := t.TempDir()
	r := scriptedRunner(outDir)
	require.NoError(t, r.writeScripts())

	truncates, err := os.ReadFile(filepath.Join(outDir, "truncate_all.sql"))
	require.NoError(t, err)
	assert.Equal(t, "TRUNCATE TABLE customers;\nTRUNCATE TABLE orders;\n", string(truncates))

	checks, err := os.ReadFile(filepath.Join(outDir, "check_all.sql"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;\nSELECT 2;\n", string(checks))

	master, err := os.ReadFile(filepath.Join(outDir, "import_all.sql"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(master), "\n"), "\n")
	require.Len(t, lines, 8)
	assert.True(t, strings.HasPrefix(lines[0], "-- ferry export of app@localhost:1521/XEPDB1"))
	assert.True(t, strings.HasPrefix(lines[1], "-- generated "))
	assert.Equal(t, "SET @lob_dir = '/var/lib/mysql-files';", lines[2])
	assert.Equal(t, "SET FOREIGN_KEY_CHECKS=0;", lines[3])
	assert.Equal(t, "source truncate_all.sql", lines[4])
	// The empty orders table gets no source line.
	assert.Equal(t, "source customers.sql", lines[5])
	assert.Equal(t, "source check_all.sql", lines[6])
	assert.Equal(t, "SET FOREIGN_KEY_CHECKS=1;", lines[7])
}

func TestWriteScriptsZip(t *testing.T) {
	outDir := t.TempDir()
	r := scriptedRunner(outDir)
	r.export.OutputDir = outDir
	r.export.Format = "zip"
	r.scripts = nil
	require.NoError(t, r.openStores())
	require.NoError(t, r.writeScripts())
	require.NoError(t, r.closeStores())
	// closeStores is also called by Close; a second call must not fail.
	require.NoError(t, r.closeStores())

	zr, err := zip.OpenReader(filepath.Join(outDir, "scripts.zip"))
	require.NoError(t, err)
	defer utils.CloseAndLog(zr)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"truncate_all.sql", "check_all.sql", "import_all.sql"}, names)

	lr, err := zip.OpenReader(filepath.Join(outDir, "lobs.zip"))
	require.NoError(t, err)
	defer utils.CloseAndLog(lr)
	assert.Empty(t, lr.File)
}

func TestRunnerProgress(t *testing.T) {
	r := &Runner{export: &Export{}, logger: slog.Default()}
	assert.Equal(t, status.Initial, r.Progress().CurrentState)

	r.tables = make([]*tableExporter, 5)
	r.status.Set(status.ExportRows)
	r.tablesDone.Store(2)
	p := r.Progress()
	assert.Equal(t, status.ExportRows, p.CurrentState)
	assert.Equal(t, "2/5 tables exportRows", p.Summary)
}

func TestRunnerStatusString(t *testing.T) {
	db, err := sql.Open("mysql", testutils.DSN())
	require.NoError(t, err)
	defer utils.CloseAndLog(db)

	r := &Runner{export: &Export{}, logger: slog.Default()}
	r.db = db
	r.startTime = time.Now()
	r.tables = make([]*tableExporter, 5)
	r.status.Set(status.ExportRows)
	r.tablesDone.Store(2)

	s := r.Status()
	assert.Contains(t, s, "state=exportRows")
	assert.Contains(t, s, "tables-done=2/5")

	r.status.Set(status.Close)
	assert.Empty(t, r.Status())
}

func TestExportE2E(t *testing.T) {
	db := oracleTestDB(t)
	for _, name := range []string{"FERRY_E2E_A", "FERRY_E2E_B", "FERRY_E2E_SKIP"} {
		dropOracleTable(db, name)
	}
	runOracleSQL(t, db,
		`CREATE TABLE FERRY_E2E_A (ID NUMBER(10,0), NAME VARCHAR2(50))`,
		`INSERT INTO FERRY_E2E_A VALUES (1, 'alpha')`,
		`INSERT INTO FERRY_E2E_A VALUES (2, 'beta')`,
		`CREATE TABLE FERRY_E2E_B (ID NUMBER(10,0))`,
		`CREATE TABLE FERRY_E2E_SKIP (ID NUMBER(10,0))`,
	)
	t.Cleanup(func() {
		for _, name := range []string{"FERRY_E2E_A", "FERRY_E2E_B", "FERRY_E2E_SKIP"} {
			dropOracleTable(db, name)
		}
	})

	outDir := t.TempDir()
	export := &Export{
		Host:          testutils.OracleHost(),
		Service:       testutils.OracleService(),
		Username:      testutils.OracleUser(),
		Password:      testutils.OraclePassword(),
		OutputDir:     outDir,
		Threads:       2,
		LobDir:        "/var/lib/mysql-files",
		ExcludeTables: []string{"ferry_e2e_skip"},
	}
	require.NoError(t, export.Run())

	master, err := os.ReadFile(filepath.Join(outDir, "import_all.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(master), "source ferry_e2e_a.sql")
	assert.NotContains(t, string(master), "source ferry_e2e_b.sql")
	assert.NotContains(t, string(master), "ferry_e2e_skip")

	truncates, err := os.ReadFile(filepath.Join(outDir, "truncate_all.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(truncates), "TRUNCATE TABLE ferry_e2e_a;")
	assert.Contains(t, string(truncates), "TRUNCATE TABLE ferry_e2e_b;")
	assert.NotContains(t, string(truncates), "ferry_e2e_skip")

	script, err := os.ReadFile(filepath.Join(outDir, "ferry_e2e_a.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(script), "INSERT INTO ferry_e2e_a (id, name) VALUES (1, 'alpha');")

	checks, err := os.ReadFile(filepath.Join(outDir, "check_all.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(checks), "'ferry_e2e_a' AS table_name")
	assert.NotContains(t, string(checks), "ferry_e2e_b")

	_, err = os.Stat(filepath.Join(outDir, "ferry_e2e_b.sql"))
	assert.True(t, os.IsNotExist(err))
}

func TestExportE2EZip(t *testing.T) {
	db := oracleTestDB(t)
	dropOracleTable(db, "FERRY_ZIPTEST")
	runOracleSQL(t, db,
		`CREATE TABLE FERRY_ZIPTEST (ID NUMBER(10,0), DOC CLOB)`,
		`INSERT INTO FERRY_ZIPTEST VALUES (1, 'zipped doc')`,
	)
	t.Cleanup(func() { dropOracleTable(db, "FERRY_ZIPTEST") })

	outDir := t.TempDir()
	export := &Export{
		Host:      testutils.OracleHost(),
		Service:   testutils.OracleService(),
		Username:  testutils.OracleUser(),
		Password:  testutils.OraclePassword(),
		OutputDir: outDir,
		Format:    "zip",
		Threads:   4,
		LobDir:    "/var/lib/mysql-files",
	}
	require.NoError(t, export.Run())
	assert.Equal(t, 1, export.Threads) // clamped for zip output

	zr, err := zip.OpenReader(filepath.Join(outDir, "scripts.zip"))
	require.NoError(t, err)
	defer utils.CloseAndLog(zr)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "import_all.sql")
	assert.Contains(t, names, "ferry_ziptest.sql")

	lr, err := zip.OpenReader(filepath.Join(outDir, "lobs.zip"))
	require.NoError(t, err)
	defer utils.CloseAndLog(lr)
	var doc string
	for _, f := range lr.File {
		if f.Name != "ferry_ziptest/0.clob" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		doc = string(b)
	}
	assert.Equal(t, "zipped doc", doc)
}
