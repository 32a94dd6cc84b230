// Package checksum accumulates per-column checksums while rows stream
// out, and renders the verification script that replays the same
// aggregates against the target after import.
package checksum

import (
	"fmt"
	"hash/crc32"

	"github.com/block/ferry/pkg/dbconn/sqlescape"
	"github.com/block/ferry/pkg/lob"
	"github.com/block/ferry/pkg/table"
)

// colState tracks the running checksum for one exported column.
type colState struct {
	col *table.Column
	sum int64  // additive checksum, bool-like columns only
	crc uint32 // xor of per-cell crc32 values for everything else
}

// Accumulator folds cell values into per-column checksums as a table
// streams out. The check plan is fixed at construction time from the
// table's exported columns, so indexes passed to AddSum and Fold refer
// to positions within that set, not catalog positions.
type Accumulator struct {
	table *table.TableInfo
	rows  int64
	cols  []*colState
}

// NewAccumulator returns an accumulator for ti. The table's row count
// must already be populated: it is captured here, before streaming
// begins, so the rendered count check reflects the expected total even
// if rows are inserted in the source while the export runs.
func NewAccumulator(ti *table.TableInfo) *Accumulator {
	a := &Accumulator{table: ti, rows: ti.Rows}
	for _, col := range ti.ExportColumns() {
		a.cols = append(a.cols, &colState{col: col})
	}
	return a
}

// AddSum adds v to the additive checksum of the column at idx.
func (a *Accumulator) AddSum(idx int, v int64) {
	a.cols[idx].sum += v
}

// Fold xors crc into the running checksum of the column at idx.
// Xor is commutative, so the result is independent of row order.
func (a *Accumulator) Fold(idx int, crc uint32) {
	a.cols[idx].crc ^= crc
}

// FoldBytes checksums b and folds it into the column at idx.
// crc32.ChecksumIEEE uses the same polynomial as the CRC32() function
// on the target, so the replayed BIT_XOR aggregate matches.
func (a *Accumulator) FoldBytes(idx int, b []byte) {
	a.Fold(idx, crc32.ChecksumIEEE(b))
}

// RenderChecks returns one verification statement per check: the row
// count first, then one aggregate per eligible column, then one
// missing-file predicate per large-object column. Each statement
// returns a single row of (status, check_name, table_name) so the
// whole script can be run and eyeballed, or fed to ferry verify.
func (a *Accumulator) RenderChecks() []string {
	target := sqlescape.Identifier(a.table.TableName)
	label := sqlescape.EscapeString(target)

	checks := []string{fmt.Sprintf(
		"SELECT IF(COUNT(*) = %d, 'OK', 'MISMATCH') AS status, 'row count' AS check_name, '%s' AS table_name FROM %s",
		a.rows, label, target,
	)}
	for _, cs := range a.cols {
		if !cs.col.ChecksumEligible() {
			continue
		}
		name := sqlescape.Identifier(cs.col.Name)
		if cs.col.IsBoolLike() {
			// SUM over an all-NULL column is NULL, not 0, hence
			// the IFNULL wrapper.
			checks = append(checks, fmt.Sprintf(
				"SELECT IF(IFNULL(SUM(%s), 0) = %d, 'OK', 'MISMATCH') AS status, 'sum of %s' AS check_name, '%s' AS table_name FROM %s",
				name, cs.sum, sqlescape.EscapeString(name), label, target,
			))
			continue
		}
		checks = append(checks, fmt.Sprintf(
			"SELECT IF(BIT_XOR(CRC32(%s)) = %d, 'OK', 'MISMATCH') AS status, 'crc32 of %s' AS check_name, '%s' AS table_name FROM %s",
			name, cs.crc, sqlescape.EscapeString(name), label, target,
		))
	}
	for _, cs := range a.cols {
		if !cs.col.IsLOB() {
			continue
		}
		name := sqlescape.Identifier(cs.col.Name)
		checks = append(checks, fmt.Sprintf(
			"SELECT IF(COUNT(*) = 0, 'OK', 'MISSING FILE') AS status, 'lob files of %s' AS check_name, '%s' AS table_name FROM %s WHERE %s = '%s'",
			sqlescape.EscapeString(name), label, target, name, lob.MissingSentinel,
		))
	}
	return checks
}
