// Package table contains the source schema model: table and column
// metadata discovered from the Oracle catalog, and the runtime-typed
// cell values read from its cursors.
package table

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const columnsQuery = `SELECT column_name, data_type, data_precision, data_scale
	FROM user_tab_columns WHERE table_name = :1 ORDER BY column_id`

// Column describes one column of a source table. Pos mirrors the
// 1-based column position reported by the catalog; the order of
// TableInfo.Columns is fixed for the lifetime of an export.
type Column struct {
	Name      string
	Type      string // declared type name, e.g. NUMBER, VARCHAR2, BLOB
	Precision int    // -1 when the catalog reports none
	Scale     int    // -1 when the catalog reports none
	Pos       int
	Excluded  bool
}

// IsLOB returns true for large object columns, which are externalized
// to files instead of being inlined as literals.
func (c *Column) IsLOB() bool {
	switch baseType(c.Type) {
	case "BLOB", "CLOB", "NCLOB":
		return true
	}
	return false
}

// IsBinaryLOB distinguishes BLOB columns from character LOBs.
func (c *Column) IsBinaryLOB() bool {
	return baseType(c.Type) == "BLOB"
}

// IsInstant returns true for date and timestamp columns.
func (c *Column) IsInstant() bool {
	base := baseType(c.Type)
	return base == "DATE" || base == "TIMESTAMP"
}

// IsBoolLike returns true for single-digit, zero-scale numeric columns.
// These get an additive checksum instead of the CRC32 aggregate, which
// is unstable for 1-bit-width encodings on the target side.
func (c *Column) IsBoolLike() bool {
	return c.Precision == 1 && c.Scale == 0
}

// ChecksumEligible returns true if the column participates in the
// generated check suite. Timestamps are excluded because precision
// differs across engines; excluded columns are never exported at all.
func (c *Column) ChecksumEligible() bool {
	return !c.Excluded && !c.IsInstant()
}

// baseType strips width and qualifiers from a declared type name,
// e.g. "TIMESTAMP(6) WITH TIME ZONE" becomes "TIMESTAMP".
func baseType(declared string) string {
	t := strings.ToUpper(declared)
	if idx := strings.Index(t, "("); idx != -1 {
		t = t[:idx]
	}
	return strings.TrimSpace(t)
}

// TableInfo stores metadata about one source table.
type TableInfo struct {
	db         *sql.DB
	SchemaName string
	TableName  string
	QuotedName string // quoted for use in source queries
	Columns    []*Column
	Rows       int64 // set by UpdateRowCount
}

func NewTableInfo(db *sql.DB, schema, tableName string) *TableInfo {
	return &TableInfo{
		db:         db,
		SchemaName: schema,
		TableName:  tableName,
		QuotedName: `"` + tableName + `"`,
	}
}

// SetInfo fetches the column metadata from the catalog.
func (t *TableInfo) SetInfo(ctx context.Context) error {
	rows, err := t.db.QueryContext(ctx, columnsQuery, t.TableName)
	if err != nil {
		return err
	}
	defer rows.Close()

	pos := 0
	for rows.Next() {
		var (
			name, typ        string
			precision, scale sql.NullInt64
		)
		if err := rows.Scan(&name, &typ, &precision, &scale); err != nil {
			return err
		}
		pos++
		t.Columns = append(t.Columns, &Column{
			Name:      name,
			Type:      typ,
			Precision: nullableInt(precision),
			Scale:     nullableInt(scale),
			Pos:       pos,
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.TableName)
	}
	return nil
}

// UpdateRowCount runs a COUNT(*) against the source table. The result
// is recorded before any rows are streamed and becomes the expected
// value of the generated row-count check.
func (t *TableInfo) UpdateRowCount(ctx context.Context) error {
	return t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.QuotedName).Scan(&t.Rows)
}

// MarkExcludedColumns flags columns whose names appear in the
// exclusion list. Matching is case-insensitive.
func (t *TableInfo) MarkExcludedColumns(names []string) {
	for _, c := range t.Columns {
		for _, n := range names {
			if strings.EqualFold(c.Name, n) {
				c.Excluded = true
			}
		}
	}
}

// ExportColumns returns the ordered columns included in the export.
func (t *TableInfo) ExportColumns() []*Column {
	cols := make([]*Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Excluded {
			cols = append(cols, c)
		}
	}
	return cols
}

func nullableInt(v sql.NullInt64) int {
	if !v.Valid {
		return -1
	}
	return int(v.Int64)
}
