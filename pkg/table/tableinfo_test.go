package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnClassification(t *testing.T) {
	blob := &Column{Name: "PAYLOAD", Type: "BLOB"}
	assert.True(t, blob.IsLOB())
	assert.True(t, blob.IsBinaryLOB())
	assert.True(t, blob.ChecksumEligible())

	clob := &Column{Name: "NOTES", Type: "CLOB"}
	assert.True(t, clob.IsLOB())
	assert.False(t, clob.IsBinaryLOB())

	nclob := &Column{Name: "NOTES_N", Type: "NCLOB"}
	assert.True(t, nclob.IsLOB())

	text := &Column{Name: "NAME", Type: "VARCHAR2", Precision: -1, Scale: -1}
	assert.False(t, text.IsLOB())
	assert.False(t, text.IsInstant())
	assert.True(t, text.ChecksumEligible())

	date := &Column{Name: "CREATED", Type: "DATE"}
	assert.True(t, date.IsInstant())
	assert.False(t, date.ChecksumEligible())

	ts := &Column{Name: "UPDATED", Type: "TIMESTAMP(6)"}
	assert.True(t, ts.IsInstant())
	assert.False(t, ts.ChecksumEligible())

	tstz := &Column{Name: "UPDATED_TZ", Type: "TIMESTAMP(6) WITH TIME ZONE"}
	assert.True(t, tstz.IsInstant())
}

func TestColumnIsBoolLike(t *testing.T) {
	flag := &Column{Name: "ACTIVE", Type: "NUMBER", Precision: 1, Scale: 0}
	assert.True(t, flag.IsBoolLike())

	// Only exactly precision 1, scale 0 qualifies.
	assert.False(t, (&Column{Type: "NUMBER", Precision: 2, Scale: 0}).IsBoolLike())
	assert.False(t, (&Column{Type: "NUMBER", Precision: 1, Scale: 1}).IsBoolLike())
	assert.False(t, (&Column{Type: "NUMBER", Precision: -1, Scale: -1}).IsBoolLike())
	assert.False(t, (&Column{Type: "NUMBER", Precision: 10, Scale: 2}).IsBoolLike())
}

func TestExcludedColumnsNotEligible(t *testing.T) {
	col := &Column{Name: "SECRET", Type: "VARCHAR2", Excluded: true}
	assert.False(t, col.ChecksumEligible())
}

func TestBaseType(t *testing.T) {
	assert.Equal(t, "NUMBER", baseType("NUMBER"))
	assert.Equal(t, "VARCHAR2", baseType("VARCHAR2(255)"))
	assert.Equal(t, "TIMESTAMP", baseType("TIMESTAMP(6)"))
	assert.Equal(t, "TIMESTAMP", baseType("TIMESTAMP(6) WITH TIME ZONE"))
	assert.Equal(t, "NUMBER", baseType("number"))
}

func TestMarkExcludedColumns(t *testing.T) {
	ti := &TableInfo{
		TableName:  "CUSTOMERS",
		QuotedName: `"CUSTOMERS"`,
		Columns: []*Column{
			{Name: "ID", Type: "NUMBER", Pos: 1},
			{Name: "NAME", Type: "VARCHAR2", Pos: 2},
			{Name: "PASSWORD_HASH", Type: "VARCHAR2", Pos: 3},
		},
	}
	ti.MarkExcludedColumns([]string{"password_hash", "NOSUCHCOL"})
	assert.False(t, ti.Columns[0].Excluded)
	assert.False(t, ti.Columns[1].Excluded)
	assert.True(t, ti.Columns[2].Excluded)

	cols := ti.ExportColumns()
	assert.Len(t, cols, 2)
	assert.Equal(t, "ID", cols[0].Name)
	assert.Equal(t, "NAME", cols[1].Name)
}

func TestNewTableInfoQuoting(t *testing.T) {
	ti := NewTableInfo(nil, "APP", "ORDER_ITEMS")
	assert.Equal(t, `"ORDER_ITEMS"`, ti.QuotedName)
	assert.Equal(t, "APP", ti.SchemaName)
}
