package export

import (
	"fmt"
	"strings"

	"github.com/block/ferry/pkg/checksum"
	"github.com/block/ferry/pkg/dbconn/sqlescape"
	"github.com/block/ferry/pkg/lob"
	"github.com/block/ferry/pkg/sink"
	"github.com/block/ferry/pkg/table"
	"github.com/shopspring/decimal"
)

// instantFormat renders dates and timestamps as full-precision civil
// time in UTC. The layout loads into DATETIME(6) and TIMESTAMP(6)
// columns alike.
const instantFormat = "2006-01-02 15:04:05.000000"

// encoder renders source cells as target SQL literals. Rendering has
// two side effects: each value is folded into the table's checksum
// accumulator, and large objects are spilled to the lob store with the
// returned literal referencing the spilled file.
type encoder struct {
	table    *table.TableInfo
	cols     []*table.Column
	acc      *checksum.Accumulator
	lobs     sink.Store
	streamer *lob.Streamer
	lobDir   string // directory for this table's lob files, the lowered table name
	blobSeq  int
	clobSeq  int
	lobBytes int64
}

func newEncoder(ti *table.TableInfo, acc *checksum.Accumulator, lobs sink.Store) *encoder {
	return &encoder{
		table:    ti,
		cols:     ti.ExportColumns(),
		acc:      acc,
		lobs:     lobs,
		streamer: lob.NewStreamer(),
		lobDir:   strings.ToLower(ti.TableName),
	}
}

// encodeRow renders one cursor row as the parenthesized VALUES tuple of
// an INSERT statement. cells must be in export column order.
func (e *encoder) encodeRow(cells []table.Cell) (string, error) {
	vals := make([]string, len(cells))
	for i, cell := range cells {
		v, err := e.encodeCell(cell, i)
		if err != nil {
			return "", err
		}
		vals[i] = v
	}
	return "(" + strings.Join(vals, ", ") + ")", nil
}

func (e *encoder) encodeCell(cell table.Cell, idx int) (string, error) {
	switch cell.Kind {
	case table.NullCell:
		return "NULL", nil
	case table.DecimalCell:
		d := cell.Decimal()
		rendered := renderDecimal(d)
		if e.cols[idx].IsBoolLike() {
			e.acc.AddSum(idx, d.IntPart())
		} else {
			e.acc.FoldBytes(idx, []byte(rendered))
		}
		return rendered, nil
	case table.TextCell:
		s := cell.Text()
		// The checksum folds the original bytes, not the escaped form,
		// so it matches what CRC32() sees in the loaded column.
		e.acc.FoldBytes(idx, []byte(s))
		return "'" + sqlescape.EscapeString(s) + "'", nil
	case table.InstantCell:
		return "'" + cell.Instant().Format(instantFormat) + "'", nil
	case table.BinaryCell:
		return e.encodeLOB(cell, idx, lob.BinaryExt)
	case table.CharacterCell:
		return e.encodeLOB(cell, idx, lob.CharacterExt)
	case table.UnrecognizedCell:
		return "", fmt.Errorf("unsupported value of type %s in column %s.%s",
			cell.TypeName(), strings.ToLower(e.table.TableName), strings.ToLower(e.cols[idx].Name))
	}
	return "", fmt.Errorf("unknown cell kind %d in column %s", cell.Kind, e.cols[idx].Name)
}

// encodeLOB spills the object to the lob store and returns a literal
// that loads the spilled file at import time. A file that has gone
// missing by then loads as the sentinel value, which the generated
// check script searches for, rather than failing the import.
func (e *encoder) encodeLOB(cell table.Cell, idx int, ext string) (string, error) {
	var seq int
	if ext == lob.BinaryExt {
		seq = e.blobSeq
		e.blobSeq++
	} else {
		seq = e.clobSeq
		e.clobSeq++
	}
	name := fmt.Sprintf("%s/%d%s", e.lobDir, seq, ext)
	entry, err := e.lobs.Create(name)
	if err != nil {
		return "", err
	}
	written, crc, err := e.streamer.Stream(entry, cell.Stream())
	if err != nil {
		return "", fmt.Errorf("could not write lob file %s: %w", name, err)
	}
	e.lobBytes += written
	e.acc.Fold(idx, crc)
	return fmt.Sprintf("IFNULL(LOAD_FILE(CONCAT(@lob_dir, '/%s')), '%s')",
		sqlescape.EscapeString(name), lob.MissingSentinel), nil
}

// renderDecimal formats d as a plain decimal string preserving the
// stored scale. decimal.String trims trailing zeros (10.50 renders as
// 10.5), so negative exponents go through StringFixed instead: the
// rendered text must equal what CRC32() reads back from the column.
func renderDecimal(d decimal.Decimal) string {
	if d.Exponent() < 0 {
		return d.StringFixed(-d.Exponent())
	}
	return d.String()
}
