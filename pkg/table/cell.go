package table

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	go_ora "github.com/sijms/go-ora/v2"
)

// CellKind enumerates the runtime kinds a source cell can take. The
// set is closed so the literal encoder can be exhaustive over it.
type CellKind int

const (
	NullCell CellKind = iota
	DecimalCell
	BinaryCell
	CharacterCell
	TextCell
	InstantCell
	UnrecognizedCell
)

func (k CellKind) String() string {
	switch k {
	case NullCell:
		return "null"
	case DecimalCell:
		return "decimal"
	case BinaryCell:
		return "binary"
	case CharacterCell:
		return "character"
	case TextCell:
		return "text"
	case InstantCell:
		return "instant"
	case UnrecognizedCell:
		return "unrecognized"
	}
	return "unknown"
}

// Cell is the value of one (row, column) pair as read from the source
// cursor. Val holds a decimal.Decimal, string, io.Reader or time.Time
// depending on Kind. For UnrecognizedCell it holds the runtime type
// name of the driver value so the failure can be reported precisely.
type Cell struct {
	Val  any
	Kind CellKind
}

func NewNullCell() Cell {
	return Cell{Kind: NullCell}
}

func NewDecimalCell(d decimal.Decimal) Cell {
	return Cell{Val: d, Kind: DecimalCell}
}

func NewTextCell(s string) Cell {
	return Cell{Val: s, Kind: TextCell}
}

// NewInstantCell normalizes the instant to UTC. Both source shapes
// (time.Time and go_ora.TimeStamp) funnel through here so there is a
// single conversion path into the output format.
func NewInstantCell(t time.Time) Cell {
	return Cell{Val: t.UTC(), Kind: InstantCell}
}

func NewBinaryCell(r io.Reader) Cell {
	return Cell{Val: r, Kind: BinaryCell}
}

func NewCharacterCell(r io.Reader) Cell {
	return Cell{Val: r, Kind: CharacterCell}
}

func NewUnrecognizedCell(v any) Cell {
	return Cell{Val: fmt.Sprintf("%T", v), Kind: UnrecognizedCell}
}

// NewCellFromValue converts a raw driver value into a Cell based on the
// declared column type. The driver hands back several Go shapes for the
// same column type; they all funnel into one kind here. Values that do
// not map to a recognized kind become UnrecognizedCell, which the
// encoder treats as fatal.
func NewCellFromValue(value any, col *Column) (Cell, error) {
	if value == nil {
		return NewNullCell(), nil
	}
	switch baseType(col.Type) {
	case "NUMBER", "FLOAT", "INTEGER", "DECIMAL", "NUMERIC":
		return newDecimalCell(value, col)
	case "CHAR", "VARCHAR2", "NCHAR", "NVARCHAR2", "VARCHAR":
		switch v := value.(type) {
		case string:
			return NewTextCell(v), nil
		case []byte:
			return NewTextCell(string(v)), nil
		}
	case "DATE", "TIMESTAMP":
		switch v := value.(type) {
		case time.Time:
			return NewInstantCell(v), nil
		case go_ora.TimeStamp:
			return NewInstantCell(time.Time(v)), nil
		}
	case "BLOB":
		switch v := value.(type) {
		case []byte:
			return NewBinaryCell(bytes.NewReader(v)), nil
		case io.Reader:
			return NewBinaryCell(v), nil
		}
	case "CLOB", "NCLOB":
		switch v := value.(type) {
		case string:
			return NewCharacterCell(strings.NewReader(v)), nil
		case []byte:
			return NewCharacterCell(bytes.NewReader(v)), nil
		case io.Reader:
			return NewCharacterCell(v), nil
		}
	}
	return NewUnrecognizedCell(value), nil
}

func newDecimalCell(value any, col *Column) (Cell, error) {
	switch v := value.(type) {
	case int64:
		return NewDecimalCell(decimal.NewFromInt(v)), nil
	case int32:
		return NewDecimalCell(decimal.NewFromInt32(v)), nil
	case int:
		return NewDecimalCell(decimal.NewFromInt(int64(v))), nil
	case float64:
		return NewDecimalCell(decimal.NewFromFloat(v)), nil
	case float32:
		return NewDecimalCell(decimal.NewFromFloat32(v)), nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return Cell{}, fmt.Errorf("could not parse %q from column %s as a decimal: %w", v, col.Name, err)
		}
		return NewDecimalCell(d), nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return Cell{}, fmt.Errorf("could not parse %q from column %s as a decimal: %w", v, col.Name, err)
		}
		return NewDecimalCell(d), nil
	}
	return NewUnrecognizedCell(value), nil
}

func (c Cell) IsNull() bool {
	return c.Kind == NullCell
}

// Decimal returns the value of a DecimalCell.
func (c Cell) Decimal() decimal.Decimal {
	return c.Val.(decimal.Decimal)
}

// Text returns the value of a TextCell.
func (c Cell) Text() string {
	return c.Val.(string)
}

// Instant returns the UTC instant of an InstantCell.
func (c Cell) Instant() time.Time {
	return c.Val.(time.Time)
}

// Stream returns the reader of a BinaryCell or CharacterCell.
func (c Cell) Stream() io.Reader {
	return c.Val.(io.Reader)
}

// TypeName returns the runtime type name of an UnrecognizedCell.
func (c Cell) TypeName() string {
	return c.Val.(string)
}
