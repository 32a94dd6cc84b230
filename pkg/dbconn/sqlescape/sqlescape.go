// Package sqlescape provides escaping for MySQL identifiers and string literals.
package sqlescape

import "strings"

// Identifier normalizes a source object name for use as a MySQL identifier.
// Names are lower-cased, and wrapped in backticks if they contain any
// character that is illegal in an unquoted identifier. Embedded backticks
// are doubled per the MySQL quoting rules.
func Identifier(name string) string {
	lowered := strings.ToLower(name)
	if isSafeIdentifier(lowered) {
		return lowered
	}
	return "`" + strings.ReplaceAll(lowered, "`", "``") + "`"
}

func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// EscapeString escapes a string for use inside a single-quoted MySQL
// string literal. Quotes and backslashes are escaped, and newline,
// carriage return and tab become their two-character escape forms so
// that generated scripts stay one statement per line. All other bytes
// pass through unmodified.
func EscapeString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
