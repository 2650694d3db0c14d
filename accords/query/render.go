package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grafana/regexp"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be used unquoted as a table name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// EscapeLike escapes LIKE wildcards so the term matches literally under
// ESCAPE '\'.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// QuoteLiteral renders s as a SQL string literal, doubling single quotes.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Inline substitutes each ? placeholder outside string literals with the
// matching argument rendered as a literal.
func Inline(sql string, args []interface{}) (string, error) {
	var out strings.Builder
	inQuote := false
	next := 0

	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			out.WriteByte(ch)
		case ch == '?' && !inQuote:
			if next >= len(args) {
				return "", fmt.Errorf("placeholder %d has no argument", next+1)
			}
			lit, err := literal(args[next])
			if err != nil {
				return "", err
			}
			out.WriteString(lit)
			next++
		default:
			out.WriteByte(ch)
		}
	}

	if next != len(args) {
		return "", fmt.Errorf("%d arguments for %d placeholders", len(args), next)
	}
	return out.String(), nil
}

func literal(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return QuoteLiteral(val), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("unsupported argument type %T", v)
}
