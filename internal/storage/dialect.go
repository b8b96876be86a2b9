package storage

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between backends that the loader and
// the aggregation runner care about. Everything else they emit is portable.
type Dialect struct {
	Name string

	// MaxParams is the bind-parameter limit per multi-row INSERT; 0 means
	// the backend bulk-loads without bind parameters.
	MaxParams int

	placeholder func(n int) string
	day         func(expr string) string
	quote       func(id string) string
	truncate    string
}

var (
	// Postgres: COPY for bulk loads, so parameter limits never apply.
	Postgres = Dialect{
		Name:        "postgres",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		day:         func(e string) string { return "DATE(" + e + ")" },
		quote:       doubleQuote,
		truncate:    "TRUNCATE TABLE ",
	}

	SQLite = Dialect{
		Name:        "sqlite",
		MaxParams:   32766,
		placeholder: func(int) string { return "?" },
		day:         func(e string) string { return "DATE(" + e + ")" },
		quote:       doubleQuote,
		truncate:    "DELETE FROM ",
	}

	MySQL = Dialect{
		Name:        "mysql",
		MaxParams:   65535,
		placeholder: func(int) string { return "?" },
		day:         func(e string) string { return "DATE(" + e + ")" },
		quote:       func(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" },
		truncate:    "TRUNCATE TABLE ",
	}

	// SQLServer loads through the TDS bulk-copy API.
	SQLServer = Dialect{
		Name:        "mssql",
		placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		day:         func(e string) string { return "CAST(" + e + " AS date)" },
		quote:       func(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" },
		truncate:    "TRUNCATE TABLE ",
	}
)

// Placeholder renders the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string { return d.placeholder(n) }

// Day renders the calendar day of a timestamp expression.
func (d Dialect) Day(expr string) string { return d.day(expr) }

// Quote quotes an identifier. A schema-qualified name ("s.t") is quoted per
// segment.
func (d Dialect) Quote(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.quote(p)
	}
	return strings.Join(parts, ".")
}

// QuoteAll quotes each column name.
func (d Dialect) QuoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.quote(c)
	}
	return out
}

// Truncate renders a statement removing every row of table.
func (d Dialect) Truncate(table string) string { return d.truncate + d.Quote(table) }

// InsertSelect renders INSERT INTO table (cols) <query>.
func (d Dialect) InsertSelect(table string, cols []string, query string) string {
	return "INSERT INTO " + d.Quote(table) + " (" + strings.Join(d.QuoteAll(cols), ", ") + ")\n" + query
}

// InsertValues renders a multi-row INSERT for rows×len(cols) parameters.
func (d Dialect) InsertValues(table string, cols []string, rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Quote(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(d.QuoteAll(cols), ", "))
	b.WriteString(") VALUES ")
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range cols {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// RowsPerStatement is the largest VALUES list that fits the dialect's limits
// for width columns, capped at want.
func (d Dialect) RowsPerStatement(width, want int) int {
	n := want
	if d.MaxParams > 0 && width > 0 {
		n = min(n, d.MaxParams/width)
	}
	return max(n, 1)
}

func doubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
