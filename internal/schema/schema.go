// Package schema holds the DDL for the raw store and the three marts. The
// tables are normally provisioned outside this program; Ensure creates any
// that are missing when AUTO_CREATE_TABLES is on, and backs hermetic tests.
package schema

import (
	"context"
	"fmt"
	"strings"

	"retailetl/internal/domain"
	"retailetl/internal/storage"
)

// types maps logical column types to a backend's SQL types.
type types struct {
	key       string // short identifiers: invoice, stockcode, customer_id
	text      string
	integer   string
	bigint    string
	price     string
	money     string // sums and averages of money
	timestamp string
	date      string
}

var typesByDialect = map[string]types{
	storage.Postgres.Name: {
		key: "TEXT", text: "TEXT", integer: "INTEGER", bigint: "BIGINT",
		price: "NUMERIC(12,4)", money: "NUMERIC(18,4)", timestamp: "TIMESTAMP", date: "DATE",
	},
	// SQLite keeps timestamps and days as ISO text so DATE() and ordering work
	// without driver-side time parsing.
	storage.SQLite.Name: {
		key: "TEXT", text: "TEXT", integer: "INTEGER", bigint: "INTEGER",
		price: "REAL", money: "REAL", timestamp: "TEXT", date: "TEXT",
	},
	storage.MySQL.Name: {
		key: "VARCHAR(32)", text: "VARCHAR(255)", integer: "INT", bigint: "BIGINT",
		price: "DECIMAL(12,4)", money: "DECIMAL(18,4)", timestamp: "DATETIME", date: "DATE",
	},
	storage.SQLServer.Name: {
		key: "NVARCHAR(32)", text: "NVARCHAR(255)", integer: "INT", bigint: "BIGINT",
		price: "DECIMAL(12,4)", money: "DECIMAL(18,4)", timestamp: "DATETIME2", date: "DATE",
	},
}

type column struct {
	name string
	typ  func(types) string
}

type table struct {
	name    string
	columns []column
	primary []string
}

func tables() []table {
	key := func(t types) string { return t.key }
	return []table{
		{
			name: domain.RawTable,
			columns: []column{
				{"invoice", key},
				{"stockcode", key},
				{"description", func(t types) string { return t.text }},
				{"quantity", func(t types) string { return t.bigint }},
				{"invoicedate", func(t types) string { return t.timestamp }},
				{"price", func(t types) string { return t.price }},
				{"customer_id", key},
				{"country", func(t types) string { return t.text }},
			},
		},
		{
			name: domain.DailyMetricsTable,
			columns: []column{
				{"day", func(t types) string { return t.date }},
				{"total_invoices", func(t types) string { return t.integer }},
				{"total_items", func(t types) string { return t.bigint }},
				{"total_revenue", func(t types) string { return t.money }},
			},
			primary: []string{"day"},
		},
		{
			name: domain.TopProductsDailyTable,
			columns: []column{
				{"day", func(t types) string { return t.date }},
				{"stockcode", key},
				{"units_sold", func(t types) string { return t.bigint }},
				{"revenue", func(t types) string { return t.money }},
			},
			primary: []string{"day", "stockcode"},
		},
		{
			name: domain.CustomerFeaturesTable,
			columns: []column{
				{"customer_id", key},
				{"order_count", func(t types) string { return t.integer }},
				{"total_spent", func(t types) string { return t.money }},
				{"avg_basket_value", func(t types) string { return t.money }},
				{"last_purchase", func(t types) string { return t.timestamp }},
			},
			primary: []string{"customer_id"},
		},
	}
}

// Statements returns CREATE TABLE statements for every table, each a no-op
// when the table already exists.
func Statements(d storage.Dialect) ([]string, error) {
	ty, ok := typesByDialect[d.Name]
	if !ok {
		return nil, fmt.Errorf("schema: no column types for dialect %q", d.Name)
	}
	var out []string
	for _, tb := range tables() {
		out = append(out, createTable(d, ty, tb))
	}
	return out, nil
}

func createTable(d storage.Dialect, ty types, tb table) string {
	defs := make([]string, 0, len(tb.columns)+1)
	for _, c := range tb.columns {
		def := d.Quote(c.name) + " " + c.typ(ty)
		for _, p := range tb.primary {
			if p == c.name {
				def += " NOT NULL"
			}
		}
		defs = append(defs, def)
	}
	if len(tb.primary) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(d.QuoteAll(tb.primary), ", ")+")")
	}
	body := d.Quote(tb.name) + " (\n  " + strings.Join(defs, ",\n  ") + "\n)"

	if d.Name == storage.SQLServer.Name {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s", tb.name, body)
	}
	return "CREATE TABLE IF NOT EXISTS " + body
}

// Ensure creates any missing table on db.
func Ensure(ctx context.Context, db storage.DB) error {
	stmts, err := Statements(db.Dialect())
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return fmt.Errorf("schema: apply DDL: %w", err)
		}
	}
	return nil
}
