package aggregate

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"retailetl/internal/domain"
	"retailetl/internal/schema"
	"retailetl/internal/storage"
	"retailetl/internal/storage/sqlstore"
)

func strp(s string) *string { return &s }

func line(invoice, stock string, qty int64, price string, at time.Time, customer *string) domain.Transaction {
	return domain.Transaction{
		Invoice:     invoice,
		StockCode:   stock,
		Quantity:    qty,
		InvoiceDate: at,
		Price:       decimal.RequireFromString(price),
		CustomerID:  customer,
		Country:     strp("United Kingdom"),
	}
}

// fixture covers three days:
//   - 2010-12-01: two invoices by 17850, three items, revenue 70
//   - 2010-12-02: twelve products on one invoice, with a revenue tie at the
//     top-10 boundary (P00 and P01 both 5)
//   - 2010-12-03: one invoice with the "nan" customer, one with no customer
func fixture() []domain.Transaction {
	d1 := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	d2 := time.Date(2010, 12, 2, 9, 0, 0, 0, time.UTC)
	d3 := time.Date(2010, 12, 3, 10, 0, 0, 0, time.UTC)

	txs := []domain.Transaction{
		line("536365", "85123A", 1, "10", d1, strp("17850")),
		line("536365", "71053", 1, "20", d1, strp("17850")),
		line("536366", "85123A", 1, "40", d1.Add(2*time.Minute), strp("17850")),
	}

	txs = append(txs,
		line("536367", "P00", 1, "5", d2, strp("13047")),
		line("536367", "P01", 1, "5", d2, strp("13047")),
		line("536367", "P11", 1, "3", d2, strp("13047")),
	)
	for i := 2; i <= 10; i++ {
		txs = append(txs, line("536367", fmt.Sprintf("P%02d", i), 1, fmt.Sprint(i+5), d2, strp("13047")))
	}

	txs = append(txs,
		line("536368", "22633", 2, "1.5", d3, strp(domain.CustomerIDMissing)),
		line("536369", "22632", 1, "2", d3, nil),
	)
	return txs
}

// setup returns a loaded SQLite warehouse and a second handle for reading
// marts back with full column types.
func setup(t *testing.T) (storage.DB, *sql.DB) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "warehouse.db")

	db, err := sqlstore.Open(ctx, "sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(ctx) })
	if err := schema.Ensure(ctx, db); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := storage.LoadChunk(ctx, db, domain.RawTable, domain.RawColumns, domain.Rows(fixture()), 100); err != nil {
		t.Fatalf("load: %v", err)
	}

	reader, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	t.Cleanup(func() { _ = reader.Close() })
	return db, reader
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRun_BuildsAllMarts(t *testing.T) {
	t.Parallel()

	db, reader := setup(t)
	summary, err := NewRunner(db, Catalog(), zerolog.Nop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "daily_metrics=3, top_products_daily=14, customer_features_quarterly=2"
	if got := summary.String(); got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}

	t.Run("daily_metrics", func(t *testing.T) {
		var (
			invoices, items int64
			revenue         float64
		)
		err := reader.QueryRow(`SELECT total_invoices, total_items, total_revenue FROM daily_metrics WHERE day = '2010-12-01'`).
			Scan(&invoices, &items, &revenue)
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if invoices != 2 || items != 3 || !approx(revenue, 70) {
			t.Fatalf("2010-12-01 = invoices %d items %d revenue %v; want 2, 3, 70", invoices, items, revenue)
		}
	})

	t.Run("top_products_daily", func(t *testing.T) {
		rows, err := reader.Query(`SELECT stockcode, revenue FROM top_products_daily WHERE day = '2010-12-02' ORDER BY rowid`)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		defer rows.Close()

		var (
			codes []string
			prev  = math.Inf(1)
		)
		for rows.Next() {
			var (
				code string
				rev  float64
			)
			if err := rows.Scan(&code, &rev); err != nil {
				t.Fatalf("scan: %v", err)
			}
			if rev > prev {
				t.Fatalf("revenue increased: %v after %v", rev, prev)
			}
			prev = rev
			codes = append(codes, code)
		}
		if err := rows.Err(); err != nil {
			t.Fatalf("rows: %v", err)
		}
		if len(codes) != domain.TopProductsPerDay {
			t.Fatalf("kept %d products, want %d: %v", len(codes), domain.TopProductsPerDay, codes)
		}
		joined := strings.Join(codes, ",")
		if !strings.Contains(joined, "P00") || strings.Contains(joined, "P01") || strings.Contains(joined, "P11") {
			t.Fatalf("tie-break by stockcode not applied: %v", codes)
		}
	})

	t.Run("customer_features", func(t *testing.T) {
		var (
			orders       int64
			spent, basket float64
			last         string
		)
		err := reader.QueryRow(`SELECT order_count, total_spent, avg_basket_value, last_purchase
			FROM customer_features_quarterly WHERE customer_id = '17850'`).Scan(&orders, &spent, &basket, &last)
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		if orders != 2 || !approx(spent, 70) || !approx(basket, 35) {
			t.Fatalf("17850 = orders %d spent %v basket %v; want 2, 70, 35", orders, spent, basket)
		}
		if last != "2010-12-01 08:28:00" {
			t.Fatalf("last_purchase = %q", last)
		}

		var excluded int64
		if err := reader.QueryRow(`SELECT COUNT(*) FROM customer_features_quarterly
			WHERE customer_id IS NULL OR customer_id = 'nan'`).Scan(&excluded); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if excluded != 0 {
			t.Fatalf("%d rows for missing customers", excluded)
		}
	})
}

// TestRun_FullRefresh checks a second run replaces rather than appends.
func TestRun_FullRefresh(t *testing.T) {
	t.Parallel()

	db, _ := setup(t)
	r := NewRunner(db, Catalog(), zerolog.Nop())

	first, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("rerun changed counts: %s -> %s", first, second)
	}
}

func TestRun_EmptyRawStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := sqlstore.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close(ctx)
	if err := schema.Ensure(ctx, db); err != nil {
		t.Fatalf("schema: %v", err)
	}

	summary, err := NewRunner(db, Catalog(), zerolog.Nop()).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := summary.String(); got != "daily_metrics=0, top_products_daily=0, customer_features_quarterly=0" {
		t.Fatalf("summary = %q", got)
	}
}

// TestRun_StopsAtFailure leaves earlier rebuilds in place and never reaches
// later transformations.
func TestRun_StopsAtFailure(t *testing.T) {
	t.Parallel()

	db, _ := setup(t)
	ctx := context.Background()
	if _, err := NewRunner(db, Catalog(), zerolog.Nop()).Run(ctx); err != nil {
		t.Fatalf("seed Run: %v", err)
	}
	if _, err := db.Exec(ctx, `DELETE FROM daily_metrics`); err != nil {
		t.Fatalf("clear: %v", err)
	}

	cat := Catalog()
	broken := Transformation{
		Name:    "broken",
		Version: 3,
		Target:  domain.TopProductsDailyTable,
		Columns: domain.TopProductDailyColumns,
		Query:   func(storage.Dialect) string { return "SELECT nope FROM missing_table" },
	}
	failing := []Transformation{cat[0], broken, cat[2]}

	_, err := NewRunner(db, failing, zerolog.Nop()).Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "broken v3") {
		t.Fatalf("err = %v, want failure naming broken v3", err)
	}

	daily, _ := storage.CountRows(ctx, db, domain.DailyMetricsTable)
	customers, _ := storage.CountRows(ctx, db, domain.CustomerFeaturesTable)
	if daily != 3 {
		t.Fatalf("daily_metrics = %d rows, want 3 (rebuilt before failure)", daily)
	}
	if customers != 2 {
		t.Fatalf("customer_features_quarterly = %d rows, want 2 (untouched)", customers)
	}
}

func TestCatalog_DialectSQL(t *testing.T) {
	t.Parallel()

	cat := Catalog()
	if len(cat) != 3 || cat[0].Name != "daily_metrics" || cat[1].Name != "top_products_daily" || cat[2].Name != "customer_features_quarterly" {
		t.Fatalf("catalog order = %+v", cat)
	}
	for _, tr := range cat {
		if tr.Version != 1 {
			t.Errorf("%s version = %d", tr.Name, tr.Version)
		}
	}

	q := cat[1].Query(storage.SQLServer)
	if !strings.Contains(q, "CAST(invoicedate AS date)") || !strings.Contains(q, "[retail_raw]") {
		t.Fatalf("sql server query:\n%s", q)
	}
	if !strings.Contains(q, "ORDER BY revenue DESC, stockcode ASC") || !strings.Contains(q, "rn <= 10") {
		t.Fatalf("ranking clause missing:\n%s", q)
	}
	if q := cat[2].Query(storage.Postgres); !strings.Contains(q, "customer_id <> 'nan'") {
		t.Fatalf("customer query lacks nan filter:\n%s", q)
	}
}
