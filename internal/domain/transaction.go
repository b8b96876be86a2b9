// Package domain holds the business objects shared by ingestion and the
// aggregation marts: one raw transaction line as it is stored, and the three
// derived row shapes rebuilt from it.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawTable is the append-only table holding every ingested transaction line.
const RawTable = "retail_raw"

// CustomerIDMissing is the sentinel stored when the customer_id column exists
// in a source file but the cell is empty. The marts exclude it.
const CustomerIDMissing = "nan"

// RawColumns is the canonical column order of RawTable. Transaction.Values
// returns values aligned to it.
var RawColumns = []string{
	"invoice",
	"stockcode",
	"description",
	"quantity",
	"invoicedate",
	"price",
	"customer_id",
	"country",
}

// Transaction is one normalized invoice line.
type Transaction struct {
	Invoice     string
	StockCode   string
	Description *string
	Quantity    int64
	InvoiceDate time.Time
	Price       decimal.Decimal
	CustomerID  *string
	Country     *string
}

// Values returns the row aligned to RawColumns. Nil optional fields become
// untyped nil so drivers write NULL.
func (t Transaction) Values() []any {
	return []any{
		t.Invoice,
		t.StockCode,
		optional(t.Description),
		t.Quantity,
		t.InvoiceDate,
		t.Price,
		optional(t.CustomerID),
		optional(t.Country),
	}
}

// LineValue is quantity × price for this line.
func (t Transaction) LineValue() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

func optional(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// Rows converts a slice of transactions into positional rows for bulk loading.
func Rows(txs []Transaction) [][]any {
	out := make([][]any, len(txs))
	for i := range txs {
		out[i] = txs[i].Values()
	}
	return out
}
