// Package transformer turns raw CSV rows from retail exports into canonical
// domain.Transaction values.
//
// The Normalizer compiles a column plan once per file header (source index per
// canonical field) so the per-row path does no map lookups. Normalization is a
// pure function of its input: the same header and rows always produce the same
// transactions in the same order.
//
// Row-level anomalies never surface as errors. Unparsable quantity and price
// default to zero; rows without an invoice, a stock code, or a parsable
// invoice date are dropped and counted in Stats.
package transformer

import (
	"strings"

	"retailetl/internal/domain"
)

// Stats counts what happened to the rows of one Normalize call.
type Stats struct {
	Seen              int
	Kept              int
	MissingInvoice    int
	MissingStockCode  int
	BadInvoiceDate    int
	QuantityDefaulted int
	PriceDefaulted    int
}

// Dropped is the number of rows excluded from the output.
func (s Stats) Dropped() int {
	return s.MissingInvoice + s.MissingStockCode + s.BadInvoiceDate
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Seen += o.Seen
	s.Kept += o.Kept
	s.MissingInvoice += o.MissingInvoice
	s.MissingStockCode += o.MissingStockCode
	s.BadInvoiceDate += o.BadInvoiceDate
	s.QuantityDefaulted += o.QuantityDefaulted
	s.PriceDefaulted += o.PriceDefaulted
}

// Normalizer maps rows of one source layout onto the canonical schema.
type Normalizer struct {
	// src[c] is the source column index for canonical field c, or -1 when
	// the file has no such column.
	src [numColumns]int
}

// NewNormalizer compiles the column plan for a file header. Headers outside
// the canonical schema are ignored; when two headers resolve to the same
// canonical column the first one wins.
func NewNormalizer(header []string) *Normalizer {
	n := &Normalizer{}
	for i := range n.src {
		n.src[i] = -1
	}
	for i, h := range header {
		name, ok := CanonicalName(h)
		if !ok {
			continue
		}
		c := canonicalNames[name]
		if n.src[c] == -1 {
			n.src[c] = i
		}
	}
	return n
}

// Has reports whether the source layout provides the named canonical column.
func (n *Normalizer) Has(column string) bool {
	c, ok := canonicalNames[column]
	return ok && n.src[c] >= 0
}

// Normalize converts a chunk of raw rows. The returned slice contains only
// valid transactions, in source order.
func (n *Normalizer) Normalize(rows [][]string) ([]domain.Transaction, Stats) {
	st := Stats{Seen: len(rows)}
	out := make([]domain.Transaction, 0, len(rows))

	for _, rec := range rows {
		invoice, ok := n.cell(rec, colInvoice)
		if !ok {
			st.MissingInvoice++
			continue
		}
		stock, ok := n.cell(rec, colStockCode)
		if !ok {
			st.MissingStockCode++
			continue
		}
		rawDate, ok := n.cell(rec, colInvoiceDate)
		if !ok {
			st.BadInvoiceDate++
			continue
		}
		when, ok := parseInvoiceDate(rawDate)
		if !ok {
			st.BadInvoiceDate++
			continue
		}

		tx := domain.Transaction{
			Invoice:     invoice,
			StockCode:   stock,
			InvoiceDate: when,
			Description: n.optional(rec, colDescription),
			Country:     n.optional(rec, colCountry),
		}

		if s, ok := n.cell(rec, colQuantity); ok {
			if q, ok := parseQuantity(s); ok {
				tx.Quantity = q
			} else {
				st.QuantityDefaulted++
			}
		} else {
			st.QuantityDefaulted++
		}

		if s, ok := n.cell(rec, colPrice); ok {
			if p, ok := parsePrice(s); ok {
				tx.Price = p
			} else {
				st.PriceDefaulted++
			}
		} else {
			st.PriceDefaulted++
		}

		// customer_id stays NULL only when the file has no such column.
		// A present-but-empty cell becomes the "nan" sentinel.
		if n.src[colCustomerID] >= 0 {
			id := domain.CustomerIDMissing
			if s, ok := n.cell(rec, colCustomerID); ok {
				id = canonicalCustomerID(s)
			}
			tx.CustomerID = &id
		}

		out = append(out, tx)
	}

	st.Kept = len(out)
	return out, st
}

// cell returns the trimmed value of canonical column c; ok is false when the
// column is absent, the row is short, or the value is a null token.
func (n *Normalizer) cell(rec []string, c int) (string, bool) {
	i := n.src[c]
	if i < 0 || i >= len(rec) {
		return "", false
	}
	v := strings.TrimSpace(rec[i])
	if isNull(v) {
		return "", false
	}
	return v, true
}

func (n *Normalizer) optional(rec []string, c int) *string {
	v, ok := n.cell(rec, c)
	if !ok {
		return nil
	}
	return &v
}
