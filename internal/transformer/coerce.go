package transformer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order. Exports from different years use ISO
// timestamps or US month/day forms with single-digit components.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
	"1/2/2006",
	"2006/01/02",
}

// parseInvoiceDate returns the timestamp's wall clock in UTC. Offsets in the
// input are dropped rather than applied, matching how a timestamp column
// without time zone stores them.
func parseInvoiceDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), true
	}
	return time.Time{}, false
}

// parseQuantity parses an integer count. Decimal input truncates toward zero;
// anything unparsable or non-finite yields ok=false and a zero value.
func parseQuantity(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// parsePrice parses a decimal unit price. Unparsable input yields ok=false and
// zero.
func parsePrice(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// canonicalCustomerID strips a float rendering of an integral id
// ("17850.0" -> "17850") so ids read from numeric and text columns agree.
func canonicalCustomerID(s string) string {
	dot := strings.IndexByte(s, '.')
	if dot <= 0 {
		return s
	}
	intPart, frac := s[:dot], s[dot+1:]
	if strings.Trim(frac, "0") != "" {
		return s
	}
	for i := 0; i < len(intPart); i++ {
		if intPart[i] < '0' || intPart[i] > '9' {
			return s
		}
	}
	return intPart
}
