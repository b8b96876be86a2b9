package transformer

import "strings"

// Canonical field positions. The order matches domain.RawColumns.
const (
	colInvoice = iota
	colStockCode
	colDescription
	colQuantity
	colInvoiceDate
	colPrice
	colCustomerID
	colCountry
	numColumns
)

// canonicalNames indexes the canonical schema by lower-case name.
var canonicalNames = map[string]int{
	"invoice":     colInvoice,
	"stockcode":   colStockCode,
	"description": colDescription,
	"quantity":    colQuantity,
	"invoicedate": colInvoiceDate,
	"price":       colPrice,
	"customer_id": colCustomerID,
	"country":     colCountry,
}

// headerAliases maps the header spellings seen in the retail exports to
// canonical names. Lookup happens after trimming, before lower-casing.
var headerAliases = map[string]string{
	"InvoiceDate": "invoicedate",
	"Invoice":     "invoice",
	"InvoiceNo":   "invoice",
	"StockCode":   "stockcode",
	"Description": "description",
	"Quantity":    "quantity",
	"Price":       "price",
	"UnitPrice":   "price",
	"Customer ID": "customer_id",
	"CustomerID":  "customer_id",
	"Country":     "country",
}

// CanonicalName resolves a raw header cell to its canonical column name.
// ok is false for columns outside the canonical schema.
func CanonicalName(header string) (name string, ok bool) {
	h := strings.TrimSpace(header)
	if mapped, found := headerAliases[h]; found {
		return mapped, true
	}
	lower := strings.ToLower(h)
	if _, found := canonicalNames[lower]; found {
		return lower, true
	}
	return "", false
}

// nullTokens are cell values read as missing, mirroring the usual CSV
// conventions of spreadsheet and dataframe exports.
var nullTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

func isNull(s string) bool {
	_, ok := nullTokens[s]
	return ok
}
