package transformer

import (
	"strconv"
	"time"

	"github.com/zeebo/xxh3"

	"retailetl/internal/domain"
)

// Digest returns a 64-bit xxh3 hash over the canonical content of txs, in
// order. Two chunks with equal content hash equal, so logged digests can be
// compared across runs to spot re-ingested data.
func Digest(txs []domain.Transaction) uint64 {
	h := xxh3.New()
	var buf []byte
	for _, t := range txs {
		buf = buf[:0]
		buf = append(buf, t.Invoice...)
		buf = append(buf, 0x1f)
		buf = append(buf, t.StockCode...)
		buf = append(buf, 0x1f)
		buf = appendOptional(buf, t.Description)
		buf = append(buf, 0x1f)
		buf = strconv.AppendInt(buf, t.Quantity, 10)
		buf = append(buf, 0x1f)
		buf = t.InvoiceDate.AppendFormat(buf, time.RFC3339Nano)
		buf = append(buf, 0x1f)
		buf = append(buf, t.Price.String()...)
		buf = append(buf, 0x1f)
		buf = appendOptional(buf, t.CustomerID)
		buf = append(buf, 0x1f)
		buf = appendOptional(buf, t.Country)
		buf = append(buf, 0x1e)
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func appendOptional(buf []byte, p *string) []byte {
	if p == nil {
		return append(buf, 0x00)
	}
	return append(buf, *p...)
}
