package csv

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

// collect drains a ChunkReader and returns the size of each chunk plus all rows.
func collect(t *testing.T, c *ChunkReader) ([]int, [][]string) {
	t.Helper()

	var sizes []int
	var all [][]string
	for {
		rows, err := c.Next()
		if errors.Is(err, io.EOF) {
			return sizes, all
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		sizes = append(sizes, len(rows))
		all = append(all, rows...)
	}
}

func TestChunkReader_ChunksInSourceOrder(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("Invoice,StockCode\n")
	for i := 0; i < 7; i++ {
		b.WriteString("inv")
		b.WriteByte(byte('0' + i))
		b.WriteString(",S\n")
	}

	c, err := NewChunkReader(strings.NewReader(b.String()), 3)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	if got := c.Header(); !reflect.DeepEqual(got, []string{"Invoice", "StockCode"}) {
		t.Fatalf("header = %q", got)
	}

	sizes, rows := collect(t, c)
	if !reflect.DeepEqual(sizes, []int{3, 3, 1}) {
		t.Fatalf("chunk sizes = %v, want [3 3 1]", sizes)
	}
	for i, r := range rows {
		if want := "inv" + string(rune('0'+i)); r[0] != want {
			t.Fatalf("row %d = %q, want %q", i, r[0], want)
		}
	}
	if c.Line() != 8 {
		t.Fatalf("Line() = %d, want 8", c.Line())
	}
}

func TestChunkReader_StripsBOMAndInvalidBytes(t *testing.T) {
	t.Parallel()

	src := "\uFEFFInvoice,Description\nA,WHITE\xff HEART\n"
	c, err := NewChunkReader(strings.NewReader(src), 10)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	if c.Header()[0] != "Invoice" {
		t.Fatalf("BOM not stripped: %q", c.Header()[0])
	}
	_, rows := collect(t, c)
	if len(rows) != 1 || rows[0][1] != "WHITE HEART" {
		t.Fatalf("rows = %q, want invalid byte removed", rows)
	}
}

// TestChunkReader_BOMBeforeQuotedHeader covers spreadsheet exports that put
// the BOM directly in front of a quoted first header cell.
func TestChunkReader_BOMBeforeQuotedHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"utf-8 quoted", "\uFEFF\"Invoice\",\"StockCode\",\"InvoiceDate\"\n536365,85123A,2010-12-01 08:26:00\n"},
		{"utf-8 bare", "\uFEFFInvoice,StockCode,InvoiceDate\n536365,85123A,2010-12-01 08:26:00\n"},
		{"utf-16le", "\xff\xfeI\x00n\x00v\x00o\x00i\x00c\x00e\x00,\x00S\x00t\x00o\x00c\x00k\x00C\x00o\x00d\x00e\x00,\x00I\x00n\x00v\x00o\x00i\x00c\x00e\x00D\x00a\x00t\x00e\x00\n\x005\x003\x006\x003\x006\x005\x00,\x008\x005\x001\x002\x003\x00A\x00,\x002\x000\x001\x000\x00-\x001\x002\x00-\x000\x001\x00 \x000\x008\x00:\x002\x006\x00:\x000\x000\x00\n\x00"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewChunkReader(strings.NewReader(tt.src), 10)
			if err != nil {
				t.Fatalf("NewChunkReader: %v", err)
			}
			want := []string{"Invoice", "StockCode", "InvoiceDate"}
			if got := c.Header(); !reflect.DeepEqual(got, want) {
				t.Fatalf("header = %q, want %q", got, want)
			}
			_, rows := collect(t, c)
			if len(rows) != 1 || !reflect.DeepEqual(rows[0], []string{"536365", "85123A", "2010-12-01 08:26:00"}) {
				t.Fatalf("rows = %q", rows)
			}
		})
	}
}

func TestChunkReader_LenientRows(t *testing.T) {
	t.Parallel()

	src := "Invoice,StockCode,Description\n" +
		"A,S1\n" +
		"B,S2,\"12\" RULER\",extra\n" +
		"C,S3,plain\n"
	c, err := NewChunkReader(strings.NewReader(src), 100)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	_, rows := collect(t, c)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3: %q", len(rows), rows)
	}
	if len(rows[0]) != 2 || len(rows[1]) != 4 {
		t.Fatalf("ragged widths not preserved: %q", rows)
	}
	if c.Skipped() != 0 {
		t.Fatalf("Skipped() = %d, want 0", c.Skipped())
	}
}

func TestChunkReader_EmptyAndHeaderOnly(t *testing.T) {
	t.Parallel()

	if _, err := NewChunkReader(strings.NewReader(""), 10); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("empty input error = %v, want ErrEmptyInput", err)
	}

	c, err := NewChunkReader(strings.NewReader("Invoice,StockCode\n"), 10)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	if _, err := c.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() on header-only input = %v, want io.EOF", err)
	}
}

func TestNewChunkReader_RejectsNonPositiveChunk(t *testing.T) {
	t.Parallel()

	if _, err := NewChunkReader(strings.NewReader("a\n"), 0); err == nil {
		t.Fatal("expected error for chunkSize=0")
	}
}
