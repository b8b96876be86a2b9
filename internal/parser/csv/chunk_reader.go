// Package csv reads retail CSV exports in bounded chunks.
//
// Exports arrive from spreadsheet tools with mixed encodings, stray quotes and
// ragged rows. The reader is deliberately lenient: a leading byte order mark
// is consumed (UTF-16 input is decoded to UTF-8), bytes that are not valid
// UTF-8 are discarded before parsing, quotes are parsed lazily, rows may have
// any width, and a line encoding/csv cannot parse is skipped and counted
// instead of failing the file.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// ErrEmptyInput is returned by NewChunkReader when the source has no header.
var ErrEmptyInput = errors.New("csv: empty input")

// dropInvalidUTF8 removes ill-formed byte sequences. runes.Remove replaces
// each invalid byte with utf8.RuneError before testing it, so matching on
// RuneError drops them.
func dropInvalidUTF8() transform.Transformer {
	return runes.Remove(runes.Predicate(func(r rune) bool { return r == utf8.RuneError }))
}

// ChunkReader yields the rows of one CSV source in order, at most chunkSize
// rows per call to Next.
type ChunkReader struct {
	cr        *csv.Reader
	header    []string
	chunkSize int
	line      int
	skipped   int
}

// NewChunkReader wraps r and consumes the header line.
func NewChunkReader(r io.Reader, chunkSize int) (*ChunkReader, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("csv: chunkSize must be > 0")
	}

	dec := transform.Chain(unicode.BOMOverride(unicode.UTF8.NewDecoder()), dropInvalidUTF8())
	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	c := &ChunkReader{cr: cr, chunkSize: chunkSize}

	hdr, err := c.read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	c.header = hdr
	return c, nil
}

// Header returns the header cells.
func (c *ChunkReader) Header() []string { return c.header }

// Line is the number of physical records consumed so far, header included.
func (c *ChunkReader) Line() int { return c.line }

// Skipped is the number of unparsable lines dropped so far.
func (c *ChunkReader) Skipped() int { return c.skipped }

// Next returns the next chunk of rows. It returns io.EOF, with no rows, once
// the source is exhausted. A short final chunk is returned with a nil error.
func (c *ChunkReader) Next() ([][]string, error) {
	rows := make([][]string, 0, min(c.chunkSize, 4096))
	for len(rows) < c.chunkSize {
		rec, err := c.read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			c.skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}
	return rows, nil
}

func (c *ChunkReader) read() ([]string, error) {
	rec, err := c.cr.Read()
	if err == nil || !errors.Is(err, io.EOF) {
		c.line++
	}
	return rec, err
}
