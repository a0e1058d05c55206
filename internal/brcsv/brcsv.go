// Package brcsv reads the CSV conventions of Brazilian government data
// portals: TSE and ANATEL publish latin1-encoded, semicolon-separated files.
package brcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// File wraps a CSV reader over a latin1 source file.
type File struct {
	Reader *csv.Reader
	f      *os.File
	header map[string]int
}

// Open opens a latin1, semicolon-separated CSV and consumes its header row.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	r := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(f))
	r.Comma = ';'
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[normalize(col)] = i
	}

	return &File{Reader: r, f: f, header: idx}, nil
}

// Close closes the underlying file.
func (c *File) Close() error { return c.f.Close() }

// Column returns the index of a named header column.
func (c *File) Column(name string) (int, error) {
	i, ok := c.header[normalize(name)]
	if !ok {
		return 0, fmt.Errorf("column %q not found", name)
	}
	return i, nil
}

// Columns resolves several header columns at once.
func (c *File) Columns(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		var err error
		if idx[i], err = c.Column(name); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Next returns the next record, or io.EOF.
func (c *File) Next() ([]string, error) {
	rec, err := c.Reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// normalize strips BOM artifacts, quotes, and case from header names. TSE
// files occasionally quote every header cell.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToUpper(s)
}
