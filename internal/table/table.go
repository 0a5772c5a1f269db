package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Options controls how delimited text is tokenized.
type Options struct {
	// Delimiter separates fields. If 0, sniffed from the header line among ',', ';', '\t', '|'.
	Delimiter rune
	// Sheet selects a worksheet for workbook formats; empty means the first sheet.
	Sheet string
}

// DefaultOptions returns options that sniff the delimiter.
func DefaultOptions() Options {
	return Options{}
}

// Record is one data row keyed by header name. Key order follows the header.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord builds a record from a header and a row, padding short rows with
// empty strings and dropping extra fields. Values are trimmed.
func NewRecord(header, row []string) Record {
	vals := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(row) {
			vals[h] = strings.TrimSpace(row[i])
		} else {
			vals[h] = ""
		}
	}
	return Record{keys: header, values: vals}
}

// Keys returns the column names in header order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the raw value for a column and whether the column exists.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Len is the number of columns.
func (r Record) Len() int { return len(r.keys) }

// Map returns a copy of the record as a plain map.
func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Table is a parsed dataset: header plus records.
type Table struct {
	Headers  []string
	Records  []Record
	Warnings []string
}

// RowCount is the number of data rows.
func (t Table) RowCount() int { return len(t.Records) }

// ColumnCount is the number of header columns.
func (t Table) ColumnCount() int { return len(t.Headers) }

// Preview returns up to n records as plain maps.
func (t Table) Preview(n int) []map[string]string {
	if n > len(t.Records) {
		n = len(t.Records)
	}
	out := make([]map[string]string, 0, n)
	for _, r := range t.Records[:n] {
		out = append(out, r.Map())
	}
	return out
}

// Concat merges tables of the same domain. Each record keeps its own header.
func Concat(tables ...Table) Table {
	var out Table
	seen := map[string]bool{}
	for _, t := range tables {
		for _, h := range t.Headers {
			if !seen[h] {
				seen[h] = true
				out.Headers = append(out.Headers, h)
			}
		}
		out.Records = append(out.Records, t.Records...)
		out.Warnings = append(out.Warnings, t.Warnings...)
	}
	return out
}

// FromRows builds a table from a header row followed by data rows. It is used
// by formats that are already tokenized (workbooks).
func FromRows(rows [][]string) Table {
	var t Table
	start := -1
	for i, row := range rows {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return t
	}
	t.Headers = cleanHeader(rows[start])
	for _, row := range rows[start+1:] {
		if blankRow(row) {
			continue
		}
		t.Records = append(t.Records, NewRecord(t.Headers, row))
	}
	return t
}

// Parse tokenizes delimited text. The first non-blank line is the header and
// blank lines are skipped. Quoted fields may contain the delimiter, quotes and
// newlines. Parse never fails: rows that cannot be tokenized are reported in
// Warnings and skipped.
func Parse(text string, opt Options) Table {
	delim := opt.Delimiter
	if delim == 0 {
		delim = SniffDelimiter(text)
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	// leading-space trimming would swallow empty tab-separated fields
	r.TrimLeadingSpace = delim != '\t'

	var t Table
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			t.Warnings = append(t.Warnings, fmt.Sprintf("line %d skipped: %v", line, err))
			continue
		}
		if blankRow(row) {
			continue
		}
		if t.Headers == nil {
			t.Headers = cleanHeader(row)
			continue
		}
		t.Records = append(t.Records, NewRecord(t.Headers, row))
	}
	return t
}

// Decode converts raw file bytes into text. UTF-8 input (with or without BOM)
// passes through; anything else is read as Windows-1252, which covers Latin-1
// exports from spreadsheet tools.
func Decode(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// SniffDelimiter picks the most frequent candidate separator on the first
// non-blank line, ignoring quoted sections. Defaults to ','.
func SniffDelimiter(text string) rune {
	line := ""
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}
	counts := map[rune]int{}
	inQuote := false
	for _, c := range line {
		switch {
		case c == '"':
			inQuote = !inQuote
		case !inQuote && (c == ',' || c == ';' || c == '\t' || c == '|'):
			counts[c]++
		}
	}
	best, bestN := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if counts[c] > bestN {
			best, bestN = c, counts[c]
		}
	}
	return best
}

func blankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// cleanHeader trims names and makes duplicates unique with a numeric suffix.
func cleanHeader(row []string) []string {
	out := make([]string, len(row))
	seen := map[string]int{}
	for i, h := range row {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		out[i] = name
	}
	return out
}
