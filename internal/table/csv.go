package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type csvReader struct{}

func (csvReader) CanRead(path string) bool {
	return hasExt(path, ".csv", ".tsv", ".txt")
}

func (csvReader) Read(path string, opt ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ReadDelimited(f, delim)
}

// ReadDelimited parses a delimited stream with a header row. A zero delim
// sniffs the delimiter from the header line.
func ReadDelimited(r io.Reader, delim rune) (*Table, error) {
	br := bufio.NewReader(r)
	if delim == 0 {
		head, _ := br.Peek(4096)
		delim = sniffHeader(string(head))
	}
	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := New("", uniqueHeader(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		if blankRow(rec) {
			continue
		}
		t.Rows = append(t.Rows, cellsToRecord(t.Columns, rec))
	}
	return t, nil
}

func cellsToRecord(cols []string, cells []string) Record {
	row := make(Record, len(cols))
	for i, c := range cols {
		if i >= len(cells) || IsNAToken(cells[i]) {
			row[c] = Null()
			continue
		}
		row[c] = Str(cells[i])
	}
	return row
}

func blankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// uniqueHeader suffixes repeated header names with .1, .2 and so on.
func uniqueHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if n, dup := seen[h]; dup {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		seen[h]++
		out[i] = name
	}
	return out
}

func sniffDelimiter(path string) rune {
	if hasExt(path, ".tsv") {
		return '\t'
	}
	f, err := os.Open(path)
	if err != nil {
		return ','
	}
	defer f.Close()
	line, _ := bufio.NewReader(f).ReadString('\n')
	return sniffHeader(line)
}

// sniffHeader picks the candidate delimiter occurring most often in the
// first line. Comma wins ties.
func sniffHeader(s string) rune {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	best, bestN := ',', strings.Count(s, ",")
	for _, d := range []rune{';', '\t', '|'} {
		if n := strings.Count(s, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// WriteDelimited renders t with a header row. Null cells are written empty.
func WriteDelimited(w io.Writer, t *Table, delim rune) error {
	cw := csv.NewWriter(w)
	if delim != 0 {
		cw.Comma = delim
	}
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, c := range t.Columns {
			rec[i] = r[c].String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Encode renders t as delimited bytes, choosing the delimiter from the
// destination path.
func Encode(t *Table, path string) ([]byte, error) {
	delim := ','
	if hasExt(path, ".tsv") {
		delim = '\t'
	}
	var buf bytes.Buffer
	if err := WriteDelimited(&buf, t, delim); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
