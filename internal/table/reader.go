package table

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned when no reader accepts the file.
	ErrUnsupportedFormat = errors.New("unsupported table format")
	// ErrNoHeader is returned for files without a header row.
	ErrNoHeader = errors.New("table has no header row")
)

// ReadOptions tune how a file is turned into a Table.
type ReadOptions struct {
	// Delimiter overrides sniffing for delimited files.
	Delimiter rune
	// SheetName selects a worksheet; SheetIndex (1-based) is used when empty.
	SheetName  string
	SheetIndex int
}

// Reader loads one family of tabular file formats.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt ReadOptions) (*Table, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ReadFile selects a reader based on the file name and loads the table.
func ReadFile(path string, opt ReadOptions) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	for _, r := range registry {
		if r.CanRead(path) {
			t, err := r.Read(path, opt)
			if err != nil {
				return nil, err
			}
			if t.Name == "" {
				t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

func hasExt(path string, exts ...string) bool {
	name := strings.ToLower(path)
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}
