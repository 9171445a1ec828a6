package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := EnsureDir(dir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// SiblingPath returns <dir>/<base><suffix><ext> for input. An empty ext keeps
// the input's extension.
//
//	SiblingPath("data/customers.csv", "_cleaned", "")      -> data/customers_cleaned.csv
//	SiblingPath("data/customers.csv", "_report", ".json")  -> data/customers_report.json
func SiblingPath(input, suffix, ext string) string {
	dir := filepath.Dir(input)
	base := filepath.Base(input)
	inExt := filepath.Ext(base)
	if ext == "" {
		ext = inExt
	}
	return filepath.Join(dir, strings.TrimSuffix(base, inExt)+suffix+ext)
}
