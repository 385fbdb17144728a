package ranking

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed starter.yaml
var starter []byte

// Starter returns the commented starter ranking file written by `init`.
func Starter() []byte {
	return starter
}

// WriteStarter writes the starter ranking file to path unless a file is
// already there. It reports whether a file was written.
func WriteStarter(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, starter, 0o644); err != nil {
		return false, fmt.Errorf("writing ranking file: %w", err)
	}
	return true, nil
}
