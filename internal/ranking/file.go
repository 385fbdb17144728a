package ranking

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no ranking file can be resolved.
var ErrNotFound = errors.New("ranking context not found")

// FileNames are the ranking file names looked up, in priority order, in
// every directory and in its .classwind subdirectory.
var FileNames = []string{
	"classorder.yaml",
	"classorder.yml",
	"classorder.toml",
	"classorder.json",
}

// SubDir is the per-project directory that may hold the ranking file.
const SubDir = ".classwind"

// File is the on-disk shape of a ranking file.
type File struct {
	Prefix   string   `yaml:"prefix" toml:"prefix" json:"prefix"`
	Variants []string `yaml:"variants" toml:"variants" json:"variants"`
	Order    []string `yaml:"order" toml:"order" json:"order"`
}

// Load reads and parses the ranking file at path. The format follows the
// extension; unknown extensions are parsed as YAML.
func Load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading ranking file: %w", err)
	}

	f, err := Parse(data, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	ctx := NewContext(f.Order, f.Variants, f.Prefix)
	ctx.Source = path
	return ctx, nil
}

// Parse decodes ranking file content. ext selects the decoder (".toml",
// ".json", anything else YAML).
func Parse(data []byte, ext string) (File, error) {
	var f File
	var err error

	switch ext {
	case ".toml":
		err = toml.Unmarshal(data, &f)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&f)
		// an empty YAML document is an empty ranking
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err != nil {
		return File{}, err
	}

	for i, entry := range f.Order {
		if strings.TrimSpace(entry) == "" {
			return File{}, fmt.Errorf("order entry %d is empty", i)
		}
		if strings.Count(entry, "*") > 1 || (strings.Contains(entry, "*") && !strings.HasSuffix(entry, "*")) {
			return File{}, fmt.Errorf("order entry %q: wildcard must be a single trailing *", entry)
		}
	}

	return f, nil
}

// Locate finds the ranking file for filePath. A non-empty override wins and
// must exist. Otherwise directories are walked from the file's own directory
// up to the filesystem root.
func Locate(filePath, override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("override %s: %w", override, ErrNotFound)
			}
			return "", fmt.Errorf("checking override: %w", err)
		}
		return filepath.Clean(override), nil
	}

	if filePath == "" {
		return "", ErrNotFound
	}

	abs, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", filePath, err)
	}

	dir := abs
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		for _, candidateDir := range []string{dir, filepath.Join(dir, SubDir)} {
			for _, name := range FileNames {
				candidate := filepath.Join(candidateDir, name)
				if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
					return candidate, nil
				}
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}
