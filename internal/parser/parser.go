package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/datahub-cli/internal/table"
)

// Format decodes one file format into a table.
type Format interface {
	CanParse(filename string) bool
	Parse(content []byte, opt table.Options) (table.Table, error)
}

var registry []Format

// Register adds a format implementation to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Supported reports whether any registered format accepts the file name.
func Supported(filename string) bool {
	for _, f := range registry {
		if f.CanParse(filename) {
			return true
		}
	}
	return false
}

// ParseBytes selects a format by file name and decodes content into a table.
func ParseBytes(filename string, content []byte, opt table.Options) (table.Table, error) {
	for _, f := range registry {
		if f.CanParse(filename) {
			return f.Parse(content, opt)
		}
	}
	return table.Table{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(filename))
}

// ParseFile reads a file from disk and decodes it.
func ParseFile(path string, opt table.Options) (table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return table.Table{}, fmt.Errorf("read file: %w", err)
	}
	return ParseBytes(path, data, opt)
}

func hasExt(filename string, exts ...string) bool {
	name := strings.ToLower(filename)
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

func init() {
	Register(delimitedFormat{})
	Register(workbookFormat{})
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported file format")
