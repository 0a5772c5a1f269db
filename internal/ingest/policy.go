package ingest

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/KaramelBytes/datahub-cli/internal/parser"
)

// DefaultMaxBytes is the upload size limit when none is configured.
const DefaultMaxBytes int64 = 10 << 20

// Policy decides which uploads are accepted.
type Policy struct {
	MaxBytes   int64
	Extensions []string
}

// DefaultPolicy accepts delimited text and xlsx workbooks up to 10 MiB.
func DefaultPolicy() Policy {
	return Policy{MaxBytes: DefaultMaxBytes, Extensions: []string{".csv", ".tsv", ".txt", ".xlsx"}}
}

// ValidationError explains why a single file was rejected.
type ValidationError struct {
	File   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// Validate checks a file's name and size against the policy.
func (p Policy) Validate(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return &ValidationError{File: name, Reason: "missing file extension"}
	}
	if len(p.Extensions) > 0 && !slices.Contains(p.normalized(), ext) {
		return &ValidationError{File: name, Reason: fmt.Sprintf("file type %s not allowed (accepted: %s)", ext, strings.Join(p.normalized(), ", "))}
	}
	if !parser.Supported(name) {
		return &ValidationError{File: name, Reason: fmt.Sprintf("file type %s cannot be parsed", ext)}
	}
	if size == 0 {
		return &ValidationError{File: name, Reason: "file is empty"}
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return &ValidationError{File: name, Reason: fmt.Sprintf("file too large (%s, limit %s)", humanize.IBytes(uint64(size)), humanize.IBytes(uint64(p.MaxBytes)))}
	}
	return nil
}

func (p Policy) normalized() []string {
	out := make([]string, 0, len(p.Extensions))
	for _, e := range p.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
