package ingest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/parser"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

// ErrNotFound is returned for unknown dataset ids.
var ErrNotFound = errors.New("dataset not found")

// Dataset is one parsed upload retained for aggregation.
type Dataset struct {
	ID         string
	Name       string
	Kind       fields.Kind
	Table      table.Table
	Size       int64
	UploadedAt time.Time
}

// Result is the per-file ingestion summary.
type Result struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Kind        fields.Kind `json:"kind"`
	RowCount    int         `json:"rowCount"`
	ColumnCount int         `json:"columnCount"`
	Columns     []string    `json:"columns"`
	Warnings    []string    `json:"warnings,omitempty"`
	UploadedAt  time.Time   `json:"uploaded_at"`
}

// Summary describes the dataset without its rows.
func (d *Dataset) Summary() Result {
	return Result{
		ID:          d.ID,
		Name:        d.Name,
		Kind:        d.Kind,
		RowCount:    d.Table.RowCount(),
		ColumnCount: d.Table.ColumnCount(),
		Columns:     append([]string(nil), d.Table.Headers...),
		Warnings:    append([]string(nil), d.Table.Warnings...),
		UploadedAt:  d.UploadedAt,
	}
}

// File is one member of a batch upload. An empty Kind is detected from the
// header.
type File struct {
	Name string
	Kind fields.Kind
	Data []byte
}

// Batch collects the outcome of IngestBatch.
type Batch struct {
	Results []Result
	Errors  []error
}

// Err joins every per-file failure, or returns nil.
func (b Batch) Err() error { return errors.Join(b.Errors...) }

// Stats summarizes retained datasets.
type Stats struct {
	Datasets int                 `json:"datasets"`
	Rows     int                 `json:"rows"`
	ByKind   map[fields.Kind]int `json:"by_kind"`
}

// Service validates, parses and retains uploads in memory.
type Service struct {
	mu       sync.RWMutex
	policy   Policy
	opt      table.Options
	datasets map[string]*Dataset
	order    []string
	now      func() time.Time
	log      zerolog.Logger
}

// NewService returns an empty service.
func NewService(policy Policy, opt table.Options, log zerolog.Logger) *Service {
	return &Service{
		policy:   policy,
		opt:      opt,
		datasets: map[string]*Dataset{},
		now:      time.Now,
		log:      log,
	}
}

// Policy returns the upload policy in force.
func (s *Service) Policy() Policy { return s.policy }

// Options returns the parser options uploads are decoded with.
func (s *Service) Options() table.Options { return s.opt }

// Parse validates and decodes one file without retaining it.
func (s *Service) Parse(name string, kind fields.Kind, data []byte) (*Dataset, error) {
	if err := s.policy.Validate(name, int64(len(data))); err != nil {
		return nil, err
	}
	t, err := parser.ParseBytes(name, data, s.opt)
	if err != nil {
		return nil, &ValidationError{File: name, Reason: err.Error()}
	}
	if t.ColumnCount() == 0 {
		return nil, &ValidationError{File: name, Reason: "no header row found"}
	}
	if kind == "" {
		if k, ok := fields.DetectKind(t.Headers); ok {
			kind = k
		} else {
			kind = fields.Sales
		}
	}
	return &Dataset{
		ID:         uuid.NewString(),
		Name:       name,
		Kind:       kind,
		Table:      t,
		Size:       int64(len(data)),
		UploadedAt: s.now(),
	}, nil
}

// Ingest parses one file and retains it.
func (s *Service) Ingest(name string, kind fields.Kind, data []byte) (*Dataset, error) {
	d, err := s.Parse(name, kind, data)
	if err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("upload rejected")
		return nil, err
	}
	s.Restore(d)
	s.log.Info().
		Str("file", name).
		Str("kind", string(d.Kind)).
		Int("rows", d.Table.RowCount()).
		Int("warnings", len(d.Table.Warnings)).
		Msg("dataset ingested")
	return d, nil
}

// IngestBatch ingests every file independently. A rejected file does not
// affect the others.
func (s *Service) IngestBatch(files []File) Batch {
	var b Batch
	for _, f := range files {
		d, err := s.Ingest(f.Name, f.Kind, f.Data)
		if err != nil {
			b.Errors = append(b.Errors, err)
			continue
		}
		b.Results = append(b.Results, d.Summary())
	}
	return b
}

// Restore retains an already parsed dataset, replacing one with the same ID.
func (s *Service) Restore(d *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[d.ID]; !ok {
		s.order = append(s.order, d.ID)
	}
	s.datasets[d.ID] = d
}

// Get returns a retained dataset.
func (s *Service) Get(id string) (*Dataset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[id]
	return d, ok
}

// List summarizes retained datasets in upload order.
func (s *Service) List() []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Result, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.datasets[id].Summary())
	}
	return out
}

// Inputs groups retained tables by domain for the composer.
func (s *Service) Inputs() dashboard.Inputs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in := dashboard.Inputs{}
	for _, id := range s.order {
		d := s.datasets[id]
		in[d.Kind] = append(in[d.Kind], d.Table)
	}
	return in
}

// Remove drops a dataset.
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.datasets, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Reset drops every dataset.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets = map[string]*Dataset{}
	s.order = nil
}

// Stats counts retained datasets and rows.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{ByKind: map[fields.Kind]int{}}
	for _, d := range s.datasets {
		st.Datasets++
		st.Rows += d.Table.RowCount()
		st.ByKind[d.Kind]++
	}
	return st
}
