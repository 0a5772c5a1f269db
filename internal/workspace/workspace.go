package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/ingest"
	"github.com/KaramelBytes/datahub-cli/internal/parser"
	"github.com/KaramelBytes/datahub-cli/internal/table"
	"github.com/KaramelBytes/datahub-cli/internal/utils"
)

const (
	// ManifestName is the file marking a workspace directory.
	ManifestName = "workspace.json"
	dataDirName  = "data"
	inboxDirName = "inbox"
)

// Workspace is a directory of datasets persisted on disk.
type Workspace struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Datasets    map[string]*Dataset `json:"datasets"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	// Not serialized: on-disk location of the manifest
	rootDir string `json:"-"`
}

// Dataset is the manifest entry for one stored file.
type Dataset struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	File    string      `json:"file"`
	Kind    fields.Kind `json:"kind"`
	Rows    int         `json:"rows"`
	Columns int         `json:"columns"`
	Source  string      `json:"source,omitempty"`
	AddedAt time.Time   `json:"added_at"`
}

// New constructs an in-memory workspace. Call Save to persist.
func New(name, description, rootDir string) *Workspace {
	now := time.Now()
	return &Workspace{
		Name:        name,
		Description: description,
		Datasets:    make(map[string]*Dataset),
		CreatedAt:   now,
		UpdatedAt:   now,
		rootDir:     rootDir,
	}
}

// Load reads the manifest from dir.
func Load(dir string) (*Workspace, error) {
	path := filepath.Join(dir, ManifestName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	var w Workspace
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("parse workspace: %w", err)
	}
	if w.Datasets == nil {
		w.Datasets = make(map[string]*Dataset)
	}
	w.rootDir = dir
	return &w, nil
}

// Find returns the nearest directory at or above start holding a manifest.
func Find(start string) (string, error) {
	return utils.FindRoot(start, ManifestName)
}

// RootDir returns the workspace directory.
func (w *Workspace) RootDir() string { return w.rootDir }

// DataDir holds the stored dataset copies.
func (w *Workspace) DataDir() string { return filepath.Join(w.rootDir, dataDirName) }

// InboxDir is the drop folder picked up by the watcher.
func (w *Workspace) InboxDir() string { return filepath.Join(w.rootDir, inboxDirName) }

// Save writes the manifest atomically and makes sure the data and inbox
// folders exist.
func (w *Workspace) Save() error {
	if w.rootDir == "" {
		return errors.New("workspace root directory not set")
	}
	for _, dir := range []string{w.rootDir, w.DataDir(), w.InboxDir()} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("ensure dir: %w", err)
		}
	}
	w.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(w)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(w.rootDir, ManifestName), data)
}

// AddDataset validates and parses the file at path through svc, stores a copy
// under the data folder and records it in the manifest. The dataset is also
// retained by svc.
func (w *Workspace) AddDataset(path string, kind fields.Kind, svc *ingest.Service) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	name := filepath.Base(path)
	parsed, err := svc.Parse(name, kind, data)
	if err != nil {
		return nil, err
	}
	file := parsed.ID + strings.ToLower(filepath.Ext(name))
	if err := utils.EnsureDir(w.DataDir()); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	if err := utils.SafeWriteFile(filepath.Join(w.DataDir(), file), data); err != nil {
		return nil, fmt.Errorf("store dataset: %w", err)
	}
	d := &Dataset{
		ID:      parsed.ID,
		Name:    name,
		File:    file,
		Kind:    parsed.Kind,
		Rows:    parsed.Table.RowCount(),
		Columns: parsed.Table.ColumnCount(),
		Source:  path,
		AddedAt: parsed.UploadedAt,
	}
	if w.Datasets == nil {
		w.Datasets = make(map[string]*Dataset)
	}
	w.Datasets[d.ID] = d
	w.UpdatedAt = time.Now()
	svc.Restore(parsed)
	return d, nil
}

// RemoveDataset deletes a dataset and its stored copy. ids may be given as a
// unique prefix.
func (w *Workspace) RemoveDataset(id string) (*Dataset, error) {
	d, err := w.Lookup(id)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(filepath.Join(w.DataDir(), d.File)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove stored copy: %w", err)
	}
	delete(w.Datasets, d.ID)
	w.UpdatedAt = time.Now()
	return d, nil
}

// Lookup resolves a full id or a unique id prefix.
func (w *Workspace) Lookup(id string) (*Dataset, error) {
	if d, ok := w.Datasets[id]; ok {
		return d, nil
	}
	var found *Dataset
	for k, d := range w.Datasets {
		if id != "" && strings.HasPrefix(k, id) {
			if found != nil {
				return nil, fmt.Errorf("dataset id %q is ambiguous", id)
			}
			found = d
		}
	}
	if found == nil {
		return nil, fmt.Errorf("dataset %q not found", id)
	}
	return found, nil
}

// List returns datasets ordered by time added.
func (w *Workspace) List() []*Dataset {
	out := make([]*Dataset, 0, len(w.Datasets))
	for _, d := range w.Datasets {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Hydrate re-parses every stored copy into svc, keeping dataset ids.
func (w *Workspace) Hydrate(svc *ingest.Service, opt table.Options) error {
	var errs []error
	for _, d := range w.List() {
		t, err := parser.ParseFile(filepath.Join(w.DataDir(), d.File), opt)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
			continue
		}
		svc.Restore(&ingest.Dataset{ID: d.ID, Name: d.Name, Kind: d.Kind, Table: t, UploadedAt: d.AddedAt})
	}
	return errors.Join(errs...)
}

// Sources returns one loader per domain with stored datasets. A loader fails
// when any copy of its domain cannot be re-parsed, so that domain falls back
// as a whole.
func (w *Workspace) Sources(opt table.Options) map[fields.Kind]dashboard.Source {
	byKind := map[fields.Kind][]*Dataset{}
	for _, d := range w.List() {
		byKind[d.Kind] = append(byKind[d.Kind], d)
	}
	src := make(map[fields.Kind]dashboard.Source, len(byKind))
	for k, ds := range byKind {
		src[k] = func(ctx context.Context) ([]table.Table, error) {
			out := make([]table.Table, 0, len(ds))
			for _, d := range ds {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				t, err := parser.ParseFile(filepath.Join(w.DataDir(), d.File), opt)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", d.Name, err)
				}
				out = append(out, t)
			}
			return out, nil
		}
	}
	return src
}
