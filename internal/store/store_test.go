package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/fields"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "datahub.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDatasetsRoundTripAndExpiry(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	keep := Dataset{ID: "a", Name: "vendas.csv", Kind: fields.Sales, Content: []byte("Receita\n1\n"), Rows: 1, Columns: 1, UploadedAt: base}
	short := Dataset{ID: "b", Name: "custos.csv", Kind: fields.Costs, Content: []byte("Valor\n2\n"), Rows: 1, Columns: 1, UploadedAt: base.Add(time.Second)}
	if err := s.PutDataset(ctx, keep, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.PutDataset(ctx, short, time.Minute); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListDatasets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "a" || string(list[0].Content) != "Receita\n1\n" || !list[0].UploadedAt.Equal(base) {
		t.Fatalf("list: %+v", list)
	}
	if list[0].ExpiresAt != nil || list[1].ExpiresAt == nil {
		t.Fatalf("expiry: %+v", list)
	}

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	list, _ = s.ListDatasets(ctx)
	if len(list) != 1 || list[0].ID != "a" {
		t.Fatalf("expired dataset still listed: %+v", list)
	}
	n, err := s.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("purge: %d %v", n, err)
	}

	if err := s.DeleteDataset(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDataset(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutDatasetReplaces(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	d := Dataset{ID: "x", Name: "one.csv", Kind: fields.Sales, Content: []byte("a\n1\n"), Rows: 1, Columns: 1}
	if err := s.PutDataset(ctx, d, 0); err != nil {
		t.Fatal(err)
	}
	d.Name = "two.csv"
	if err := s.PutDataset(ctx, d, 0); err != nil {
		t.Fatal(err)
	}
	list, _ := s.ListDatasets(ctx)
	if len(list) != 1 || list[0].Name != "two.csv" {
		t.Fatalf("list: %+v", list)
	}
	if err := s.DeleteAllDatasets(ctx); err != nil {
		t.Fatal(err)
	}
	if list, _ := s.ListDatasets(ctx); len(list) != 0 {
		t.Fatalf("expected empty")
	}
}

func TestSnapshots(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		p := &dashboard.Payload{DataQuality: "boa"}
		p.KPIsExecutivos.UsuariosAtivos = i
		if _, err := s.SaveSnapshot(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	snaps, err := s.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	var p dashboard.Payload
	if err := json.Unmarshal(snaps[0].Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.KPIsExecutivos.UsuariosAtivos != 3 {
		t.Fatalf("newest first: %+v", p.KPIsExecutivos)
	}
	if err := s.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
}
