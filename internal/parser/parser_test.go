package parser_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/datahub-cli/internal/parser"
	"github.com/KaramelBytes/datahub-cli/internal/table"
	"github.com/xuri/excelize/v2"
)

func TestParseFileCSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "vendas.csv")
	content := "Produto;Categoria;Receita;Região\nNotebook;Tecnologia;1.500,00;Sul\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tb, err := parser.ParseFile(p, table.DefaultOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tb.RowCount() != 1 || tb.ColumnCount() != 4 {
		t.Fatalf("unexpected shape %dx%d", tb.RowCount(), tb.ColumnCount())
	}
	if v, _ := tb.Records[0].Get("Região"); v != "Sul" {
		t.Fatalf("got %q", v)
	}
}

func TestParseBytesUnsupported(t *testing.T) {
	_, err := parser.ParseBytes("report.pdf", []byte("%PDF"), table.DefaultOptions())
	if !errors.Is(err, parser.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if parser.Supported("legacy.xls") {
		t.Fatalf("xls should not be supported")
	}
	if !parser.Supported("DATA.CSV") {
		t.Fatalf("csv should be supported regardless of case")
	}
}

func TestParseBytesXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Métrica", "Valor Atual", "Status"},
		{"Revenue (MRR)", 285833, "Above Target"},
		{"Churn Rate", 2.8, "Within Target"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	tb, err := parser.ParseBytes("metricas.xlsx", buf.Bytes(), table.DefaultOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tb.RowCount() != 2 || tb.ColumnCount() != 3 {
		t.Fatalf("unexpected shape %dx%d", tb.RowCount(), tb.ColumnCount())
	}
	if v, _ := tb.Records[0].Get("Métrica"); v != "Revenue (MRR)" {
		t.Fatalf("got %q", v)
	}
	if _, err := parser.ParseBytes("metricas.xlsx", buf.Bytes(), table.Options{Sheet: "Missing"}); err == nil {
		t.Fatalf("expected error for missing sheet")
	}
}
