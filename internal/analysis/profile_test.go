package analysis

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

var salesRows = []string{
	"Data;Produto;Categoria;Receita;Região",
	"05/01/2024;Notebook;Tecnologia;4.500,00;Sudeste",
	"06/01/2024;Cadeira;Móveis;890,90;Sul",
	"07/01/2024;Mesa;Móveis;1.250,00;",
	"08/01/2024;Monitor;Tecnologia;abc;Nordeste",
}

func TestProfileKindsAndMarkdown(t *testing.T) {
	tb := table.Parse(strings.Join(salesRows, "\n"), table.DefaultOptions())
	rep := Profile("vendas.csv", tb, DefaultOptions())
	if rep.Rows != 4 || len(rep.Cols) != 5 {
		t.Fatalf("unexpected shape: rows=%d cols=%d", rep.Rows, len(rep.Cols))
	}
	if rep.Kind != fields.Sales {
		t.Fatalf("expected sales domain, got %q", rep.Kind)
	}
	kinds := map[string]string{}
	for _, c := range rep.Cols {
		kinds[c.Name] = c.Kind
	}
	if kinds["Data"] != KindDatetime || kinds["Receita"] != KindNumeric || kinds["Categoria"] != KindCategorical {
		t.Fatalf("kinds: %v", kinds)
	}
	var receita ColumnSummary
	for _, c := range rep.Cols {
		if c.Name == "Receita" {
			receita = c
		}
	}
	if receita.Min != 890.9 || receita.Max != 4500 || receita.Consistent != 3 || receita.NonNull != 4 {
		t.Fatalf("receita stats: %+v", receita)
	}

	md := rep.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "Domain: sales", "Receita: numeric", "[HEAD AND SAMPLE ROWS]", "Tecnologia(2)"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestQualityScore(t *testing.T) {
	clean := table.Parse("a,b\n1,x\n2,y\n", table.DefaultOptions())
	rep := Profile("clean", clean, DefaultOptions())
	if rep.QualityScore() != 100 || QualityLabel(rep.QualityScore()) != QualityExcellent {
		t.Fatalf("clean score: %v", rep.QualityScore())
	}
	// half the cells empty, numeric column half garbage
	dirty := table.Parse("a,b\n1,\nfoo,\n", table.DefaultOptions())
	rep = Profile("dirty", dirty, DefaultOptions())
	// completeness 2/4 = 0.5; consistency: column a has 1 numeric of 2 (tie goes numeric) = 0.5
	if got := rep.QualityScore(); got != 50 {
		t.Fatalf("dirty score: %v", got)
	}
	if QualityLabel(rep.QualityScore()) != QualityFair {
		t.Fatalf("label: %s", QualityLabel(rep.QualityScore()))
	}
}

func TestWorstLabel(t *testing.T) {
	if WorstLabel() != QualityExcellent {
		t.Fatalf("empty should be excelente")
	}
	if got := WorstLabel(QualityGood, QualityPoor, QualityExcellent); got != QualityPoor {
		t.Fatalf("got %s", got)
	}
}
