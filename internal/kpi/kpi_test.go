package kpi_test

import (
	"fmt"
	"testing"

	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/kpi"
	"github.com/KaramelBytes/datahub-cli/internal/rollup"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

func TestExtract_PrimaryKeywords(t *testing.T) {
	items := []kpi.Item{
		{Name: "Revenue (MRR)", Current: 285833},
		{Name: "Active Users", Current: 12847},
		{Name: "Taxa de Conversão", Current: 3.2},
		{Name: "Customer Satisfaction", Current: 4.8},
		{Name: "NPS Score", Current: 72},
		{Name: "Churn Rate", Current: 2.8},
		{Name: "Office Plants", Current: 9},
	}
	set := kpi.Extract(items, kpi.PrimaryKeywords)
	want := kpi.Set{
		kpi.SlotRevenue: 285833, kpi.SlotUsers: 12847, kpi.SlotConversion: 3.2,
		kpi.SlotSatisfaction: 4.8, kpi.SlotNPS: 72, kpi.SlotChurn: 2.8,
	}
	if len(set) != len(want) {
		t.Fatalf("got %v", set)
	}
	for k, v := range want {
		if got, ok := set.Get(k); !ok || got != v {
			t.Errorf("%s = %v, want %v", k, got, v)
		}
	}
}

func TestExtract_FirstKeywordWinsAndLastItemWins(t *testing.T) {
	// "revenue per user" contains both revenue and users; revenue is earlier.
	items := []kpi.Item{
		{Name: "Revenue per users", Current: 10},
		{Name: "Receita Bruta", Current: 20},
	}
	set := kpi.Extract(items, kpi.PrimaryKeywords)
	if set[kpi.SlotRevenue] != 20 {
		t.Fatalf("expected last match to overwrite, got %v", set[kpi.SlotRevenue])
	}
	if _, ok := set[kpi.SlotUsers]; ok {
		t.Fatalf("users should not be assigned: %v", set)
	}
}

func TestExtract_DetailKeywords(t *testing.T) {
	items := []kpi.Item{
		{Name: "LTV:CAC Ratio", Current: 7},
		{Name: "CAC", Current: 1250},
		{Name: "Customer LTV", Current: 8750},
		{Name: "Platform Uptime", Current: 99.97},
	}
	set := kpi.Extract(items, kpi.DetailKeywords)
	if set["ltv_cac"] != 7 || set["cac"] != 1250 || set["ltv"] != 8750 || set["uptime"] != 99.97 {
		t.Fatalf("detail set: %v", set)
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]kpi.Bucket{
		"Above Target":  kpi.AboveTarget,
		"Acima da Meta": kpi.AboveTarget,
		"Below Target":  kpi.BelowTarget,
		"Abaixo":        kpi.BelowTarget,
		"Within Target": kpi.WithinTarget,
		"":              kpi.WithinTarget,
		"N/A":           kpi.WithinTarget,
	}
	for in, want := range cases {
		if got := kpi.Classify(in); got != want {
			t.Errorf("Classify(%q) = %s want %s", in, got, want)
		}
	}
}

func TestSummarize_BoundedLists(t *testing.T) {
	var items []kpi.Item
	for i := 0; i < 8; i++ {
		items = append(items, kpi.Item{Name: fmt.Sprintf("low%d", i), Status: "Below Target"})
		items = append(items, kpi.Item{Name: fmt.Sprintf("high%d", i), Status: "Above Target"})
	}
	items = append(items, kpi.Item{Name: "mid", Status: "Within Target"})
	rep := kpi.Summarize(items)
	if rep.Total != 17 || rep.Counts[kpi.BelowTarget] != 8 || rep.Counts[kpi.AboveTarget] != 8 || rep.Counts[kpi.WithinTarget] != 1 {
		t.Fatalf("counts: %+v", rep.Counts)
	}
	if len(rep.Attention) != kpi.MaxHighlights || len(rep.Strengths) != kpi.MaxHighlights {
		t.Fatalf("lists: %d/%d", len(rep.Attention), len(rep.Strengths))
	}
	if rep.Attention[0].Metric != "low0" || rep.Strengths[4].Metric != "high4" {
		t.Fatalf("order: %+v %+v", rep.Attention, rep.Strengths)
	}
}

func TestItemsFromRecords(t *testing.T) {
	tb := table.Parse("Metrica,Categoria,Valor_Atual,Meta,Status\nRevenue (MRR),Financial,285833,250000,Above Target\nChurn Rate,Customer,2.8,3,Within Target\n", table.DefaultOptions())
	items := kpi.ItemsFromRecords(tb.Records, fields.NewResolver(fields.Metrics))
	if len(items) != 2 || items[0].Current != 285833 || items[0].Category != "Financial" {
		t.Fatalf("items: %+v", items)
	}
	set := kpi.Extract(items, kpi.PrimaryKeywords)
	if set[kpi.SlotRevenue] != 285833 || set[kpi.SlotChurn] != 2.8 {
		t.Fatalf("set: %v", set)
	}
	groups := kpi.GroupByCategory(items)
	if len(groups) != 2 || groups[1].Category != "Customer" {
		t.Fatalf("groups: %+v", groups)
	}
}

func TestItemsFromRollup(t *testing.T) {
	tb := table.Parse("Categoria,Receita\nReceita Online,10\nReceita Online,5\n", table.DefaultOptions())
	r := rollup.Aggregate(tb.Records, fields.NewResolver(fields.Sales), fields.Category, fields.Revenue)
	set := kpi.Extract(kpi.ItemsFromRollup(r), kpi.PrimaryKeywords)
	if set[kpi.SlotRevenue] != 15 {
		t.Fatalf("set: %v", set)
	}
}
