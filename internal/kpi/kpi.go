package kpi

import (
	"strings"

	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/rollup"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

// MaxHighlights bounds the attention and strength lists.
const MaxHighlights = 5

// Item is one metric row reduced to the fields the extractor needs.
type Item struct {
	Name     string
	Category string
	Status   string
	Unit     string
	Owner    string
	Current  float64
	Target   float64
}

// ItemsFromRecords reads metric rows through the resolver.
func ItemsFromRecords(records []table.Record, res *fields.Resolver) []Item {
	out := make([]Item, 0, len(records))
	for _, rec := range records {
		out = append(out, Item{
			Name:     res.Text(rec, fields.MetricName),
			Category: res.Text(rec, fields.Category),
			Status:   res.Text(rec, fields.Status),
			Unit:     res.Text(rec, fields.Unit),
			Owner:    res.Text(rec, fields.Owner),
			Current:  res.Number(rec, fields.CurrentValue),
			Target:   res.Number(rec, fields.TargetValue),
		})
	}
	return out
}

// ItemsFromRollup turns rollup groups into items named by group key with the
// group sum as current value.
func ItemsFromRollup(r *rollup.Rollup) []Item {
	entries := r.Entries()
	out := make([]Item, 0, len(entries))
	for _, e := range entries {
		out = append(out, Item{Name: e.Key, Current: e.SumFloat()})
	}
	return out
}

// Keyword maps any of its substrings to a canonical KPI slot.
type Keyword struct {
	Match []string
	Slot  string
}

// Canonical KPI slots.
const (
	SlotRevenue      = "receita"
	SlotUsers        = "usuarios"
	SlotConversion   = "conversao"
	SlotSatisfaction = "satisfacao"
	SlotNPS          = "nps"
	SlotChurn        = "churn"
)

// PrimaryKeywords is the ordered headline table. Earlier entries win when a
// metric name matches more than one.
var PrimaryKeywords = []Keyword{
	{Match: []string{"revenue", "receita"}, Slot: SlotRevenue},
	{Match: []string{"users", "usuarios", "usuários"}, Slot: SlotUsers},
	{Match: []string{"conversion", "conversao", "conversão"}, Slot: SlotConversion},
	{Match: []string{"satisfaction", "satisfacao", "satisfação"}, Slot: SlotSatisfaction},
	{Match: []string{"nps"}, Slot: SlotNPS},
	{Match: []string{"churn"}, Slot: SlotChurn},
}

// DetailKeywords covers the secondary indicators shown in detailed views.
var DetailKeywords = []Keyword{
	{Match: []string{"ltv:cac", "ltv/cac", "ltv_cac", "ltv to cac"}, Slot: "ltv_cac"},
	{Match: []string{"cac", "acquisition cost", "custo de aquisicao"}, Slot: "cac"},
	{Match: []string{"ltv", "lifetime value"}, Slot: "ltv"},
	{Match: []string{"roas"}, Slot: "roas"},
	{Match: []string{"uptime", "disponibilidade"}, Slot: "uptime"},
	{Match: []string{"win rate", "taxa de ganho"}, Slot: "win_rate"},
	{Match: []string{"payback"}, Slot: "payback"},
	{Match: []string{"cost per lead", "custo por lead", "cpl"}, Slot: "cost_per_lead"},
	{Match: []string{"cycle time", "ciclo de vendas"}, Slot: "cycle_time"},
	{Match: []string{"market share"}, Slot: "market_share"},
	{Match: []string{"mrr growth"}, Slot: "mrr_growth"},
	{Match: []string{"user growth"}, Slot: "user_growth"},
}

// Set maps KPI slots to values.
type Set map[string]float64

// Get returns a slot value and whether it was extracted.
func (s Set) Get(slot string) (float64, bool) {
	v, ok := s[slot]
	return v, ok
}

// Extract assigns each item's current value to the first keyword (in table
// order) its lower-cased name contains. When several items map to the same
// slot, the last one wins.
func Extract(items []Item, keywords []Keyword) Set {
	out := Set{}
	for _, it := range items {
		if slot, ok := Match(it.Name, keywords); ok {
			out[slot] = it.Current
		}
	}
	return out
}

// Match returns the slot of the first keyword contained in name.
func Match(name string, keywords []Keyword) (string, bool) {
	n := strings.ToLower(name)
	if n == "" {
		return "", false
	}
	for _, k := range keywords {
		for _, m := range k.Match {
			if strings.Contains(n, m) {
				return k.Slot, true
			}
		}
	}
	return "", false
}
