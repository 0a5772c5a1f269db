package rollup

import (
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/table"
	"github.com/shopspring/decimal"
)

// SalesSummary is the headline view of a sales dataset.
type SalesSummary struct {
	Revenue       decimal.Decimal
	Transactions  int
	AverageTicket decimal.Decimal
	TopCategory   string
}

// Summarize totals revenue across records and finds the leading category.
func Summarize(records []table.Record, res *fields.Resolver) SalesSummary {
	byCat := Aggregate(records, res, fields.Category, fields.Revenue)
	s := SalesSummary{Revenue: byCat.Total(), Transactions: len(records)}
	if s.Transactions > 0 {
		s.AverageTicket = s.Revenue.Div(decimal.NewFromInt(int64(s.Transactions)))
	}
	if lead, ok := byCat.Leader(); ok {
		s.TopCategory = lead.Key
	}
	return s
}

// Channel names derived from which seller column a row carries.
const (
	ChannelRetail    = "Varejo"
	ChannelWholesale = "Atacado"
)

// ByChannel groups positive-revenue sales rows by channel. An explicit channel
// column wins; otherwise rows with a "vendedor" column are retail and rows
// with "vendedor_responsavel" are wholesale. Inventory and branch-target rows
// are skipped.
func ByChannel(records []table.Record, res *fields.Resolver) *Rollup {
	r := newRollup()
	for _, rec := range records {
		if _, ok := res.Column(rec.Keys(), fields.StockCurrent); ok {
			continue
		}
		if _, ok := rec.Get("meta_mensal"); ok {
			continue
		}
		v := res.Number(rec, fields.Revenue)
		if v <= 0 {
			continue
		}
		r.add(channelOf(rec, res), decimal.NewFromFloat(v), decimal.NewFromFloat(res.Number(rec, fields.Quantity)))
	}
	return r
}

func channelOf(rec table.Record, res *fields.Resolver) string {
	if v, ok := res.Lookup(rec, fields.Channel); ok {
		return strings.TrimSpace(v)
	}
	if v, _ := rec.Get("vendedor"); strings.TrimSpace(v) != "" {
		return ChannelRetail
	}
	if v, _ := rec.Get("vendedor_responsavel"); strings.TrimSpace(v) != "" {
		return ChannelWholesale
	}
	return fields.Rules[fields.Channel].Default
}

var dateLayouts = []string{
	"02/01/2006", "02/01/2006 15:04", "02/01/2006 15:04:05",
	"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "2006/01/02",
}

// ParseDate accepts day-first and ISO dates as found in regional exports.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ByMonth buckets a measure by "MM/YYYY" of the DATE slot. Buckets come back
// in chronological order; rows without a usable date share the slot default
// bucket, which sorts last.
func ByMonth(records []table.Record, res *fields.Resolver, measure fields.Field) []Entry {
	r := newRollup()
	months := map[string]time.Time{}
	undated := fields.Rules[fields.Date].Default
	for _, rec := range records {
		key := undated
		if t, ok := ParseDate(res.Text(rec, fields.Date)); ok {
			key = t.Format("01/2006")
			months[key] = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		}
		r.add(key, decimal.NewFromFloat(res.Number(rec, measure)), decimal.NewFromFloat(res.Number(rec, fields.Quantity)))
	}
	out := r.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		ti, iok := months[out[i].Key]
		tj, jok := months[out[j].Key]
		if iok != jok {
			return iok
		}
		return ti.Before(tj)
	})
	return out
}

// Stock status labels.
const (
	StockCritical = "CRITICO"
	StockLow      = "BAIXO"
	StockOK       = "OK"
)

// StockItem is the inventory position of one product.
type StockItem struct {
	Product string  `json:"produto"`
	Current float64 `json:"atual"`
	Minimum float64 `json:"minimo"`
	Status  string  `json:"status"`
}

// StockStatus classifies a stock level against its minimum.
func StockStatus(current, minimum float64) string {
	switch {
	case current <= minimum:
		return StockCritical
	case current <= minimum*1.5:
		return StockLow
	default:
		return StockOK
	}
}

// Inventory lists stock positions for rows that carry a current-stock column.
func Inventory(records []table.Record, res *fields.Resolver) []StockItem {
	var out []StockItem
	for _, rec := range records {
		if _, ok := res.Column(rec.Keys(), fields.StockCurrent); !ok {
			continue
		}
		cur := res.Number(rec, fields.StockCurrent)
		minimum := res.Number(rec, fields.StockMin)
		out = append(out, StockItem{
			Product: res.Text(rec, fields.Product),
			Current: cur,
			Minimum: minimum,
			Status:  StockStatus(cur, minimum),
		})
	}
	return out
}
