package rollup

import (
	"sort"

	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/table"
	"github.com/shopspring/decimal"
)

// DefaultTopN is the size of standard rankings.
const DefaultTopN = 5

// Entry is the accumulated state of one group.
type Entry struct {
	Key      string
	Count    int
	Sum      decimal.Decimal
	Quantity decimal.Decimal
}

// Average is Sum/Count, or zero for an empty group.
func (e Entry) Average() decimal.Decimal {
	if e.Count == 0 {
		return decimal.Zero
	}
	return e.Sum.Div(decimal.NewFromInt(int64(e.Count)))
}

// SumFloat returns the sum as a float64.
func (e Entry) SumFloat() float64 { return e.Sum.InexactFloat64() }

// AverageFloat returns the average as a float64.
func (e Entry) AverageFloat() float64 { return e.Average().InexactFloat64() }

// Rollup holds entries in first-seen order.
type Rollup struct {
	entries []Entry
	index   map[string]int
}

func newRollup() *Rollup {
	return &Rollup{index: make(map[string]int)}
}

func (r *Rollup) add(key string, value, qty decimal.Decimal) {
	i, ok := r.index[key]
	if !ok {
		i = len(r.entries)
		r.index[key] = i
		r.entries = append(r.entries, Entry{Key: key})
	}
	e := &r.entries[i]
	e.Count++
	e.Sum = e.Sum.Add(value)
	e.Quantity = e.Quantity.Add(qty)
}

// Entries returns the groups in first-seen order.
func (r *Rollup) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Get returns the entry for a group key.
func (r *Rollup) Get(key string) (Entry, bool) {
	i, ok := r.index[key]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Len is the number of groups.
func (r *Rollup) Len() int { return len(r.entries) }

// Total is the sum across all groups.
func (r *Rollup) Total() decimal.Decimal {
	t := decimal.Zero
	for _, e := range r.entries {
		t = t.Add(e.Sum)
	}
	return t
}

// Count is the number of records aggregated.
func (r *Rollup) Count() int {
	n := 0
	for _, e := range r.entries {
		n += e.Count
	}
	return n
}

// Aggregate groups records by a categorical slot and accumulates a numeric
// slot. Missing group values land in the slot's default bucket and
// non-numeric measures count as zero. Each call starts from fresh state.
func Aggregate(records []table.Record, res *fields.Resolver, by, measure fields.Field) *Rollup {
	r := newRollup()
	for _, rec := range records {
		key := res.Text(rec, by)
		r.add(key, decimal.NewFromFloat(res.Number(rec, measure)), decimal.NewFromFloat(res.Number(rec, fields.Quantity)))
	}
	return r
}

// TopN returns up to n entries ordered by Sum descending. Ties keep first-seen
// order.
func (r *Rollup) TopN(n int) []Entry {
	out := r.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sum.GreaterThan(out[j].Sum)
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Leader returns the group with the largest Sum. The first-seen group wins
// ties.
func (r *Rollup) Leader() (Entry, bool) {
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	best := r.entries[0]
	for _, e := range r.entries[1:] {
		if e.Sum.GreaterThan(best.Sum) {
			best = e
		}
	}
	return best, true
}

// Share is a group's percentage of the rollup total.
type Share struct {
	Entry
	Percent float64
}

// Shares returns each group's percentage of the total, rounded to one decimal.
func (r *Rollup) Shares() []Share {
	total := r.Total()
	out := make([]Share, 0, len(r.entries))
	for _, e := range r.entries {
		pct := decimal.Zero
		if !total.IsZero() {
			pct = e.Sum.Div(total).Mul(decimal.NewFromInt(100)).Round(1)
		}
		out = append(out, Share{Entry: e, Percent: pct.InexactFloat64()})
	}
	return out
}
