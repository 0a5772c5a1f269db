package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/rollup"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

// Options controls profiling.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	// Zero or less omits the sample section.
	SampleRows int
	// TopValues bounds the categorical top-value list per column.
	TopValues int
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{SampleRows: 5, TopValues: 8}
}

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// Report is a markdown-friendly profile of a tabular dataset.
type Report struct {
	Name     string
	Kind     fields.Kind
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string
	NonNull int
	Missing int
	Unique  int
	// values that parsed as the column's predominant kind
	Consistent int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// Profile infers column kinds and statistics for a parsed table.
func Profile(name string, t table.Table, opt Options) *Report {
	if opt.TopValues <= 0 {
		opt.TopValues = 8
	}
	type colAcc struct {
		nonNil, miss int
		// numeric stats via Welford
		n        int
		mean, m2 float64
		min, max float64
		numCnt   int
		dtCnt    int
		txtCnt   int
		cats     map[string]int
		exText   []string
	}
	cols := make([]*colAcc, len(t.Headers))
	for i := range cols {
		cols[i] = &colAcc{min: math.Inf(1), max: math.Inf(-1), cats: make(map[string]int)}
	}
	rep := &Report{Name: name, Rows: t.RowCount(), Warnings: append([]string(nil), t.Warnings...)}
	if k, ok := fields.DetectKind(t.Headers); ok {
		rep.Kind = k
	}

	for _, rec := range t.Records {
		if len(rep.Samples) < opt.SampleRows {
			row := make([]string, len(t.Headers))
			for i, h := range t.Headers {
				row[i], _ = rec.Get(h)
			}
			rep.Samples = append(rep.Samples, row)
		}
		for j, h := range t.Headers {
			v, _ := rec.Get(h)
			v = strings.TrimSpace(v)
			c := cols[j]
			if v == "" {
				c.miss++
				continue
			}
			c.nonNil++
			if x, ok := fields.ParseNumber(v); ok {
				c.numCnt++
				c.n++
				if x < c.min {
					c.min = x
				}
				if x > c.max {
					c.max = x
				}
				delta := x - c.mean
				c.mean += delta / float64(c.n)
				c.m2 += delta * (x - c.mean)
				continue
			}
			if _, ok := rollup.ParseDate(v); ok {
				c.dtCnt++
				continue
			}
			c.txtCnt++
			if len(c.cats) <= 10000 && len(v) <= 64 {
				c.cats[v]++
			}
			if len(c.exText) < 3 {
				c.exText = append(c.exText, v)
			}
		}
	}

	rep.Cols = make([]ColumnSummary, 0, len(cols))
	for i, c := range cols {
		s := ColumnSummary{Name: t.Headers[i], NonNull: c.nonNil, Missing: c.miss, Kind: KindUnknown}
		switch {
		case c.numCnt >= c.dtCnt && c.numCnt >= c.txtCnt && c.numCnt > 0:
			s.Kind = KindNumeric
			s.Consistent = c.numCnt
			s.Min, s.Max, s.Mean = c.min, c.max, c.mean
			if c.n > 1 {
				s.Std = math.Sqrt(c.m2 / float64(c.n-1))
			}
		case c.dtCnt >= c.txtCnt && c.dtCnt > 0:
			s.Kind = KindDatetime
			s.Consistent = c.dtCnt
		case len(c.cats) > 0:
			s.Kind = KindCategorical
			s.Consistent = c.txtCnt
			tops := make([]CategoryCount, 0, len(c.cats))
			for k, v := range c.cats {
				tops = append(tops, CategoryCount{Value: k, Count: v})
			}
			sort.Slice(tops, func(i, j int) bool {
				if tops[i].Count == tops[j].Count {
					return tops[i].Value < tops[j].Value
				}
				return tops[i].Count > tops[j].Count
			})
			if len(tops) > opt.TopValues {
				tops = tops[:opt.TopValues]
			}
			s.TopValues = tops
			s.Unique = len(c.cats)
		case c.txtCnt > 0:
			s.Kind = KindText
			s.Consistent = c.txtCnt
			s.ExampleTexts = c.exText
		}
		rep.Cols = append(rep.Cols, s)
	}
	return rep
}

// Completeness is the share of non-empty cells, in [0,1].
func (r *Report) Completeness() float64 {
	var filled, total int
	for _, c := range r.Cols {
		filled += c.NonNull
		total += c.NonNull + c.Missing
	}
	if total == 0 {
		return 0
	}
	return float64(filled) / float64(total)
}

// Consistency is the mean share of non-empty values matching their column's
// predominant kind, in [0,1].
func (r *Report) Consistency() float64 {
	var sum float64
	var n int
	for _, c := range r.Cols {
		if c.NonNull == 0 {
			continue
		}
		sum += float64(c.Consistent) / float64(c.NonNull)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// QualityScore combines completeness and consistency into a 0-100 score.
func (r *Report) QualityScore() float64 {
	score := (r.Completeness()*0.6 + r.Consistency()*0.4) * 100
	return math.Round(score*10) / 10
}

// Quality labels, best to worst.
const (
	QualityExcellent = "excelente"
	QualityGood      = "boa"
	QualityFair      = "regular"
	QualityPoor      = "baixa"
)

// QualityLabel maps a 0-100 score to a qualitative label.
func QualityLabel(score float64) string {
	switch {
	case score >= 90:
		return QualityExcellent
	case score >= 75:
		return QualityGood
	case score >= 50:
		return QualityFair
	default:
		return QualityPoor
	}
}

var qualityRank = map[string]int{QualityExcellent: 3, QualityGood: 2, QualityFair: 1, QualityPoor: 0}

// WorstLabel returns the lowest-ranked label, or excelente for none.
func WorstLabel(labels ...string) string {
	worst := QualityExcellent
	for _, l := range labels {
		if rank, ok := qualityRank[l]; ok && rank < qualityRank[worst] {
			worst = l
		}
	}
	return worst
}
