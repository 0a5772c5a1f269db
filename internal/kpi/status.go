package kpi

import "strings"

// Bucket is a coarse performance class derived from a free-text status.
type Bucket string

const (
	AboveTarget  Bucket = "above_target"
	WithinTarget Bucket = "within_target"
	BelowTarget  Bucket = "below_target"
)

// Classify buckets a status label. "Above"/"Acima" is checked before
// "Below"/"Abaixo"; anything else is within target.
func Classify(status string) Bucket {
	switch {
	case strings.Contains(status, "Above") || strings.Contains(status, "Acima"):
		return AboveTarget
	case strings.Contains(status, "Below") || strings.Contains(status, "Abaixo"):
		return BelowTarget
	default:
		return WithinTarget
	}
}

// Highlight is a metric surfaced in the attention or strengths list.
type Highlight struct {
	Metric   string  `json:"metrica"`
	Category string  `json:"categoria"`
	Current  float64 `json:"valor_atual"`
	Target   float64 `json:"meta"`
}

// StatusReport counts items per bucket and lists the first few metrics above
// and below target.
type StatusReport struct {
	Counts    map[Bucket]int
	Attention []Highlight
	Strengths []Highlight
	Total     int
}

// Summarize classifies every item. Attention holds below-target items and
// Strengths above-target items, each in input order and capped at
// MaxHighlights.
func Summarize(items []Item) StatusReport {
	rep := StatusReport{
		Counts: map[Bucket]int{AboveTarget: 0, WithinTarget: 0, BelowTarget: 0},
		Total:  len(items),
	}
	for _, it := range items {
		b := Classify(it.Status)
		rep.Counts[b]++
		h := Highlight{Metric: it.Name, Category: it.Category, Current: it.Current, Target: it.Target}
		switch b {
		case BelowTarget:
			if len(rep.Attention) < MaxHighlights {
				rep.Attention = append(rep.Attention, h)
			}
		case AboveTarget:
			if len(rep.Strengths) < MaxHighlights {
				rep.Strengths = append(rep.Strengths, h)
			}
		}
	}
	return rep
}

// Group is the set of metrics sharing a category.
type Group struct {
	Category string
	Items    []Item
}

// GroupByCategory partitions items by category in first-seen order.
func GroupByCategory(items []Item) []Group {
	var out []Group
	idx := map[string]int{}
	for _, it := range items {
		i, ok := idx[it.Category]
		if !ok {
			i = len(out)
			idx[it.Category] = i
			out = append(out, Group{Category: it.Category})
		}
		out[i].Items = append(out[i].Items, it)
	}
	return out
}
