package fields

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/KaramelBytes/datahub-cli/internal/table"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Resolver maps canonical slots to values of a record for one domain.
// Resolution never fails: a slot with no usable alias yields its default.
type Resolver struct {
	kind    Kind
	aliases map[Field][]string
	folded  map[Field][]string
}

// NewResolver builds a resolver over the alias table of the given domain.
func NewResolver(kind Kind) *Resolver {
	return NewResolverWith(kind, Aliases[kind])
}

// NewResolverWith builds a resolver over a caller-supplied alias table.
func NewResolverWith(kind Kind, aliases map[Field][]string) *Resolver {
	r := &Resolver{kind: kind, aliases: aliases, folded: make(map[Field][]string, len(aliases))}
	for f, names := range aliases {
		fs := make([]string, len(names))
		for i, n := range names {
			fs[i] = Fold(n)
		}
		r.folded[f] = fs
	}
	return r
}

// Kind returns the domain the resolver was built for.
func (r *Resolver) Kind() Kind { return r.kind }

// Lookup returns the first non-blank value among the slot's aliases. Exact
// names are tried in priority order first, then the same aliases compared
// after case and accent folding.
func (r *Resolver) Lookup(rec table.Record, f Field) (string, bool) {
	for _, name := range r.aliases[f] {
		if v, ok := rec.Get(name); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	folded := r.folded[f]
	if len(folded) == 0 {
		return "", false
	}
	keys := rec.Keys()
	fk := make([]string, len(keys))
	for i, k := range keys {
		fk[i] = Fold(k)
	}
	for _, alias := range folded {
		for i, k := range fk {
			if k != alias {
				continue
			}
			if v, _ := rec.Get(keys[i]); strings.TrimSpace(v) != "" {
				return v, true
			}
		}
	}
	return "", false
}

// Has reports whether the slot resolves to a non-blank value.
func (r *Resolver) Has(rec table.Record, f Field) bool {
	_, ok := r.Lookup(rec, f)
	return ok
}

// Column returns the header name that would serve the slot, if any.
func (r *Resolver) Column(headers []string, f Field) (string, bool) {
	for _, name := range r.aliases[f] {
		for _, h := range headers {
			if h == name {
				return h, true
			}
		}
	}
	for _, alias := range r.folded[f] {
		for _, h := range headers {
			if Fold(h) == alias {
				return h, true
			}
		}
	}
	return "", false
}

// Text resolves a categorical slot, falling back to its default sentinel.
func (r *Resolver) Text(rec table.Record, f Field) string {
	if v, ok := r.Lookup(rec, f); ok {
		return strings.TrimSpace(v)
	}
	return r.Default(f)
}

// Default is the sentinel a categorical slot yields when no alias resolves.
func (r *Resolver) Default(f Field) string {
	if d, ok := KindDefaults[r.kind][f]; ok {
		return d
	}
	return Rules[f].Default
}

// Number resolves a numeric slot. Missing or unparseable values yield 0.
func (r *Resolver) Number(rec table.Record, f Field) float64 {
	v, ok := r.Lookup(rec, f)
	if !ok {
		return 0
	}
	n, _ := ParseNumber(v)
	return n
}

// DetectKind guesses a dataset's domain from its header by counting how many
// signature slots each domain can resolve. Ties go to the earlier domain.
func DetectKind(headers []string) (Kind, bool) {
	best, bestN := Kind(""), 0
	for _, k := range Kinds {
		r := NewResolver(k)
		n := 0
		for _, f := range signatures[k] {
			if _, ok := r.Column(headers, f); ok {
				n++
			}
		}
		if n > bestN {
			best, bestN = k, n
		}
	}
	return best, bestN > 0
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases a column name, strips accents and maps spaces and dashes
// to underscores, so "Região" and "regiao" or "Valor Atual" and "valor_atual"
// compare equal.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, strings.TrimSpace(s))
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, out)
}

// ParseNumber parses a locale-formatted number. It strips currency symbols,
// percent signs and non-breaking spaces and detects whether ',' or '.' is the
// decimal separator. It reports false for non-numeric input.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	for _, sym := range []string{"R$", "US$", "$", "€", "%"} {
		raw = strings.ReplaceAll(raw, sym, "")
	}
	raw = strings.ReplaceAll(raw, "\u00a0", "")
	raw = strings.ReplaceAll(raw, " ", "")
	if raw == "" {
		return 0, false
	}
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	var dec, thou string
	switch {
	case cpos >= 0 && dpos >= 0:
		if cpos > dpos {
			dec, thou = ",", "."
		} else {
			dec, thou = ".", ","
		}
	case cpos >= 0:
		if strings.Count(raw, ",") > 1 {
			thou = ","
		} else {
			dec = ","
		}
	case dpos >= 0:
		if strings.Count(raw, ".") > 1 {
			thou = "."
		} else {
			dec = "."
		}
	}
	if thou != "" {
		raw = strings.ReplaceAll(raw, thou, "")
	}
	if dec == "," {
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
