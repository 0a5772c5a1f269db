package dashboard

import (
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/datahub-cli/internal/analysis"
	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/kpi"
	"github.com/KaramelBytes/datahub-cli/internal/rollup"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

// SalesData is the sales domain's contribution to a payload.
type SalesData struct {
	Headline    SalesHeadline
	ByCategory  []GroupStat
	ByRegion    []GroupStat
	RegionChart []RegionSales
	ByChannel   []GroupStat
	TopSellers  []GroupStat
	TopProducts []GroupStat
	ByMonth     []GroupStat
	Stock       []rollup.StockItem
	Quality     string
	Fallback    bool
}

// MetricsData is the metrics domain's contribution.
type MetricsData struct {
	KPIs     kpi.Set
	Details  kpi.Set
	Section  MetricsSection
	Quality  string
	Fallback bool
}

// CostsData is the cost domain's contribution.
type CostsData struct {
	Fixed      float64
	Variable   float64
	Total      float64
	Categories []CostSlice
	Quality    string
	Fallback   bool
}

// FinancialData is the financial domain's contribution.
type FinancialData struct {
	Quarter  Quarter
	Monthly  []MonthFigures
	Ratios   Ratios
	Quality  string
	Fallback bool
}

// Quarter holds period-to-date financial totals.
type Quarter struct {
	Receita      float64 `json:"receita"`
	Custos       float64 `json:"custos"`
	LucroBruto   float64 `json:"lucro_bruto"`
	Margem       float64 `json:"margem"`
	Ebitda       float64 `json:"ebitda,omitempty"`
	LucroLiquido float64 `json:"lucro_liquido"`
}

// MonthFigures is one period of the financial series.
type MonthFigures struct {
	Mes     string  `json:"mes"`
	Receita float64 `json:"receita"`
	Lucro   float64 `json:"lucro"`
	Margem  float64 `json:"margem"`
}

// Ratios are balance-sheet indicators with no dataset column of their own.
type Ratios struct {
	CurrentRatio float64
	QuickRatio   float64
	DebtEquity   float64
	ROE          float64
	RunwayMonths float64
}

// BuildSales runs the sales pipeline over a merged table.
func BuildSales(t table.Table) SalesData {
	res := fields.NewResolver(fields.Sales)
	recs := t.Records
	sum := rollup.Summarize(recs, res)

	byCat := rollup.Aggregate(recs, res, fields.Category, fields.Revenue)
	byReg := rollup.Aggregate(recs, res, fields.Region, fields.Revenue)
	sellers := rollup.Aggregate(having(recs, res, fields.Seller), res, fields.Seller, fields.Revenue)
	products := rollup.Aggregate(having(recs, res, fields.Product), res, fields.Product, fields.Revenue)

	d := SalesData{
		Headline: SalesHeadline{
			ReceitaTotal: round(sum.Revenue.InexactFloat64(), 2),
			VendasTotal:  sum.Transactions,
			TicketMedio:  round(sum.AverageTicket.InexactFloat64(), 2),
			CategoriaTop: sum.TopCategory,
		},
		ByCategory:  groupStats(byCat.TopN(-1)),
		ByRegion:    groupStats(byReg.TopN(-1)),
		ByChannel:   groupStats(rollup.ByChannel(recs, res).TopN(-1)),
		TopSellers:  groupStats(sellers.TopN(rollup.DefaultTopN)),
		TopProducts: groupStats(products.TopN(rollup.DefaultTopN)),
		Stock:       rollup.Inventory(recs, res),
		Quality:     qualityOf(t),
	}
	for _, e := range byReg.TopN(-1) {
		d.RegionChart = append(d.RegionChart, RegionSales{Regiao: e.Key, Vendas: round(e.SumFloat(), 2)})
	}
	d.Headline.CrescimentoMensal = FallbackSales().Headline.CrescimentoMensal
	if len(having(recs, res, fields.Date)) > 0 {
		months := rollup.ByMonth(recs, res, fields.Revenue)
		d.ByMonth = groupStats(months)
		if g, ok := monthOverMonth(months); ok {
			d.Headline.CrescimentoMensal = g
		}
	}
	return d
}

// BuildMetrics runs the metrics pipeline.
func BuildMetrics(t table.Table) MetricsData {
	items := kpi.ItemsFromRecords(t.Records, fields.NewResolver(fields.Metrics))
	rep := kpi.Summarize(items)
	d := MetricsData{
		KPIs:    kpi.Extract(items, kpi.PrimaryKeywords),
		Details: kpi.Extract(items, kpi.DetailKeywords),
		Section: MetricsSection{
			StatusGeral: StatusCounts{
				Acima:  rep.Counts[kpi.AboveTarget],
				Dentro: rep.Counts[kpi.WithinTarget],
				Abaixo: rep.Counts[kpi.BelowTarget],
			},
			AreasAtencao:  append([]kpi.Highlight{}, rep.Attention...),
			PontosFortes:  append([]kpi.Highlight{}, rep.Strengths...),
			TotalMetricas: rep.Total,
		},
		Quality: qualityOf(t),
	}
	return d
}

// BuildCosts runs the cost pipeline. Rows typed "fixo"/"fixed" count as fixed
// costs; everything else is variable.
func BuildCosts(t table.Table) CostsData {
	res := fields.NewResolver(fields.Costs)
	byCat := rollup.Aggregate(t.Records, res, fields.Category, fields.Amount)
	d := CostsData{Quality: qualityOf(t)}
	for _, s := range byCat.Shares() {
		d.Categories = append(d.Categories, CostSlice{Categoria: s.Key, Valor: round(s.SumFloat(), 2), Percentual: s.Percent})
	}
	sort.SliceStable(d.Categories, func(i, j int) bool { return d.Categories[i].Valor > d.Categories[j].Valor })
	for _, rec := range t.Records {
		v := res.Number(rec, fields.Amount)
		if strings.HasPrefix(fields.Fold(res.Text(rec, fields.CostType)), "fix") {
			d.Fixed += v
		} else {
			d.Variable += v
		}
	}
	d.Fixed = round(d.Fixed, 2)
	d.Variable = round(d.Variable, 2)
	d.Total = round(d.Fixed+d.Variable, 2)
	return d
}

// BuildFinancial runs the financial pipeline. Periods keep first-seen order.
// Without a profit column, profit is revenue minus costs.
func BuildFinancial(t table.Table) FinancialData {
	res := fields.NewResolver(fields.Financial)
	rev := rollup.Aggregate(t.Records, res, fields.Period, fields.Revenue)
	cost := rollup.Aggregate(t.Records, res, fields.Period, fields.TotalCost)
	prof := rollup.Aggregate(t.Records, res, fields.Period, fields.Profit)
	_, hasProfit := res.Column(t.Headers, fields.Profit)

	d := FinancialData{Ratios: FallbackFinancial().Ratios, Quality: qualityOf(t)}
	var totalProfit float64
	for _, e := range rev.Entries() {
		r := e.SumFloat()
		c, _ := cost.Get(e.Key)
		p := r - c.SumFloat()
		if hasProfit {
			pe, _ := prof.Get(e.Key)
			p = pe.SumFloat()
		}
		totalProfit += p
		d.Monthly = append(d.Monthly, MonthFigures{Mes: e.Key, Receita: round(r, 2), Lucro: round(p, 2), Margem: percent(p, r)})
	}
	q := Quarter{Receita: round(rev.Total().InexactFloat64(), 2), Custos: round(cost.Total().InexactFloat64(), 2)}
	q.LucroBruto = round(q.Receita-q.Custos, 2)
	q.Margem = percent(q.LucroBruto, q.Receita)
	q.LucroLiquido = round(totalProfit, 2)
	d.Quarter = q
	return d
}

func having(recs []table.Record, res *fields.Resolver, f fields.Field) []table.Record {
	var out []table.Record
	for _, r := range recs {
		if res.Has(r, f) {
			out = append(out, r)
		}
	}
	return out
}

func groupStats(entries []rollup.Entry) []GroupStat {
	out := make([]GroupStat, 0, len(entries))
	for _, e := range entries {
		out = append(out, GroupStat{
			Nome:        e.Key,
			Vendas:      e.Count,
			Receita:     round(e.SumFloat(), 2),
			TicketMedio: round(e.AverageFloat(), 2),
			Quantidade:  e.Quantity.InexactFloat64(),
		})
	}
	return out
}

// monthOverMonth is the percentage change between the last two dated buckets.
func monthOverMonth(months []rollup.Entry) (float64, bool) {
	var dated []rollup.Entry
	for _, m := range months {
		if _, ok := rollup.ParseDate("01/" + m.Key); ok {
			dated = append(dated, m)
		}
	}
	if len(dated) < 2 {
		return 0, false
	}
	prev := dated[len(dated)-2].SumFloat()
	last := dated[len(dated)-1].SumFloat()
	if prev == 0 {
		return 0, false
	}
	return round((last-prev)/prev*100, 1), true
}

func qualityOf(t table.Table) string {
	return analysis.QualityLabel(analysis.Profile("", t, analysis.DefaultOptions()).QualityScore())
}

func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round(part/whole*100, 1)
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
