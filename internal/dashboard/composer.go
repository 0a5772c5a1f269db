package dashboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/datahub-cli/internal/analysis"
	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/kpi"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

// Source loads every table supplied for one domain.
type Source func(ctx context.Context) ([]table.Table, error)

// Join runs sources in order and concatenates their tables. The first error
// fails the whole domain.
func Join(sources ...Source) Source {
	return func(ctx context.Context) ([]table.Table, error) {
		var out []table.Table
		for _, fn := range sources {
			tables, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, tables...)
		}
		return out, nil
	}
}

// Inputs maps a domain to the tables already loaded for it.
type Inputs map[fields.Kind][]table.Table

// PerformanceLabels names the values of charts_data.performance_kpis.
var PerformanceLabels = []string{"ROAS", "LTV/CAC", "Win Rate", "NPS"}

// Composer turns domain datasets into a Payload.
type Composer struct {
	log zerolog.Logger
	now func() time.Time
}

// NewComposer returns a composer stamping payloads with the wall clock.
func NewComposer(log zerolog.Logger) *Composer {
	return &Composer{log: log, now: time.Now}
}

// WithClock replaces the timestamp source.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

// Compose builds a payload from in-memory tables.
func (c *Composer) Compose(ctx context.Context, in Inputs) *Payload {
	src := make(map[fields.Kind]Source, len(in))
	for k, tables := range in {
		src[k] = func(context.Context) ([]table.Table, error) { return tables, nil }
	}
	return c.ComposeFrom(ctx, src)
}

// ComposeFrom runs every domain pipeline concurrently and joins them. A domain
// with no source, no rows, or a failing source is replaced by its fallback;
// failures are recorded on the payload and never abort composition.
func (c *Composer) ComposeFrom(ctx context.Context, src map[fields.Kind]Source) *Payload {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures []Failure
		sales    = FallbackSales()
		metrics  = FallbackMetrics()
		costs    = FallbackCosts()
		fin      = FallbackFinancial()
	)

	load := func(k fields.Kind) (table.Table, bool) {
		fn, ok := src[k]
		if !ok || fn == nil {
			c.log.Debug().Str("domain", string(k)).Msg("no dataset, using fallback")
			return table.Table{}, false
		}
		tables, err := fn(ctx)
		if err != nil {
			c.log.Warn().Err(err).Str("domain", string(k)).Msg("source failed, using fallback")
			mu.Lock()
			failures = append(failures, Failure{Domain: string(k), Error: err.Error()})
			mu.Unlock()
			return table.Table{}, false
		}
		merged := table.Concat(tables...)
		if merged.RowCount() == 0 {
			c.log.Debug().Str("domain", string(k)).Msg("dataset empty, using fallback")
			return table.Table{}, false
		}
		return merged, true
	}

	g.Go(func() error {
		if t, ok := load(fields.Sales); ok {
			sales = BuildSales(t)
		}
		return nil
	})
	g.Go(func() error {
		if t, ok := load(fields.Metrics); ok {
			metrics = BuildMetrics(t)
		}
		return nil
	})
	g.Go(func() error {
		if t, ok := load(fields.Costs); ok {
			costs = BuildCosts(t)
		}
		return nil
	})
	g.Go(func() error {
		if t, ok := load(fields.Financial); ok {
			fin = BuildFinancial(t)
		}
		return nil
	})
	_ = g.Wait()

	p := c.build(sales, metrics, costs, fin)
	sort.SliceStable(failures, func(i, j int) bool { return kindIndex(failures[i].Domain) < kindIndex(failures[j].Domain) })
	p.Falhas = failures
	c.log.Info().
		Bool("sales", !sales.Fallback).
		Bool("metrics", !metrics.Fallback).
		Bool("costs", !costs.Fallback).
		Bool("financial", !fin.Fallback).
		Int("failures", len(failures)).
		Msg("payload composed")
	return p
}

func (c *Composer) build(sales SalesData, metrics MetricsData, costs CostsData, fin FinancialData) *Payload {
	ref := FallbackMetrics()
	primary := func(slot string) float64 { return pick(metrics.KPIs, ref.KPIs, slot) }
	detail := func(slot string) float64 { return pick(metrics.Details, ref.Details, slot) }

	p := &Payload{Sources: append([]string(nil), Sources...)}

	// Revenue follows the sales section; a metrics MRR row only stands in
	// when no sales dataset was supplied.
	revenue := sales.Headline.ReceitaTotal
	if sales.Fallback && !metrics.Fallback {
		if v, ok := metrics.KPIs.Get(kpi.SlotRevenue); ok {
			revenue = v
		}
	}
	p.KPIsExecutivos = ExecutiveKPIs{
		ReceitaTotal:   revenue,
		UsuariosAtivos: int(math.Round(primary(kpi.SlotUsers))),
		TaxaConversao:  primary(kpi.SlotConversion),
		Satisfaction:   primary(kpi.SlotSatisfaction),
		MargemLucro:    profitMargin(sales, costs, fin),
		Crescimento:    growth(sales, fin),
	}
	p.KPIsDetalhados = DetailedKPIs{
		CAC:    detail("cac"),
		LTV:    detail("ltv"),
		Churn:  primary(kpi.SlotChurn),
		NPS:    primary(kpi.SlotNPS),
		ROAS:   detail("roas"),
		Uptime: detail("uptime"),
	}

	ltvCAC := detail("ltv_cac")
	if !metrics.Fallback {
		ltv, okL := metrics.Details.Get("ltv")
		cac, okC := metrics.Details.Get("cac")
		if okL && okC && cac != 0 {
			ltvCAC = round(ltv/cac, 1)
		}
	}

	for _, m := range fin.Monthly {
		p.ChartsData.ReceitaTemporal = append(p.ChartsData.ReceitaTemporal, TimePoint{Periodo: m.Mes, Receita: m.Receita, Lucro: m.Lucro})
	}
	p.ChartsData.CustosCategoria = append([]CostSlice(nil), costs.Categories...)
	p.ChartsData.VendasRegiao = append([]RegionSales(nil), sales.RegionChart...)
	p.ChartsData.PerformanceKPIs = Series{
		Labels:  append([]string(nil), PerformanceLabels...),
		Valores: []float64{detail("roas"), ltvCAC, detail("win_rate"), primary(kpi.SlotNPS)},
	}

	a := &p.AnalyticsAvancadas
	a.Performance.ROAS = detail("roas")
	a.Performance.LTVCAC = ltvCAC
	a.Performance.Payback = detail("payback")
	a.Eficiencia.CostLead = detail("cost_per_lead")
	a.Eficiencia.WinRate = detail("win_rate")
	a.Eficiencia.CycleTime = detail("cycle_time")
	a.Saude.Churn = primary(kpi.SlotChurn)
	a.Saude.NPS = primary(kpi.SlotNPS)
	a.Saude.Uptime = detail("uptime")
	a.Crescimento.MRRGrowth = detail("mrr_growth")
	a.Crescimento.UserGrowth = detail("user_growth")
	a.Crescimento.MarketShare = detail("market_share")
	a.Financeiro = FinancialIndicators{
		CurrentRatio:    fin.Ratios.CurrentRatio,
		QuickRatio:      fin.Ratios.QuickRatio,
		DebtEquity:      fin.Ratios.DebtEquity,
		ROE:             fin.Ratios.ROE,
		RunwayMonths:    fin.Ratios.RunwayMonths,
		CustosFixos:     costs.Fixed,
		CustosVariaveis: costs.Variable,
		CustoTotal:      costs.Total,
	}

	p.Vendas = SalesSection{
		Resumo:        sales.Headline,
		PorCategoria:  nonNil(sales.ByCategory),
		PorRegiao:     nonNil(sales.ByRegion),
		PorCanal:      nonNil(sales.ByChannel),
		TopVendedores: nonNil(sales.TopSellers),
		TopProdutos:   nonNil(sales.TopProducts),
		Sazonalidade:  nonNil(sales.ByMonth),
		Estoque:       sales.Stock,
	}
	p.Metricas = metrics.Section
	if p.Metricas.AreasAtencao == nil {
		p.Metricas.AreasAtencao = []kpi.Highlight{}
	}
	if p.Metricas.PontosFortes == nil {
		p.Metricas.PontosFortes = []kpi.Highlight{}
	}

	var labels []string
	for _, q := range []struct {
		fallback bool
		label    string
	}{{sales.Fallback, sales.Quality}, {metrics.Fallback, metrics.Quality}, {costs.Fallback, costs.Quality}, {fin.Fallback, fin.Quality}} {
		if !q.fallback {
			labels = append(labels, q.label)
		}
	}
	p.DataQuality = analysis.WorstLabel(labels...)
	p.LastUpdate = c.now().Format(time.RFC3339)
	return p
}

// profitMargin is computed from real sales and costs when both are present,
// otherwise it is the financial quarter margin.
func profitMargin(sales SalesData, costs CostsData, fin FinancialData) float64 {
	if !sales.Fallback && !costs.Fallback && sales.Headline.ReceitaTotal > 0 {
		return percent(sales.Headline.ReceitaTotal-costs.Total, sales.Headline.ReceitaTotal)
	}
	return fin.Quarter.Margem
}

// growth is month-over-month revenue change from the financial series, or the
// sales headline growth.
func growth(sales SalesData, fin FinancialData) float64 {
	if !fin.Fallback && len(fin.Monthly) >= 2 {
		prev := fin.Monthly[len(fin.Monthly)-2].Receita
		last := fin.Monthly[len(fin.Monthly)-1].Receita
		if prev != 0 {
			return round((last-prev)/prev*100, 1)
		}
	}
	return sales.Headline.CrescimentoMensal
}

func pick(set, ref kpi.Set, slot string) float64 {
	if v, ok := set.Get(slot); ok {
		return v
	}
	return ref[slot]
}

func nonNil(s []GroupStat) []GroupStat {
	if s == nil {
		return []GroupStat{}
	}
	return append([]GroupStat(nil), s...)
}

func kindIndex(domain string) int {
	for i, k := range fields.Kinds {
		if string(k) == domain {
			return i
		}
	}
	return len(fields.Kinds)
}

// String renders a one-line summary, mostly for logs and the CLI.
func (p *Payload) String() string {
	return fmt.Sprintf("receita=%.2f usuarios=%d conversao=%.2f margem=%.1f quality=%s at %s",
		p.KPIsExecutivos.ReceitaTotal, p.KPIsExecutivos.UsuariosAtivos, p.KPIsExecutivos.TaxaConversao,
		p.KPIsExecutivos.MargemLucro, p.DataQuality, p.LastUpdate)
}
