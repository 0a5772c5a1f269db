package dashboard

import (
	"github.com/KaramelBytes/datahub-cli/internal/kpi"
	"github.com/KaramelBytes/datahub-cli/internal/rollup"
)

// Sources names the upstream systems a payload is attributed to.
var Sources = []string{"ERP Financeiro", "CRM Vendas", "Analytics Platform", "Sistema RH"}

// Payload is the composed dashboard document served to the presentation layer.
type Payload struct {
	KPIsExecutivos     ExecutiveKPIs     `json:"kpis_executivos"`
	KPIsDetalhados     DetailedKPIs      `json:"kpis_detalhados"`
	ChartsData         ChartsData        `json:"charts_data"`
	AnalyticsAvancadas AdvancedAnalytics `json:"analytics_avancadas"`
	Vendas             SalesSection      `json:"vendas"`
	Metricas           MetricsSection    `json:"metricas"`
	DataQuality        string            `json:"data_quality"`
	LastUpdate         string            `json:"last_update"`
	Sources            []string          `json:"sources"`
	Falhas             []Failure         `json:"falhas,omitempty"`
}

// ExecutiveKPIs are the headline figures shown at the top of the dashboard.
type ExecutiveKPIs struct {
	ReceitaTotal   float64 `json:"receita_total"`
	UsuariosAtivos int     `json:"usuarios_ativos"`
	TaxaConversao  float64 `json:"taxa_conversao"`
	Satisfaction   float64 `json:"satisfaction"`
	MargemLucro    float64 `json:"margem_lucro"`
	Crescimento    float64 `json:"crescimento"`
}

// DetailedKPIs holds the secondary acquisition and health metrics.
type DetailedKPIs struct {
	CAC    float64 `json:"cac"`
	LTV    float64 `json:"ltv"`
	Churn  float64 `json:"churn"`
	NPS    float64 `json:"nps"`
	ROAS   float64 `json:"roas"`
	Uptime float64 `json:"uptime"`
}

// ChartsData feeds the dashboard charts.
type ChartsData struct {
	ReceitaTemporal []TimePoint   `json:"receita_temporal"`
	CustosCategoria []CostSlice   `json:"custos_categoria"`
	VendasRegiao    []RegionSales `json:"vendas_regiao"`
	PerformanceKPIs Series        `json:"performance_kpis"`
}

// TimePoint is one period of the revenue and profit series.
type TimePoint struct {
	Periodo string  `json:"periodo"`
	Receita float64 `json:"receita"`
	Lucro   float64 `json:"lucro"`
}

// CostSlice is one category share of total cost.
type CostSlice struct {
	Categoria  string  `json:"categoria"`
	Valor      float64 `json:"valor"`
	Percentual float64 `json:"percentual"`
}

// RegionSales is the revenue of one region.
type RegionSales struct {
	Regiao string  `json:"regiao"`
	Vendas float64 `json:"vendas"`
}

// Series is a labelled list of values for simple charts.
type Series struct {
	Labels  []string  `json:"labels"`
	Valores []float64 `json:"valores"`
}

// AdvancedAnalytics groups derived indicators by theme.
type AdvancedAnalytics struct {
	Performance struct {
		ROAS    float64 `json:"roas"`
		LTVCAC  float64 `json:"ltv_cac"`
		Payback float64 `json:"payback"`
	} `json:"performance"`
	Eficiencia struct {
		CostLead  float64 `json:"cost_lead"`
		WinRate   float64 `json:"win_rate"`
		CycleTime float64 `json:"cycle_time"`
	} `json:"eficiencia"`
	Saude struct {
		Churn  float64 `json:"churn"`
		NPS    float64 `json:"nps"`
		Uptime float64 `json:"uptime"`
	} `json:"saude"`
	Crescimento struct {
		MRRGrowth   float64 `json:"mrr_growth"`
		UserGrowth  float64 `json:"user_growth"`
		MarketShare float64 `json:"market_share"`
	} `json:"crescimento"`
	Financeiro FinancialIndicators `json:"financeiro"`
}

// FinancialIndicators combines balance ratios with the cost split.
type FinancialIndicators struct {
	CurrentRatio    float64 `json:"current_ratio"`
	QuickRatio      float64 `json:"quick_ratio"`
	DebtEquity      float64 `json:"debt_equity"`
	ROE             float64 `json:"roe"`
	RunwayMonths    float64 `json:"runway_months"`
	CustosFixos     float64 `json:"custos_fixos"`
	CustosVariaveis float64 `json:"custos_variaveis"`
	CustoTotal      float64 `json:"custo_total"`
}

// SalesSection is the drill-down view of the sales domain.
type SalesSection struct {
	Resumo        SalesHeadline      `json:"resumo"`
	PorCategoria  []GroupStat        `json:"por_categoria"`
	PorRegiao     []GroupStat        `json:"por_regiao"`
	PorCanal      []GroupStat        `json:"por_canal"`
	TopVendedores []GroupStat        `json:"top_vendedores"`
	TopProdutos   []GroupStat        `json:"top_produtos"`
	Sazonalidade  []GroupStat        `json:"sazonalidade"`
	Estoque       []rollup.StockItem `json:"estoque,omitempty"`
}

// SalesHeadline summarizes the sales domain.
type SalesHeadline struct {
	ReceitaTotal      float64 `json:"receita_total"`
	VendasTotal       int     `json:"vendas_total"`
	TicketMedio       float64 `json:"ticket_medio"`
	CategoriaTop      string  `json:"categoria_top"`
	CrescimentoMensal float64 `json:"crescimento_mensal"`
}

// GroupStat is one rollup entry rendered for the payload.
type GroupStat struct {
	Nome        string  `json:"nome"`
	Vendas      int     `json:"vendas"`
	Receita     float64 `json:"receita"`
	TicketMedio float64 `json:"ticket_medio"`
	Quantidade  float64 `json:"quantidade,omitempty"`
}

// MetricsSection summarizes metric status.
type MetricsSection struct {
	StatusGeral   StatusCounts    `json:"status_geral"`
	AreasAtencao  []kpi.Highlight `json:"areas_atencao"`
	PontosFortes  []kpi.Highlight `json:"pontos_fortes"`
	TotalMetricas int             `json:"total_metricas"`
}

// StatusCounts tallies metrics by status against target.
type StatusCounts struct {
	Acima  int `json:"acima"`
	Dentro int `json:"dentro"`
	Abaixo int `json:"abaixo"`
}

// Failure records a domain whose source could not be read.
type Failure struct {
	Domain string `json:"dominio"`
	Error  string `json:"erro"`
}

// Clone returns a deep copy safe to mutate independently.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	c := *p
	c.ChartsData.ReceitaTemporal = append([]TimePoint(nil), p.ChartsData.ReceitaTemporal...)
	c.ChartsData.CustosCategoria = append([]CostSlice(nil), p.ChartsData.CustosCategoria...)
	c.ChartsData.VendasRegiao = append([]RegionSales(nil), p.ChartsData.VendasRegiao...)
	c.ChartsData.PerformanceKPIs.Labels = append([]string(nil), p.ChartsData.PerformanceKPIs.Labels...)
	c.ChartsData.PerformanceKPIs.Valores = append([]float64(nil), p.ChartsData.PerformanceKPIs.Valores...)
	c.Vendas.PorCategoria = append([]GroupStat(nil), p.Vendas.PorCategoria...)
	c.Vendas.PorRegiao = append([]GroupStat(nil), p.Vendas.PorRegiao...)
	c.Vendas.PorCanal = append([]GroupStat(nil), p.Vendas.PorCanal...)
	c.Vendas.TopVendedores = append([]GroupStat(nil), p.Vendas.TopVendedores...)
	c.Vendas.TopProdutos = append([]GroupStat(nil), p.Vendas.TopProdutos...)
	c.Vendas.Sazonalidade = append([]GroupStat(nil), p.Vendas.Sazonalidade...)
	c.Vendas.Estoque = append([]rollup.StockItem(nil), p.Vendas.Estoque...)
	c.Metricas.AreasAtencao = append([]kpi.Highlight(nil), p.Metricas.AreasAtencao...)
	c.Metricas.PontosFortes = append([]kpi.Highlight(nil), p.Metricas.PontosFortes...)
	c.Sources = append([]string(nil), p.Sources...)
	c.Falhas = append([]Failure(nil), p.Falhas...)
	return &c
}
