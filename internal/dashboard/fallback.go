package dashboard

import (
	"github.com/KaramelBytes/datahub-cli/internal/kpi"
)

// Representative figures used when a domain has no data. They keep the
// dashboard populated end to end.

// FallbackSales returns the reference sales contribution.
func FallbackSales() SalesData {
	return SalesData{
		Fallback: true,
		Headline: SalesHeadline{
			ReceitaTotal:      2850000,
			VendasTotal:       1247,
			TicketMedio:       2285,
			CategoriaTop:      "Tecnologia",
			CrescimentoMensal: 6.5,
		},
		ByCategory: []GroupStat{
			{Nome: "Tecnologia", Vendas: 850, Receita: 1920000, TicketMedio: 2258},
			{Nome: "Móveis", Vendas: 297, Receita: 680000, TicketMedio: 2290},
			{Nome: "Casa", Vendas: 100, Receita: 250000, TicketMedio: 2500},
		},
		ByRegion: []GroupStat{
			{Nome: "Sudeste", Vendas: 485, Receita: 1140000},
			{Nome: "Sul", Vendas: 312, Receita: 712000},
			{Nome: "Nordeste", Vendas: 250, Receita: 570000},
			{Nome: "Norte", Vendas: 125, Receita: 285000},
			{Nome: "Centro-Oeste", Vendas: 75, Receita: 143000},
		},
		RegionChart: []RegionSales{
			{Regiao: "Sudeste", Vendas: 485000},
			{Regiao: "Sul", Vendas: 326000},
			{Regiao: "Nordeste", Vendas: 215000},
			{Regiao: "Norte", Vendas: 142000},
			{Regiao: "Centro-Oeste", Vendas: 98000},
		},
		TopSellers: []GroupStat{
			{Nome: "João Silva", Vendas: 95, Receita: 218000},
			{Nome: "Maria Santos", Vendas: 87, Receita: 201000},
			{Nome: "Carlos Lima", Vendas: 82, Receita: 189000},
		},
		TopProducts: []GroupStat{},
		ByChannel:   []GroupStat{},
		ByMonth:     []GroupStat{},
	}
}

// FallbackMetrics returns the reference metrics contribution.
func FallbackMetrics() MetricsData {
	return MetricsData{
		Fallback: true,
		KPIs: kpi.Set{
			kpi.SlotRevenue:      285833,
			kpi.SlotUsers:        12847,
			kpi.SlotConversion:   3.2,
			kpi.SlotSatisfaction: 4.8,
			kpi.SlotNPS:          72,
			kpi.SlotChurn:        2.8,
		},
		Details: kpi.Set{
			"cac":           1250,
			"ltv":           8750,
			"roas":          4.2,
			"ltv_cac":       7.0,
			"payback":       3.2,
			"win_rate":      28.5,
			"cost_per_lead": 85,
			"cycle_time":    32,
			"uptime":        99.97,
			"mrr_growth":    18.2,
			"user_growth":   8.0,
			"market_share":  15.3,
		},
		Section: MetricsSection{
			StatusGeral:   StatusCounts{Acima: 28, Dentro: 15, Abaixo: 7},
			AreasAtencao:  []kpi.Highlight{},
			PontosFortes:  []kpi.Highlight{},
			TotalMetricas: 50,
		},
	}
}

// FallbackCosts returns the reference cost contribution.
func FallbackCosts() CostsData {
	return CostsData{
		Fallback: true,
		Fixed:    665440,
		Variable: 154300,
		Total:    819740,
		Categories: []CostSlice{
			{Categoria: "Pessoal", Valor: 413250, Percentual: 50.4},
			{Categoria: "Tecnologia", Valor: 165950, Percentual: 20.2},
			{Categoria: "Marketing", Valor: 98890, Percentual: 12.1},
			{Categoria: "Administrativo", Valor: 89450, Percentual: 10.9},
			{Categoria: "Outros", Valor: 52200, Percentual: 6.4},
		},
	}
}

// FallbackFinancial returns the reference financial contribution.
func FallbackFinancial() FinancialData {
	return FinancialData{
		Fallback: true,
		Quarter: Quarter{
			Receita:      857500,
			Custos:       539425,
			LucroBruto:   318075,
			Margem:       37.1,
			Ebitda:       276150,
			LucroLiquido: 193365,
		},
		Monthly: []MonthFigures{
			{Mes: "Janeiro", Receita: 245000, Lucro: 52840, Margem: 21.6},
			{Mes: "Fevereiro", Receita: 287500, Lucro: 64470, Margem: 22.4},
			{Mes: "Março", Receita: 325000, Lucro: 76055, Margem: 23.4},
		},
		Ratios: Ratios{CurrentRatio: 2.8, QuickRatio: 2.2, DebtEquity: 0.35, ROE: 18.9, RunwayMonths: 28},
	}
}
