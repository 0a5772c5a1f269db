package fields

import (
	"fmt"
	"strings"
)

// Kind identifies the business domain of a dataset.
type Kind string

const (
	Sales     Kind = "sales"
	Metrics   Kind = "metrics"
	Costs     Kind = "costs"
	Financial Kind = "financial"
)

// Kinds lists every domain in composition order.
var Kinds = []Kind{Sales, Metrics, Costs, Financial}

// ParseKind accepts English and Portuguese domain names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sales", "vendas", "venda":
		return Sales, nil
	case "metrics", "metricas", "métricas", "kpis":
		return Metrics, nil
	case "costs", "cost", "custos", "custo":
		return Costs, nil
	case "financial", "financeiro", "finance":
		return Financial, nil
	}
	return "", fmt.Errorf("unknown dataset kind %q (want sales|metrics|costs|financial)", s)
}

// Field is a canonical, source-independent column slot.
type Field string

const (
	Revenue      Field = "REVENUE"
	Category     Field = "CATEGORY"
	Region       Field = "REGION"
	Seller       Field = "SELLER"
	Product      Field = "PRODUCT"
	Quantity     Field = "QUANTITY"
	Date         Field = "DATE"
	Channel      Field = "CHANNEL"
	Status       Field = "STATUS"
	MetricName   Field = "METRIC_NAME"
	CurrentValue Field = "CURRENT_VALUE"
	TargetValue  Field = "TARGET_VALUE"
	Unit         Field = "UNIT"
	Owner        Field = "OWNER"
	Amount       Field = "AMOUNT"
	CostType     Field = "COST_TYPE"
	Period       Field = "PERIOD"
	TotalCost    Field = "TOTAL_COST"
	Profit       Field = "PROFIT"
	StockCurrent Field = "STOCK_CURRENT"
	StockMin     Field = "STOCK_MIN"
)

// Rule describes how a slot is typed and what it yields when missing.
type Rule struct {
	Numeric bool
	Default string
}

// Rules holds the per-slot typing and default sentinel.
var Rules = map[Field]Rule{
	Revenue:      {Numeric: true},
	Category:     {Default: "Outros"},
	Region:       {Default: "Não informado"},
	Seller:       {Default: "N/A"},
	Product:      {Default: "Não informado"},
	Quantity:     {Numeric: true},
	Date:         {Default: "Sem data"},
	Channel:      {Default: "Outros"},
	Status:       {Default: "N/A"},
	MetricName:   {Default: ""},
	CurrentValue: {Numeric: true},
	TargetValue:  {Numeric: true},
	Unit:         {Default: ""},
	Owner:        {Default: "N/A"},
	Amount:       {Numeric: true},
	CostType:     {Default: "Variável"},
	Period:       {Default: "Sem período"},
	TotalCost:    {Numeric: true},
	Profit:       {Numeric: true},
	StockCurrent: {Numeric: true},
	StockMin:     {Numeric: true},
}

// KindDefaults overrides a slot's default sentinel for one domain.
var KindDefaults = map[Kind]map[Field]string{
	Metrics: {Category: "Geral"},
}

// Aliases is the priority-ordered list of source column names per slot and
// domain: exact export name first, then localized variants, then generic
// fallbacks.
var Aliases = map[Kind]map[Field][]string{
	Sales: {
		Revenue:      {"Receita", "receita", "Valor_Venda", "valor_venda", "Valor", "valor", "vendas", "revenue", "mrr", "valor_contrato"},
		Category:     {"Categoria", "categoria", "category"},
		Region:       {"Região", "regiao", "Regiao", "region", "estado", "cidade", "cidade_filial"},
		Seller:       {"Vendedor", "vendedor", "vendedor_responsavel", "seller"},
		Product:      {"Produto", "nome_produto", "produto", "item", "product"},
		Quantity:     {"Quantidade", "quantidade", "qtd", "quantity"},
		Date:         {"Data", "data", "data_venda", "date"},
		Channel:      {"Canal", "canal", "channel"},
		StockCurrent: {"estoque_atual", "Estoque_Atual"},
		StockMin:     {"estoque_minimo", "Estoque_Minimo"},
	},
	Metrics: {
		MetricName:   {"Metrica", "metrica", "nome", "metric"},
		Category:     {"Categoria", "categoria", "category"},
		CurrentValue: {"Valor_Atual", "valor_atual", "valor", "value"},
		TargetValue:  {"Meta", "meta", "target"},
		Status:       {"Status", "status"},
		Unit:         {"Unidade", "unidade", "unit"},
		Owner:        {"Responsavel", "responsavel", "owner"},
		Date:         {"Data", "data", "date"},
	},
	Costs: {
		Category: {"Categoria", "categoria", "Centro_Custo", "centro_custo", "category"},
		Amount:   {"Valor", "valor", "Custo", "custo", "amount"},
		CostType: {"Tipo", "tipo", "type"},
		Period:   {"Mes", "mes", "Periodo", "periodo", "period"},
	},
	Financial: {
		Period:    {"Mes", "mes", "Periodo", "periodo", "period", "month"},
		Revenue:   {"Receita", "receita", "revenue"},
		TotalCost: {"Custos", "custos", "costs"},
		Profit:    {"Lucro", "lucro", "Lucro_Liquido", "lucro_liquido", "profit"},
	},
}

// signature slots used to guess a dataset's domain from its header.
var signatures = map[Kind][]Field{
	Sales:     {Revenue, Product, Region, Seller, Quantity},
	Metrics:   {MetricName, CurrentValue, TargetValue, Status},
	Costs:     {Amount, CostType},
	Financial: {Period, TotalCost, Profit},
}
