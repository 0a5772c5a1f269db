package rollup_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/rollup"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

const salesCSV = `Produto,Categoria,Receita,Região
A,Tec,100,Sul
B,Tec,50,Norte
C,Casa,abc,Sul
`

func salesRecords(t *testing.T, csv string) []table.Record {
	t.Helper()
	return table.Parse(csv, table.DefaultOptions()).Records
}

func TestAggregate_ByCategory(t *testing.T) {
	res := fields.NewResolver(fields.Sales)
	r := rollup.Aggregate(salesRecords(t, salesCSV), res, fields.Category, fields.Revenue)

	tec, ok := r.Get("Tec")
	if !ok || tec.Count != 2 || tec.SumFloat() != 150 || tec.AverageFloat() != 75 {
		t.Fatalf("Tec entry: %+v", tec)
	}
	casa, ok := r.Get("Casa")
	if !ok || casa.Count != 1 || casa.SumFloat() != 0 || casa.AverageFloat() != 0 {
		t.Fatalf("Casa entry: %+v", casa)
	}
	lead, _ := r.Leader()
	if lead.Key != "Tec" {
		t.Fatalf("leader: %s", lead.Key)
	}
	top := r.TopN(rollup.DefaultTopN)
	if len(top) != 2 || top[0].Key != "Tec" {
		t.Fatalf("top: %+v", top)
	}
}

func TestAggregate_ByRegion(t *testing.T) {
	res := fields.NewResolver(fields.Sales)
	r := rollup.Aggregate(salesRecords(t, salesCSV), res, fields.Region, fields.Revenue)
	sul, _ := r.Get("Sul")
	norte, _ := r.Get("Norte")
	if sul.SumFloat() != 100 || norte.SumFloat() != 50 {
		t.Fatalf("regions: sul=%v norte=%v", sul.SumFloat(), norte.SumFloat())
	}
	if r.Len() != 2 || r.Count() != 3 {
		t.Fatalf("len=%d count=%d", r.Len(), r.Count())
	}
}

func TestAggregate_MissingGroupUsesDefault(t *testing.T) {
	res := fields.NewResolver(fields.Sales)
	recs := salesRecords(t, "Produto,Receita\nX,10\nY,5\n")
	r := rollup.Aggregate(recs, res, fields.Region, fields.Revenue)
	e, ok := r.Get("Não informado")
	if !ok || e.Count != 2 || e.SumFloat() != 15 {
		t.Fatalf("default bucket: %+v", e)
	}
}

func TestAggregate_CountAndSumProperty(t *testing.T) {
	res := fields.NewResolver(fields.Sales)
	var sb strings.Builder
	sb.WriteString("Categoria,Receita\n")
	want := map[string]int{}
	wantSum := map[string]float64{}
	for i := 0; i < 40; i++ {
		cat := fmt.Sprintf("c%d", i%7)
		val := float64(i) * 1.25
		fmt.Fprintf(&sb, "%s,%.2f\n", cat, val)
		want[cat]++
		wantSum[cat] += val
	}
	recs := salesRecords(t, sb.String())
	r := rollup.Aggregate(recs, res, fields.Category, fields.Revenue)
	total := 0
	for _, e := range r.Entries() {
		if e.Count != want[e.Key] {
			t.Fatalf("%s count %d want %d", e.Key, e.Count, want[e.Key])
		}
		if e.SumFloat() != wantSum[e.Key] {
			t.Fatalf("%s sum %v want %v", e.Key, e.SumFloat(), wantSum[e.Key])
		}
		total += e.Count
	}
	if total != len(recs) {
		t.Fatalf("counts sum to %d, want %d", total, len(recs))
	}
	// idempotent
	again := rollup.Aggregate(recs, res, fields.Category, fields.Revenue)
	a, b := r.Entries(), again.Entries()
	for i := range a {
		if a[i].Key != b[i].Key || a[i].Count != b[i].Count || !a[i].Sum.Equal(b[i].Sum) {
			t.Fatalf("second run differs at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestTopN_StableTies(t *testing.T) {
	res := fields.NewResolver(fields.Sales)
	recs := salesRecords(t, "Categoria,Receita\nb,10\na,10\nc,30\nd,10\ne,1\nf,2\n")
	top := rollup.Aggregate(recs, res, fields.Category, fields.Revenue).TopN(5)
	var keys []string
	for _, e := range top {
		keys = append(keys, e.Key)
	}
	if got := strings.Join(keys, ","); got != "c,b,a,d,f" {
		t.Fatalf("order: %s", got)
	}
}

func TestShares(t *testing.T) {
	res := fields.NewResolver(fields.Costs)
	recs := salesRecords(t, "Categoria,Valor\nPessoal,750\nMarketing,250\n")
	shares := rollup.Aggregate(recs, res, fields.Category, fields.Amount).Shares()
	if len(shares) != 2 || shares[0].Percent != 75 || shares[1].Percent != 25 {
		t.Fatalf("shares: %+v", shares)
	}
}

func TestSummarize(t *testing.T) {
	s := rollup.Summarize(salesRecords(t, salesCSV), fields.NewResolver(fields.Sales))
	if s.Revenue.InexactFloat64() != 150 || s.Transactions != 3 || s.AverageTicket.InexactFloat64() != 50 || s.TopCategory != "Tec" {
		t.Fatalf("summary: %+v", s)
	}
}

func TestByChannel(t *testing.T) {
	res := fields.NewResolver(fields.Sales)
	varejo := table.Parse("produto,valor_venda,vendedor\nA,100,Ana\nB,0,Ana\n", table.DefaultOptions())
	atacado := table.Parse("produto,valor_venda,vendedor_responsavel\nC,300,Rui\n", table.DefaultOptions())
	estoque := table.Parse("nome_produto,estoque_atual,estoque_minimo,valor\nD,5,10,999\n", table.DefaultOptions())
	all := table.Concat(varejo, atacado, estoque)
	r := rollup.ByChannel(all.Records, res)
	v, _ := r.Get(rollup.ChannelRetail)
	a, _ := r.Get(rollup.ChannelWholesale)
	if v.Count != 1 || v.SumFloat() != 100 || a.SumFloat() != 300 || r.Len() != 2 {
		t.Fatalf("channels: %+v", r.Entries())
	}
}

func TestByMonth(t *testing.T) {
	res := fields.NewResolver(fields.Sales)
	recs := salesRecords(t, "data,valor\n15/02/2024,10\n03/01/2024,5\n20/02/2024,1\nontem,7\n")
	got := rollup.ByMonth(recs, res, fields.Revenue)
	var keys []string
	for _, e := range got {
		keys = append(keys, fmt.Sprintf("%s=%v", e.Key, e.SumFloat()))
	}
	if s := strings.Join(keys, ","); s != "01/2024=5,02/2024=11,Sem data=7" {
		t.Fatalf("months: %s", s)
	}
}

func TestInventory(t *testing.T) {
	res := fields.NewResolver(fields.Sales)
	recs := salesRecords(t, "nome_produto,estoque_atual,estoque_minimo\nA,5,10\nB,12,10\nC,40,10\n")
	inv := rollup.Inventory(recs, res)
	want := []string{rollup.StockCritical, rollup.StockLow, rollup.StockOK}
	if len(inv) != 3 {
		t.Fatalf("items: %+v", inv)
	}
	for i, it := range inv {
		if it.Status != want[i] {
			t.Errorf("%s: %s want %s", it.Product, it.Status, want[i])
		}
	}
}
