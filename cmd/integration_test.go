package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/workspace"
)

// resetFlags clears values bound by earlier invocations.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

func execCmd(args ...string) error {
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const (
	salesCSV = "Produto,Categoria,Receita,Região\nA,Tech,600,Sul\nB,Tech,400,Norte\n"
	costsCSV = "Categoria,Tipo,Valor\nPessoal,Fixo,200\nMarketing,Variável,50\n"
)

func TestCLI_Init_Add_Dashboard(t *testing.T) {
	home := isolateHome(t)
	sales := writeFile(t, filepath.Join(home, "vendas.csv"), salesCSV)
	costs := writeFile(t, filepath.Join(home, "custos.csv"), costsCSV)

	runCmd(t, "init", "itest", "-d", "integration test")
	runCmd(t, "add", "-w", "itest", "-k", "sales", sales)
	runCmd(t, "add", "-w", "itest", "--kind", "custos", costs)
	runCmd(t, "list", "-w", "itest")
	runCmd(t, "list", "--workspaces")

	out := filepath.Join(home, "dash.json")
	runCmd(t, "dashboard", "-w", "itest", "-o", out)
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	var p dashboard.Payload
	if err := json.Unmarshal(b, &p); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if p.KPIsExecutivos.ReceitaTotal != 1000 || p.KPIsExecutivos.MargemLucro != 75 {
		t.Fatalf("unexpected kpis: %+v", p.KPIsExecutivos)
	}
	if p.AnalyticsAvancadas.Financeiro.CustoTotal != 250 {
		t.Fatalf("unexpected costs: %+v", p.AnalyticsAvancadas.Financeiro)
	}
	if len(p.Falhas) != 0 {
		t.Fatalf("unexpected failures: %+v", p.Falhas)
	}
}

func TestCLI_AddRejectsUnsupportedAndRemove(t *testing.T) {
	home := isolateHome(t)
	runCmd(t, "init", "rm")
	pdf := writeFile(t, filepath.Join(home, "report.pdf"), "%PDF")
	if err := execCmd("add", "-w", "rm", pdf); err == nil {
		t.Fatalf("expected error for unsupported file")
	}

	sales := writeFile(t, filepath.Join(home, "vendas.csv"), salesCSV)
	runCmd(t, "add", "-w", "rm", sales, pdf)
	dir, err := resolveWorkspaceDirByName("rm")
	if err != nil {
		t.Fatal(err)
	}
	w, err := workspace.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	ds := w.List()
	if len(ds) != 1 || ds[0].Name != "vendas.csv" {
		t.Fatalf("unexpected datasets: %+v", ds)
	}
	runCmd(t, "remove", "-w", "rm", ds[0].ID[:6])
	if w, _ = workspace.Load(dir); len(w.Datasets) != 0 {
		t.Fatalf("dataset not removed: %+v", w.Datasets)
	}
	if err := execCmd("init", "rm"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected duplicate init to fail, got %v", err)
	}
}

func TestCLI_AdHocFilesAndLive(t *testing.T) {
	home := isolateHome(t)
	sales := writeFile(t, filepath.Join(home, "vendas.csv"), salesCSV)
	out := filepath.Join(home, "dash.json")
	runCmd(t, "dashboard", "-f", "vendas="+sales, "-o", out, "--save")
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !strings.Contains(string(b), `"receita_total": 1000`) {
		t.Fatalf("ad-hoc sales not aggregated:\n%s", b)
	}
	runCmd(t, "history", "-n", "5")
	runCmd(t, "live", "-f", sales, "--ticks", "2", "--interval", "5ms")

	if err := execCmd("dashboard", "-f", "hr="+sales); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}

func TestCLI_DashboardUnreadableFileFallsBack(t *testing.T) {
	home := isolateHome(t)
	sales := writeFile(t, filepath.Join(home, "vendas.csv"), salesCSV)
	missing := filepath.Join(home, "missing.csv")
	out := filepath.Join(home, "dash.json")
	runCmd(t, "dashboard", "--file", "sales="+sales, "--file", "costs="+missing, "-o", out)

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	var p dashboard.Payload
	if err := json.Unmarshal(b, &p); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if len(p.Falhas) != 1 || p.Falhas[0].Domain != "costs" || !strings.Contains(p.Falhas[0].Error, "missing.csv") {
		t.Fatalf("failures: %+v", p.Falhas)
	}
	if p.KPIsExecutivos.ReceitaTotal != 1000 {
		t.Fatalf("sales should still aggregate: %+v", p.KPIsExecutivos)
	}
	if p.KPIsExecutivos.MargemLucro != 37.1 {
		t.Fatalf("costs should fall back: %+v", p.KPIsExecutivos)
	}

	// a bare path that cannot be read is skipped
	runCmd(t, "dashboard", "--summary", "--file", sales, "--file", missing)
	runCmd(t, "live", "--file", "costs="+missing, "--ticks", "1", "--interval", "5ms")
}

func TestCLI_ConfigSetAndAnalyze(t *testing.T) {
	home := isolateHome(t)
	runCmd(t, "config", "set", "max_upload_mb", "1")
	runCmd(t, "config", "show")
	if err := execCmd("config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
	b, err := os.ReadFile(filepath.Join(home, ".datahub", "config.yaml"))
	if err != nil || !strings.Contains(string(b), "max_upload_mb: 1") {
		t.Fatalf("config not saved: %v\n%s", err, b)
	}

	sales := writeFile(t, filepath.Join(home, "vendas.csv"), salesCSV)
	out := filepath.Join(home, "vendas.md")
	runCmd(t, "analyze", sales, "-o", out)
	md, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read analysis: %v", err)
	}
	if !strings.Contains(string(md), "[DATASET SUMMARY]") || !strings.Contains(string(md), "Domain: sales") {
		t.Fatalf("unexpected analysis:\n%s", md)
	}
}
