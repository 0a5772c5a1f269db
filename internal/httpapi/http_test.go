package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/ingest"
	"github.com/KaramelBytes/datahub-cli/internal/live"
	"github.com/KaramelBytes/datahub-cli/internal/store"
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

func init() { gin.SetMode(gin.TestMode) }

func setupTest(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	sim := live.New(nil)
	t.Cleanup(sim.Stop)
	srv := New(Config{
		Ingest:       ingest.NewService(ingest.DefaultPolicy(), table.DefaultOptions(), zerolog.Nop()),
		Composer:     dashboard.NewComposer(zerolog.Nop()),
		Simulator:    sim,
		Store:        st,
		CacheTTL:     time.Hour,
		LiveInterval: 5 * time.Millisecond,
		Log:          zerolog.Nop(),
	})
	return srv, srv.Router()
}

type upload struct {
	field, name, body string
}

func multipartBody(t *testing.T, kind string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if kind != "" {
		_ = w.WriteField("kind", kind)
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write([]byte(f.body))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func do(r http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestPing(t *testing.T) {
	_, r := setupTest(t)
	rr := do(r, http.MethodGet, "/ping", nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "ok") {
		t.Fatalf("ping: %d %s", rr.Code, rr.Body.String())
	}
}

func TestUploadPartialFailure(t *testing.T) {
	srv, r := setupTest(t)
	body, ct := multipartBody(t, "",
		upload{"files", "vendas.csv", "Produto,Categoria,Receita,Região\nA,Tech,100,Sul\nB,Tech,50,Sul\nC,Casa,30,Norte\n"},
		upload{"files", "legacy.xls", "not really"},
	)
	rr := do(r, http.MethodPost, "/upload", body, ct)
	if rr.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].RowCount != 3 || resp.Results[0].ColumnCount != 4 || resp.Results[0].Kind != fields.Sales {
		t.Fatalf("results: %+v", resp.Results)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].File != "legacy.xls" || resp.Message == "" {
		t.Fatalf("errors: %+v", resp)
	}

	// upload is persisted and reflected in the dashboard
	stored, err := srv.store.ListDatasets(context.Background())
	if err != nil || len(stored) != 1 {
		t.Fatalf("stored: %v %v", stored, err)
	}
	rr = do(r, http.MethodGet, "/dashboard", nil, "")
	var p dashboard.Payload
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Vendas.Resumo.ReceitaTotal != 180 || p.Vendas.Resumo.CategoriaTop != "Tech" {
		t.Fatalf("dashboard sales: %+v", p.Vendas.Resumo)
	}
	if p.KPIsExecutivos.MargemLucro != 37.1 {
		t.Fatalf("margin without costs: %v", p.KPIsExecutivos.MargemLucro)
	}
}

func TestUploadRejectsEverything(t *testing.T) {
	_, r := setupTest(t)
	body, ct := multipartBody(t, "", upload{"file", "a.pdf", "x"})
	if rr := do(r, http.MethodPost, "/upload", body, ct); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	body, ct = multipartBody(t, "hr", upload{"file", "a.csv", "a\n1\n"})
	if rr := do(r, http.MethodPost, "/upload", body, ct); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", rr.Code)
	}
	body, ct = multipartBody(t, "")
	if rr := do(r, http.MethodPost, "/upload", body, ct); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty form, got %d", rr.Code)
	}
}

func TestUploadOversizeReportsDeclaredSize(t *testing.T) {
	srv, r := setupTest(t)
	srv.svc = ingest.NewService(ingest.Policy{MaxBytes: 10, Extensions: []string{".csv"}}, table.DefaultOptions(), zerolog.Nop())
	body, ct := multipartBody(t, "", upload{"file", "big.csv", "Produto,Receita\nA,100\n"})
	rr := do(r, http.MethodPost, "/upload", body, ct)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Errors) != 1 || !strings.Contains(resp.Errors[0].Reason, "(22 B, limit 10 B)") {
		t.Fatalf("errors: %+v", resp.Errors)
	}
}

func TestDeleteDatasetAndHistory(t *testing.T) {
	srv, r := setupTest(t)
	body, ct := multipartBody(t, "custos", upload{"file", "custos.csv", "Categoria,Tipo,Valor\nPessoal,Fixo,10\n"})
	rr := do(r, http.MethodPost, "/upload", body, ct)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rr.Code, rr.Body.String())
	}
	var resp UploadResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	id := resp.Results[0].ID

	if rr := do(r, http.MethodDelete, "/datasets/"+id, nil, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr := do(r, http.MethodDelete, "/datasets/"+id, nil, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rr.Code)
	}
	if stored, _ := srv.store.ListDatasets(context.Background()); len(stored) != 0 {
		t.Fatalf("stored copy left: %+v", stored)
	}

	do(r, http.MethodGet, "/dashboard", nil, "")
	do(r, http.MethodGet, "/dashboard", nil, "")
	rr = do(r, http.MethodGet, "/history?limit=1", nil, "")
	var snaps []store.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snaps); err != nil || len(snaps) != 1 {
		t.Fatalf("history: %v %s", err, rr.Body.String())
	}
	if rr := do(r, http.MethodGet, "/history?limit=x", nil, ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", rr.Code)
	}
}

func TestPreloadRestoresStoredUploads(t *testing.T) {
	srv, r := setupTest(t)
	body, ct := multipartBody(t, "", upload{"file", "vendas.csv", "Produto,Receita\nA,10\n"})
	do(r, http.MethodPost, "/upload", body, ct)

	fresh := New(Config{
		Ingest:    ingest.NewService(ingest.DefaultPolicy(), table.DefaultOptions(), zerolog.Nop()),
		Composer:  dashboard.NewComposer(zerolog.Nop()),
		Simulator: live.New(nil),
		Store:     srv.store,
		Log:       zerolog.Nop(),
	})
	if err := fresh.Preload(context.Background()); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if l := fresh.svc.List(); len(l) != 1 || l[0].Name != "vendas.csv" {
		t.Fatalf("restored: %+v", l)
	}
}

func TestLiveStartStopAndStatus(t *testing.T) {
	_, r := setupTest(t)
	rr := do(r, http.MethodPost, "/live/start", nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"started":true`) {
		t.Fatalf("start: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(r, http.MethodPost, "/live/start", nil, "")
	if !strings.Contains(rr.Body.String(), `"started":false`) {
		t.Fatalf("second start: %s", rr.Body.String())
	}
	rr = do(r, http.MethodGet, "/status", nil, "")
	var st StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil || !st.Live || st.Store != "ok" {
		t.Fatalf("status: %v %+v", err, st)
	}
	rr = do(r, http.MethodPost, "/live/stop", nil, "")
	if !strings.Contains(rr.Body.String(), `"running":false`) {
		t.Fatalf("stop: %s", rr.Body.String())
	}
}

// streamRecorder adds the CloseNotifier gin's Stream expects.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

func TestLiveStreamsEvents(t *testing.T) {
	srv, r := setupTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/live", nil).WithContext(ctx)
	rec := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()
	srv.sim.Start(nil, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not end after client left")
	}
	srv.sim.Stop()
	body := rec.Body.String()
	if !strings.Contains(body, "event:payload") || !strings.Contains(body, "kpis_executivos") {
		t.Fatalf("unexpected stream body: %q", body)
	}
}
