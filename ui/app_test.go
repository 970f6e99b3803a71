package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airlens/adapters/ingest"
	"airlens/internal/analysis/engine"
	"airlens/internal/testkit"
	"airlens/ports"
)

func newTestApp(withTable bool) *App {
	app := NewApp(engine.New(), testkit.NewInMemoryRunRepository(), ingest.NewReader())
	if withTable {
		generator := testkit.NewSeriesGenerator(testkit.DefaultSeriesConfig())
		table := generator.WithRegions(generator.HourlyTable(), "agra", "delhi")
		app.SetTable(table, &ports.IngestReport{SourcePath: "fixture", RowsKept: table.RowCount()})
	}
	return app
}

func doRequest(t *testing.T, app *App, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, newTestApp(false), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestAnalyzeThenFetchRun(t *testing.T) {
	app := newTestApp(true)

	rec := doRequest(t, app, http.MethodPost, "/api/analyze", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var run map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("invalid run JSON: %v", err)
	}
	if run["target_pollutant"] != "pm2_5" {
		t.Errorf("expected pm2_5 target, got %v", run["target_pollutant"])
	}
	id, _ := run["id"].(string)
	if id == "" {
		t.Fatal("run should carry an id")
	}

	rec = doRequest(t, app, http.MethodGet, "/api/runs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var list struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Count != 1 {
		t.Errorf("expected 1 persisted run, got %d", list.Count)
	}

	rec = doRequest(t, app, http.MethodGet, "/api/runs/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get run: expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, app, http.MethodGet, "/api/runs/"+id+"/report", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("report: expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("report should be HTML, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<h1") {
		t.Error("report body should contain rendered HTML")
	}
}

func TestAnalyzeRequiresDataset(t *testing.T) {
	rec := doRequest(t, newTestApp(false), http.MethodPost, "/api/analyze", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a dataset, got %d", rec.Code)
	}
}

func TestAnalyzeUnknownPollutant(t *testing.T) {
	rec := doRequest(t, newTestApp(true), http.MethodPost, "/api/analyze", `{"pollutant":"o3"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing column, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["code"] == "" {
		t.Error("error responses should carry the application code")
	}
}

func TestAnalyzeRejectsBadJSON(t *testing.T) {
	rec := doRequest(t, newTestApp(true), http.MethodPost, "/api/analyze", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	rec := doRequest(t, newTestApp(true), http.MethodGet, "/api/runs/no-such-run", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown run, got %d", rec.Code)
	}
}

func TestDatasetLoadAndInfo(t *testing.T) {
	app := newTestApp(false)

	csvPath := filepath.Join(t.TempDir(), "readings.csv")
	content := strings.Join([]string{
		"timestamp,city,pm2_5",
		"2024-01-01 00:00:00,delhi,35",
		"2024-01-01 01:00:00,delhi,38",
		"2024-01-01 02:00:00,agra,31",
	}, "\n")
	if err := os.WriteFile(csvPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	rec := doRequest(t, app, http.MethodPost, "/api/datasets/load", `{"file_path":"`+csvPath+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("load: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, app, http.MethodGet, "/api/datasets/info", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("info: expected 200, got %d", rec.Code)
	}
	var info struct {
		Rows    int      `json:"rows"`
		Columns []string `json:"columns"`
		Regions []string `json:"regions"`
	}
	json.Unmarshal(rec.Body.Bytes(), &info)
	if info.Rows != 3 {
		t.Errorf("expected 3 rows, got %d", info.Rows)
	}
	if len(info.Regions) != 2 {
		t.Errorf("expected 2 regions, got %v", info.Regions)
	}
}

func TestDatasetLoadValidation(t *testing.T) {
	app := newTestApp(false)

	rec := doRequest(t, app, http.MethodPost, "/api/datasets/load", `{"file_path":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty path: expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, app, http.MethodPost, "/api/datasets/load", `{"file_path":"/nope/missing.csv"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing file: expected 422, got %d", rec.Code)
	}

	rec = doRequest(t, app, http.MethodGet, "/api/datasets/info", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("info without dataset: expected 404, got %d", rec.Code)
	}
}

func TestRegionEndpoints(t *testing.T) {
	app := newTestApp(true)

	rec := doRequest(t, app, http.MethodGet, "/api/regions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("regions: expected 200, got %d", rec.Code)
	}
	var regions struct {
		RegionColumn string   `json:"region_column"`
		Regions      []string `json:"regions"`
	}
	json.Unmarshal(rec.Body.Bytes(), &regions)
	if regions.RegionColumn != "city" {
		t.Errorf("expected city region column, got %q", regions.RegionColumn)
	}
	if len(regions.Regions) != 2 {
		t.Errorf("expected 2 regions, got %v", regions.Regions)
	}

	rec = doRequest(t, app, http.MethodGet, "/api/regions/compare?metric=mean", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("compare: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var comparison struct {
		Ranked []string `json:"ranked"`
	}
	json.Unmarshal(rec.Body.Bytes(), &comparison)
	if len(comparison.Ranked) != 2 {
		t.Errorf("expected 2 ranked regions, got %v", comparison.Ranked)
	}

	rec = doRequest(t, app, http.MethodGet, "/api/regions/trends", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("trends: expected 200, got %d", rec.Code)
	}
}

func TestRegionEndpointsWithoutRegionColumn(t *testing.T) {
	app := NewApp(engine.New(), testkit.NewInMemoryRunRepository(), ingest.NewReader())
	table := testkit.NewSeriesGenerator(testkit.DefaultSeriesConfig()).HourlyTable()
	app.SetTable(table, nil)

	rec := doRequest(t, app, http.MethodGet, "/api/regions/compare", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a region column, got %d", rec.Code)
	}
}
