package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/arcpp/proteome-backend/internal/cache"
	jobrepo "github.com/arcpp/proteome-backend/internal/data/repos/jobs"
	protrepo "github.com/arcpp/proteome-backend/internal/data/repos/proteomics"
	"github.com/arcpp/proteome-backend/internal/data/repos/testutil"
	httpH "github.com/arcpp/proteome-backend/internal/http/handlers"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/coverage"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/summary"
	"github.com/arcpp/proteome-backend/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	db := testutil.SQLite(t)
	ctx := context.Background()

	testutil.SeedProtein(t, ctx, db, "HVO_0001", "D4GVE5", "Pyruvate kinase",
		"MKRDELAGTVKAAEDLRKGSEVAPTKLLDDAGRKQEWVRE", "PXD000001", "PXD000002")
	testutil.SeedProtein(t, ctx, db, "HVO_0003", "", "Hypothetical protein",
		"MAAAAAAAAAAAAAAAAAAA")
	testutil.SeedPeptide(t, ctx, db, "HVO_0001", "PXD000001", "MKRDELAGTV", 1, 10, 0.001, "Oxidation:3")
	testutil.SeedPeptide(t, ctx, db, "HVO_0001", "PXD000002", "ELAGTVKAAEDLRKGS", 5, 20, 0.001, "")

	registry := species.Default(log)
	proteins := protrepo.NewProteinRepo(db, log)
	peptides := protrepo.NewPeptideRepo(db, log)
	datasets := protrepo.NewDatasetRepo(db, log)
	builder := summary.NewBuilder(summary.NewRepoStore(peptides), log, coverage.DefaultQValueThreshold)
	summaryCache := cache.NewSummaryCache(cache.NewMemoryKV(), log, cache.DefaultBatchSize)
	jobs := services.NewJobService(log, jobrepo.NewJobRunRepo(db, log))

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}

	return NewRouter(RouterConfig{
		Log:            log,
		HealthHandler:  httpH.NewHealthHandler(sqlDB, summaryCache),
		CacheHandler:   httpH.NewCacheHandler(summaryCache, jobs, registry),
		JobHandler:     httpH.NewJobHandler(jobs),
		ProteinHandler: httpH.NewProteinHandler(services.NewProteinService(log, proteins, peptides, builder, summaryCache, coverage.DefaultQValueThreshold)),
		SpeciesHandler: httpH.NewSpeciesHandler(
			services.NewListingService(log, registry, proteins, peptides, builder, summaryCache, 2),
			services.NewSpeciesStatsService(log, registry, proteins, peptides, coverage.DefaultQValueThreshold, services.DefaultCoverageStatsTTL),
		),
		DatasetHandler: httpH.NewDatasetHandler(services.NewDatasetService(log, datasets)),
	})
}

func do(t *testing.T, r *gin.Engine, method, target string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, target, rec.Body.String(), err)
		}
	}
	return rec.Code
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}

	var ping map[string]bool
	if code := do(t, r, http.MethodGet, "/api/ping", &ping); code != http.StatusOK || !ping["ok"] {
		t.Fatalf("ping: %d %v", code, ping)
	}

	var health map[string]any
	if code := do(t, r, http.MethodGet, "/api/health", &health); code != http.StatusOK {
		t.Fatalf("health: %d %v", code, health)
	}
	if health["status"] != "healthy" || health["database"] != "connected" || health["cache"] != "connected" {
		t.Fatalf("health body: %v", health)
	}
}

func TestCoverageEndpoint(t *testing.T) {
	r := newTestRouter(t)

	var cov struct {
		ProteinID       string  `json:"protein_id"`
		TotalLength     int     `json:"total_length"`
		CoveredLength   int     `json:"covered_length"`
		CoveragePercent float64 `json:"coverage_percent"`
	}
	if code := do(t, r, http.MethodGet, "/api/coverage/HVO_0001", &cov); code != http.StatusOK {
		t.Fatalf("coverage status: %d", code)
	}
	if cov.TotalLength != 40 || cov.CoveredLength != 20 || cov.CoveragePercent != 50 {
		t.Fatalf("coverage body: %+v", cov)
	}

	var eb errorBody
	if code := do(t, r, http.MethodGet, "/api/coverage/HVO_9999", &eb); code != http.StatusNotFound {
		t.Fatalf("missing protein status: got=%d want=404", code)
	}
	if eb.Error.Code != "not_found" || eb.Error.Message == "" {
		t.Fatalf("error envelope: %+v", eb)
	}
}

func TestResolveEndpoint(t *testing.T) {
	r := newTestRouter(t)

	var eb errorBody
	if code := do(t, r, http.MethodGet, "/api/proteins/resolve", &eb); code != http.StatusBadRequest {
		t.Fatalf("missing q: got=%d want=400", code)
	}

	var res services.ResolveResult
	if code := do(t, r, http.MethodGet, "/api/proteins/resolve?q=D4GVE5", &res); code != http.StatusOK {
		t.Fatalf("resolve status: %d", code)
	}
	if res.ProteinID != "HVO_0001" || res.MatchType != services.MatchUniProt {
		t.Fatalf("resolve body: %+v", res)
	}

	if code := do(t, r, http.MethodGet, "/api/proteins/resolve?q=HVO_4242", nil); code != http.StatusNotFound {
		t.Fatalf("unknown id: got=%d want=404", code)
	}
}

func TestDetailsOmitSequence(t *testing.T) {
	r := newTestRouter(t)

	var body map[string]any
	if code := do(t, r, http.MethodGet, "/api/proteins/HVO_0001/details", &body); code != http.StatusOK {
		t.Fatalf("details status: %d", code)
	}
	if _, ok := body["sequence"]; ok {
		t.Fatalf("details should not carry the sequence: %v", body)
	}
	if body["protein_id"] != "HVO_0001" {
		t.Fatalf("details body: %v", body)
	}
}

func TestProteinSummaryEndpoint(t *testing.T) {
	r := newTestRouter(t)

	var body struct {
		HvoID           string   `json:"hvoId"`
		CoveragePercent float64  `json:"coveragePercent"`
		Modifications   []string `json:"modifications"`
		Source          string   `json:"source"`
	}
	for _, want := range []string{services.SourceAuthoritative, services.SourceCache} {
		if code := do(t, r, http.MethodGet, "/api/proteins/HVO_0001/summary", &body); code != http.StatusOK {
			t.Fatalf("summary status: %d", code)
		}
		if body.Source != want || body.HvoID != "HVO_0001" || body.CoveragePercent != 50 || len(body.Modifications) != 1 {
			t.Fatalf("summary body (want source %s): %+v", want, body)
		}
	}

	if code := do(t, r, http.MethodGet, "/api/proteins/HVO_9999/summary", nil); code != http.StatusNotFound {
		t.Fatalf("missing summary: got=%d want=404", code)
	}
}

func TestPSMsByDatasetEndpoint(t *testing.T) {
	r := newTestRouter(t)

	var body struct {
		Success   bool   `json:"success"`
		ProteinID string `json:"proteinId"`
		Source    string `json:"source"`
		Data      []struct {
			Dataset  string `json:"dataset"`
			PSMCount int    `json:"psmCount"`
		} `json:"data"`
	}
	if code := do(t, r, http.MethodGet, "/api/proteins/HVO_0001/psms-by-dataset", &body); code != http.StatusOK {
		t.Fatalf("psms status: %d", code)
	}
	if !body.Success || body.Source != services.SourceAuthoritative || len(body.Data) != 2 {
		t.Fatalf("psms body: %+v", body)
	}

	if code := do(t, r, http.MethodGet, "/api/proteins/HVO_0003/psms-by-dataset", nil); code != http.StatusNotFound {
		t.Fatalf("no psms: got=%d want=404", code)
	}
}

func TestProteinsSummaryFilters(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		name   string
		target string
		want   []string
	}{
		{"json dataset array", "/api/species/haloferax_volcanii/proteins-summary?datasets=%5B%22PXD000002%22%5D", []string{"HVO_0001"}},
		{"repeated overlaps", "/api/species/haloferax_volcanii/proteins-summary?overlaps=2&overlaps=1", []string{"HVO_0001"}},
		{"json overlap zero", "/api/species/haloferax_volcanii/proteins-summary?overlaps=%5B0%5D", []string{"HVO_0003"}},
		{"comma datasets", "/api/species/haloferax_volcanii/proteins-summary?datasets=PXD000001,PXD000002", []string{"HVO_0001"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var res services.ListResult
			if code := do(t, r, http.MethodGet, tc.target, &res); code != http.StatusOK {
				t.Fatalf("status: %d", code)
			}
			if res.Total != len(tc.want) || len(res.Rows) != len(tc.want) {
				t.Fatalf("rows: total=%d rows=%+v", res.Total, res.Rows)
			}
			for i, id := range tc.want {
				if res.Rows[i].HvoID != id {
					t.Fatalf("row %d: got=%s want=%s", i, res.Rows[i].HvoID, id)
				}
			}
		})
	}

	if code := do(t, r, http.MethodGet, "/api/species/haloferax_volcanii/proteins-summary?overlaps=%5B1%2C", nil); code != http.StatusBadRequest {
		t.Fatalf("malformed overlaps: got=%d want=400", code)
	}
}

func TestPopulateEnqueuesOnce(t *testing.T) {
	r := newTestRouter(t)

	var first struct {
		Created bool `json:"created"`
		Job     struct {
			ID       string `json:"id"`
			EntityID string `json:"entity_id"`
			Status   string `json:"status"`
		} `json:"job"`
	}
	if code := do(t, r, http.MethodPost, "/api/cache/populate?species=haloferax_volcanii", &first); code != http.StatusAccepted {
		t.Fatalf("first populate: got=%d want=202", code)
	}
	if !first.Created || first.Job.ID == "" {
		t.Fatalf("first populate body: %+v", first)
	}

	var second struct {
		Created bool `json:"created"`
		Job     struct {
			ID string `json:"id"`
		} `json:"job"`
	}
	if code := do(t, r, http.MethodPost, "/api/cache/populate?species=haloferax_volcanii", &second); code != http.StatusOK {
		t.Fatalf("second populate: got=%d want=200", code)
	}
	if second.Created || second.Job.ID != first.Job.ID {
		t.Fatalf("expected the queued job back: %+v", second)
	}

	var got struct {
		Job struct {
			ID string `json:"id"`
		} `json:"job"`
	}
	if code := do(t, r, http.MethodGet, "/api/jobs/"+first.Job.ID, &got); code != http.StatusOK || got.Job.ID != first.Job.ID {
		t.Fatalf("get job: %d %+v", code, got)
	}

	if code := do(t, r, http.MethodPost, "/api/cache/populate?species=unknown_species", nil); code != http.StatusBadRequest {
		t.Fatalf("unknown species: got=%d want=400", code)
	}
	if code := do(t, r, http.MethodGet, "/api/jobs/not-a-uuid", nil); code != http.StatusBadRequest {
		t.Fatalf("bad job id: got=%d want=400", code)
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	var body struct {
		Success        bool `json:"success"`
		RedisConnected bool `json:"redisConnected"`
		Seeded         bool `json:"seeded"`
	}
	if code := do(t, r, http.MethodGet, "/api/cache/stats", &body); code != http.StatusOK {
		t.Fatalf("stats status: %d", code)
	}
	if !body.Success || !body.RedisConnected || body.Seeded {
		t.Fatalf("stats body: %+v", body)
	}
}
