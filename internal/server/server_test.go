package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"unwrapped/internal/api"
	"unwrapped/internal/composition"
	"unwrapped/internal/config"
	"unwrapped/internal/queue"
	"unwrapped/internal/server"
	"unwrapped/internal/testsupport"
)

type staticStatus struct{ status api.DaemonStatus }

func (s staticStatus) Status(context.Context) api.DaemonStatus { return s.status }

type fixture struct {
	cfg     *config.Config
	store   *queue.Store
	handler http.Handler
	wakes   int
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	f := &fixture{cfg: cfg, store: store}
	deps := server.Deps{
		Renders: api.NewRenderService(store, nil, func() { f.wakes++ }),
		Jobs:    api.NewJobService(store),
		Status:  staticStatus{status: api.DaemonStatus{Running: true, PID: 42}},
	}
	f.handler = server.New(cfg, deps, nil).Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:1234"
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func renderRequest(t *testing.T, username string) api.RenderRequest {
	t.Helper()
	stats := testsupport.SampleStats(username)
	stats.Normalize()
	props, err := json.Marshal(composition.Derive(&stats))
	if err != nil {
		t.Fatalf("marshal props: %v", err)
	}
	return api.RenderRequest{InputProps: props, Username: username}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRenderThenProgress(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/render", renderRequest(t, "Ada"), nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("render: expected 202, got %d (%s)", rec.Code, rec.Body.String())
	}
	ack := decodeBody[api.RenderAck](t, rec)
	if ack.JobID == "" || ack.State != api.StatePending || f.wakes != 1 {
		t.Fatalf("unexpected ack %#v (wakes=%d)", ack, f.wakes)
	}

	rec = f.do(t, http.MethodPost, "/api/progress", api.ProgressRequest{Username: "ada"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("progress: expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"state":"pending"}` {
		t.Fatalf("unexpected progress body %s", body)
	}

	ctx := context.Background()
	if _, err := f.store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if err := f.store.UpdateProgress(ctx, ack.JobID, 0.5); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	rec = f.do(t, http.MethodPost, "/api/progress", api.ProgressRequest{JobID: ack.JobID}, nil)
	if body := strings.TrimSpace(rec.Body.String()); body != `{"state":"rendering","progress":0.5}` {
		t.Fatalf("unexpected rendering body %s", body)
	}

	if err := f.store.MarkDone(ctx, ack.JobID, "/tmp/ada.mp4", "https://cdn.example.com/ada.mp4"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	rec = f.do(t, http.MethodPost, "/api/progress", api.ProgressRequest{JobID: ack.JobID}, nil)
	if body := strings.TrimSpace(rec.Body.String()); body != `{"state":"done","url":"https://cdn.example.com/ada.mp4"}` {
		t.Fatalf("unexpected done body %s", body)
	}
}

func TestRenderReusesIdenticalRequest(t *testing.T) {
	f := newFixture(t)
	req := renderRequest(t, "ada")
	first := decodeBody[api.RenderAck](t, f.do(t, http.MethodPost, "/api/render", req, nil))
	second := decodeBody[api.RenderAck](t, f.do(t, http.MethodPost, "/api/render", req, nil))
	if first.JobID != second.JobID || !second.Reused {
		t.Fatalf("expected reuse, got %#v then %#v", first, second)
	}
}

func TestRenderRejectsInvalidBodies(t *testing.T) {
	f := newFixture(t)
	cases := map[string]any{
		"empty":         "",
		"malformed":     "{",
		"no username":   map[string]any{"inputProps": map[string]any{"login": "ada"}},
		"no inputProps": map[string]any{"username": "ada"},
		"bad planet":    map[string]any{"username": "ada", "inputProps": map[string]any{"login": "ada", "planet": "Pluto"}},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/render", body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
			if decodeBody[api.ErrorResponse](t, rec).Error == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestProgressUnknownJob(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/progress", api.ProgressRequest{Username: "nobody"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := decodeBody[api.ErrorResponse](t, rec).Error; msg != "render job not found" {
		t.Fatalf("unexpected error %q", msg)
	}

	rec = f.do(t, http.MethodPost, "/api/progress", map[string]string{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without reference, got %d", rec.Code)
	}
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	f := newFixture(t, testsupport.WithAPIToken("secret"))
	job := testsupport.NewJob(t, f.store, "ada", "fp")

	if rec := f.do(t, http.MethodGet, "/api/jobs", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/status", nil, http.Header{"Authorization": {"Bearer wrong"}}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}

	auth := http.Header{"Authorization": {"Bearer secret"}}
	rec := f.do(t, http.MethodGet, "/api/jobs?status=pending&limit=5", nil, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decodeBody[api.JobListResponse](t, rec)
	if len(list.Jobs) != 1 || list.Jobs[0].ID != job.ID {
		t.Fatalf("unexpected jobs %#v", list.Jobs)
	}

	rec = f.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil, auth)
	if got := decodeBody[api.JobResponse](t, rec); got.Job.ID != job.ID || got.Job.State != api.StatePending {
		t.Fatalf("unexpected job %#v", got)
	}
	if rec := f.do(t, http.MethodGet, "/api/jobs/missing", nil, auth); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing job, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/api/jobs?status=bogus", nil, auth); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/status", nil, auth)
	if status := decodeBody[api.DaemonStatus](t, rec); !status.Running || status.PID != 42 {
		t.Fatalf("unexpected status %#v", status)
	}

	if rec := f.do(t, http.MethodPost, "/api/progress", api.ProgressRequest{JobID: job.ID}, nil); rec.Code != http.StatusOK {
		t.Fatalf("progress must stay public, got %d", rec.Code)
	}
}

func TestRenderRateLimited(t *testing.T) {
	f := newFixture(t)
	burst := f.cfg.Server.RateLimitBurst
	req := renderRequest(t, "ada")
	for i := 0; i < burst; i++ {
		if rec := f.do(t, http.MethodPost, "/api/render", req, nil); rec.Code != http.StatusAccepted {
			t.Fatalf("request %d: expected 202, got %d", i, rec.Code)
		}
	}
	rec := f.do(t, http.MethodPost, "/api/render", req, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRenderRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	f := newFixture(t)
	burst := f.cfg.Server.RateLimitBurst
	req := renderRequest(t, "ada")
	var accepted int
	for i := 0; i < burst*5; i++ {
		header := http.Header{"X-Forwarded-For": {fmt.Sprintf("203.0.113.%d", i+1)}}
		if rec := f.do(t, http.MethodPost, "/api/render", req, header); rec.Code == http.StatusAccepted {
			accepted++
		}
	}
	if accepted != burst {
		t.Fatalf("expected %d accepted requests from one peer, got %d", burst, accepted)
	}
}

func TestRenderRateLimitTrustsConfiguredProxy(t *testing.T) {
	f := newFixture(t, func(_ testing.TB, cfg *config.Config) {
		cfg.Server.TrustedProxies = []string{"192.0.2.0/24"}
	})
	burst := f.cfg.Server.RateLimitBurst
	req := renderRequest(t, "ada")
	for _, client := range []string{"198.51.100.7", "198.51.100.8"} {
		header := http.Header{"X-Forwarded-For": {client + ", 192.0.2.9"}}
		for i := 0; i < burst; i++ {
			if rec := f.do(t, http.MethodPost, "/api/render", req, header); rec.Code != http.StatusAccepted {
				t.Fatalf("client %s request %d: expected 202, got %d", client, i, rec.Code)
			}
		}
		if rec := f.do(t, http.MethodPost, "/api/render", req, header); rec.Code != http.StatusTooManyRequests {
			t.Fatalf("client %s: expected 429 after burst, got %d", client, rec.Code)
		}
	}
}

func TestServesRenderedVideos(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(filepath.Join(f.cfg.Paths.OutputDir, "ada-job.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	rec := f.do(t, http.MethodGet, "/videos/ada-job.mp4", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "video" {
		t.Fatalf("unexpected video response %d %q", rec.Code, rec.Body.String())
	}
}

func TestStartListensAndStops(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := server.New(cfg, server.Deps{
		Renders: api.NewRenderService(store, nil, nil),
		Jobs:    api.NewJobService(store),
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := srv.Addr()
	if addr == "" {
		t.Fatal("expected bound address")
	}
	resp, err := http.Post("http://"+addr+"/api/progress", "application/json", strings.NewReader(`{"username":"nobody"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	srv.Stop()
	if srv.Addr() != "" {
		t.Fatal("expected no address after Stop")
	}
}
