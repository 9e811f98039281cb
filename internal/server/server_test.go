package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/design-coach/internal/coach"
	"github.com/jonathan/design-coach/internal/config"
	"github.com/jonathan/design-coach/internal/diagram"
	"github.com/jonathan/design-coach/internal/drafts"
	"github.com/jonathan/design-coach/internal/generation"
	"github.com/jonathan/design-coach/internal/server/ratelimit"
	"github.com/jonathan/design-coach/internal/types"
)

type failingSource struct {
	*generation.StubSource
}

func (failingSource) APIs(context.Context, string) ([]string, error) {
	return nil, errors.New("dial tcp: connection refused")
}

type testServer struct {
	*Server
	store   *drafts.MemoryStore
	metrics *Metrics
}

type testOptions struct {
	secondary generation.Source
	limiter   *ratelimit.Limiter
}

func newTestServer(t *testing.T, opts ...func(*testOptions)) *testServer {
	t.Helper()
	o := testOptions{
		secondary: generation.NewStubSource(generation.StubSecondary),
		limiter:   ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}),
	}
	for _, opt := range opts {
		opt(&o)
	}

	metrics := NewMetrics()
	service, err := coach.NewService(generation.NewStubSource(generation.StubPrimary), o.secondary, nil, nil,
		coach.WithRecorder(metrics))
	require.NoError(t, err)

	store := drafts.NewMemoryStore()
	srv, err := New(Config{Port: 0, CORSAllowedOrigins: []string{"http://localhost:3000"}}, Deps{
		Service: service,
		Drafts:  store,
		Sessions: NewJWTService(&config.JWTConfig{
			Secret:          testSecret,
			ExpirationHours: 1,
			Issuer:          "design-coach",
		}),
		Limiter: o.limiter,
		Metrics: metrics,
	})
	require.NoError(t, err)
	t.Cleanup(o.limiter.Stop)

	return &testServer{Server: srv, store: store, metrics: metrics}
}

func (ts *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) session(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/sessions", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var session Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNew_RequiresService(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)

	service, err := coach.NewService(generation.NewStubSource(generation.StubPrimary), generation.NewStubSource(generation.StubSecondary), nil, nil)
	require.NoError(t, err)
	_, err = New(Config{}, Deps{Service: service, Drafts: drafts.NewMemoryStore()})
	assert.Error(t, err, "drafts without sessions")
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestValidateRequirements(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/validate",
		`{"topic":"Design a URL Shortener","functionalReqs":["shorten links"],"nonFunctionalReqs":[]}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[types.RequirementsResponse](t, rec)
	assert.Len(t, resp.Functional, 5)
	assert.Len(t, resp.NonFunctional, 5)
	assert.NotNil(t, resp.FunctionalMatched)
	assert.Equal(t, resp.Functional, resp.FunctionalMissed)

	// Lists are arrays, never null
	assert.NotContains(t, rec.Body.String(), "null")
}

func TestValidate_RequestErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		path    string
		body    string
		wantMsg string
	}{
		{name: "invalid JSON", path: "/validate", body: `{"topic":`, wantMsg: "invalid JSON"},
		{name: "missing topic", path: "/validate-apis", body: `{"apis":[]}`, wantMsg: "validation error: topic - is required"},
		{name: "blank topic", path: "/validate-flow", body: `{"topic":"   "}`, wantMsg: "validation error: topic - must not be blank"},
		{name: "wrong type", path: "/validate-estimation", body: `{"topic":"x","estimations":"100 QPS"}`, wantMsg: "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[map[string]string](t, rec)
			assert.Contains(t, body["error"], tt.wantMsg)
		})
	}
}

func TestValidate_SourceFailureIsGeneric(t *testing.T) {
	ts := newTestServer(t, func(o *testOptions) {
		o.secondary = failingSource{generation.NewStubSource(generation.StubSecondary)}
	})

	rec := ts.do(t, http.MethodPost, "/validate-apis", `{"topic":"Design a Chat App","apis":[]}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"request failed"}`, rec.Body.String())
}

func TestValidateEndpoints_AllStages(t *testing.T) {
	ts := newTestServer(t)
	xml := `<mxGraphModel><root><mxCell id="2" value="Load Balancer"/></root></mxGraphModel>`

	tests := []struct {
		path string
		body string
		keys []string
	}{
		{"/validate-diagram", `{"topic":"t","diagramXml":` + quote(xml) + `}`, []string{"elements", "matched", "missed", "suggestedDiagram"}},
		{"/validate-estimation", `{"topic":"t","estimations":["1M DAU"]}`, []string{"elements", "calculationFeedback"}},
		{"/validate-data-model", `{"topic":"t","dataModel":["Users (id)"],"apiDesign":["GET /users"]}`, []string{"feedback", "suggestedMissingTables"}},
		{"/validate-flow", `{"topic":"t","flowSummary":""}`, []string{"correct", "feedback", "improvements"}},
		{"/validate-deep-dives", `{"topic":"t","deepDives":[{"topic":"Caching","userSummary":"LRU"}]}`, []string{"items", "suggestedMissingTopics"}},
		{"/validate-detailed-diagram", `{"topic":"t","diagramXml":""}`, []string{"feedback", "improvements", "suggestedDiagram", "suggestedDiagramPng"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, tt.path, tt.body, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			body := decode[map[string]any](t, rec)
			for _, key := range tt.keys {
				assert.Contains(t, body, key)
			}
		})
	}
}

func TestMergeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/merge",
		`{"listA":["Rate  Limiting Service"],"listB":["rate limiting for APIs"]}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":["Rate  Limiting Service"],"source":"common"}`, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/merge", `{}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":[],"source":"blend"}`, rec.Body.String())
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/topics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	topicsBody := decode[map[string][]map[string]any](t, rec)
	assert.Len(t, topicsBody["topics"], 10)

	rec = ts.do(t, http.MethodGet, "/topics/design-a-url-shortener", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/topics/design-a-toaster", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/stages", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stagesBody := decode[map[string][]map[string]any](t, rec)
	require.Len(t, stagesBody["stages"], 8)
	assert.Equal(t, "/validate", stagesBody["stages"][0]["endpoint"])

	rec = ts.do(t, http.MethodGet, "/stages/data-model", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/validate-data-model", decode[map[string]any](t, rec)["endpoint"])

	rec = ts.do(t, http.MethodGet, "/stages/whiteboard", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown stage: whiteboard")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/validate", `{"topic":"Design a URL Shortener"}`, "")
	ts.do(t, http.MethodPost, "/validate", `{}`, "")

	rec := ts.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `design_coach_validation_requests_total{outcome="ok",stage="requirements"} 1`)
	assert.Contains(t, body, `design_coach_validation_requests_total{outcome="invalid",stage="requirements"} 1`)
	assert.Contains(t, body, `design_coach_merge_fallback_total{stage="requirements"} 2`)
	assert.Contains(t, body, `design_coach_validation_duration_seconds_count{stage="requirements"} 2`)
}

func TestDrafts_RequireSession(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/drafts/design-a-url-shortener"},
		{http.MethodPut, "/drafts/design-a-url-shortener"},
		{http.MethodDelete, "/drafts/design-a-url-shortener"},
		{http.MethodPost, "/drafts/design-a-url-shortener/editor-events"},
	} {
		rec := ts.do(t, tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.method+" "+tc.path)

		rec = ts.do(t, tc.method, tc.path, "", "not-a-token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.method+" "+tc.path)
	}
}

func TestDrafts_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.session(t)
	path := "/drafts/design-a-url-shortener"

	rec := ts.do(t, http.MethodGet, path, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[DraftResponse](t, rec)
	assert.Equal(t, "design-a-url-shortener", empty.Topic)
	assert.NotEmpty(t, empty.Title)
	assert.True(t, empty.Draft.IsEmpty())

	rec = ts.do(t, http.MethodPut, path,
		`{"requirements":{"functional":["Shorten URLs"]},"estimation":["100M DAU"],"endToEndFlow":"client -> api"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[DraftResponse](t, rec)
	require.NotNil(t, saved.Draft.Requirements)
	assert.Equal(t, []string{"Shorten URLs"}, saved.Draft.Requirements.Functional)
	assert.Equal(t, []string{}, saved.Draft.Requirements.NonFunctional)
	assert.NotNil(t, saved.Draft.UpdatedAt)

	rec = ts.do(t, http.MethodGet, path+"/stages", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode[map[string]any](t, rec)
	assert.Len(t, progress["stages"], 8)

	// Another session has its own drafts
	other := ts.session(t)
	rec = ts.do(t, http.MethodGet, path, "", other)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[DraftResponse](t, rec).Draft.IsEmpty())

	rec = ts.do(t, http.MethodDelete, path, "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, path, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[DraftResponse](t, rec).Draft.IsEmpty())
	assert.Zero(t, ts.store.Len())
}

func TestDrafts_Errors(t *testing.T) {
	ts := newTestServer(t)
	token := ts.session(t)

	rec := ts.do(t, http.MethodGet, "/drafts/Not_A_Slug", "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, "/drafts/design-a-chat-app", `{"diagramPng":"https://example.com/a.png"}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "diagramPng")

	rec = ts.do(t, http.MethodPut, "/drafts/design-a-chat-app", `[1,2]`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditorEvents(t *testing.T) {
	ts := newTestServer(t)
	token := ts.session(t)
	path := "/drafts/design-a-chat-app/editor-events"

	event := func(origin, canvas, message string) string {
		body, err := json.Marshal(map[string]any{
			"origin":  origin,
			"canvas":  canvas,
			"message": json.RawMessage(message),
		})
		require.NoError(t, err)
		return string(body)
	}

	rec := ts.do(t, http.MethodPost, path, event("https://evil.example", "", `{"event":"save","xml":"<mxfile/>"}`), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ignored":true,"changed":false}`, rec.Body.String())

	rec = ts.do(t, http.MethodPost, path, event(diagram.EditorOrigin, "", `{"event":"save","xml":"<mxfile>a</mxfile>"}`), token)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[EditorEventResponse](t, rec)
	assert.True(t, resp.Changed)
	require.NotNil(t, resp.Draft.DiagramXML)
	assert.Equal(t, "<mxfile>a</mxfile>", *resp.Draft.DiagramXML)

	rec = ts.do(t, http.MethodPost, path, event(diagram.EditorOrigin, "detailed", `{"event":"export","format":"xml","xml":"<mxfile>d</mxfile>"}`), token)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[EditorEventResponse](t, rec)
	require.NotNil(t, resp.Draft.DetailedDiagramXML)
	assert.Equal(t, "<mxfile>d</mxfile>", *resp.Draft.DetailedDiagramXML)

	rec = ts.do(t, http.MethodPost, path, event(diagram.EditorOrigin, "", `{"event":"export","format":"png","data":"iVBORw0KGgo="}`), token)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[EditorEventResponse](t, rec)
	require.NotNil(t, resp.Draft.DiagramPNG)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", *resp.Draft.DiagramPNG)

	rec = ts.do(t, http.MethodPost, path, event(diagram.EditorOrigin, "", `{"event":"init"}`), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[EditorEventResponse](t, rec).Changed)

	rec = ts.do(t, http.MethodPost, path, event(diagram.EditorOrigin, "", `{"event":"zoom"}`), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, path, event(diagram.EditorOrigin, "sideways", `{"event":"init"}`), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, path, event(diagram.EditorOrigin, "", `"just a string"`), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://elsewhere.example")
	rec = httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/validate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := ratelimit.DefaultConfig()
	cfg.Rules = ratelimit.DefaultRules(6, time.Minute)
	cfg.CleanupInterval = 0
	ts := newTestServer(t, func(o *testOptions) { o.limiter = ratelimit.NewLimiter(cfg) })

	body := `{"topic":"Design a URL Shortener"}`
	rec := ts.do(t, http.MethodPost, "/validate", body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "6", rec.Header().Get("X-RateLimit-Limit"))

	rec = ts.do(t, http.MethodPost, "/validate-apis", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	rec = ts.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJSONResponse(t *testing.T) {
	ts := newTestServer(t)
	rec := httptest.NewRecorder()
	ts.jsonResponse(rec, http.StatusAccepted, map[string]int{"n": 1})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	ts := newTestServer(t)
	big := `{"topic":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := ts.do(t, http.MethodPost, "/validate", big, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too large")
}

func quote(s string) string {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(s)
	return strings.TrimSpace(buf.String())
}
