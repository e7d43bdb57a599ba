package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/wisdom/internal/queue"
	mid "github.com/OFFIS-RIT/wisdom/internal/server/middleware"
	"github.com/OFFIS-RIT/wisdom/pkg/store/memory"
	"github.com/OFFIS-RIT/wisdom/pkg/summary"
)

const masterKey = "test-master-key"

var jwtSecret = []byte("test-secret")

type recordingPublisher struct {
	keys   []string
	bodies [][]byte
}

func (p *recordingPublisher) Publish(_, key string, _, _ bool, msg amqp091.Publishing) error {
	p.keys = append(p.keys, key)
	p.bodies = append(p.bodies, msg.Body)
	return nil
}

func newTestApp() *mid.App {
	return &mid.App{
		Store:          memory.NewMemorySnapshotStore(),
		MasterAPIKey:   masterKey,
		MasterUserID:   "1",
		MasterUserRole: "admin",
		KeyFunc: func(*jwt.Token) (any, error) {
			return jwtSecret, nil
		},
		Summary: summary.DefaultOptions(),
	}
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	require.NoError(t, err)
	return token
}

func do(t *testing.T, app *mid.App, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := NewEcho(app)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	return doc
}

const modelWithAlice = `{"model": {
	"people": [{"name": "Alice", "teams": ["Ops"]}],
	"teams": [{"name": "Ops", "responsibilities": {"owns_tools": ["Jenkins"]}}]
}, "seed": 4}`

const modelWithoutAlice = `{"model": {
	"teams": [{"name": "Ops", "responsibilities": {"owns_tools": ["Jenkins"]}}]
}, "seed": 4}`

func TestHealth(t *testing.T) {
	rec := do(t, newTestApp(), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMetrics(t *testing.T) {
	rec := do(t, newTestApp(), http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{name: "missing", token: "", want: http.StatusUnauthorized},
		{name: "garbage", token: "not-a-jwt", want: http.StatusUnauthorized},
		{name: "master key", token: masterKey, want: http.StatusOK},
		{
			name:  "jwt with permission",
			token: signToken(t, jwt.MapClaims{"id": "u1", "permissions": []any{"analysis.run"}}),
			want:  http.StatusOK,
		},
		{
			name:  "jwt without permission",
			token: signToken(t, jwt.MapClaims{"id": "u1", "permissions": []any{"session.view"}}),
			want:  http.StatusForbidden,
		},
		{
			name:  "admin jwt gets every permission",
			token: signToken(t, jwt.MapClaims{"sub": "u2", "role": "admin"}),
			want:  http.StatusOK,
		},
		{
			name:  "jwt without user id",
			token: signToken(t, jwt.MapClaims{"role": "admin"}),
			want:  http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, app, http.MethodPost, "/api/analyze", tt.token, modelWithAlice)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAuth_NoKeyFunc(t *testing.T) {
	app := newTestApp()
	app.KeyFunc = nil

	token := signToken(t, jwt.MapClaims{"id": "u1", "role": "admin"})
	rec := do(t, app, http.MethodPost, "/api/analyze", token, modelWithAlice)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyze(t *testing.T) {
	rec := do(t, newTestApp(), http.MethodPost, "/api/analyze", masterKey, modelWithAlice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := decode(t, rec)
	assert.Equal(t, float64(4), doc["seed"])
	assert.Equal(t, map[string]any{"baseline": false}, doc["diff"])
	assert.Contains(t, doc["karma"], "Alice")
}

func TestAnalyze_WithPrevious(t *testing.T) {
	body := `{"model": {"teams": [{"name": "Ops"}]}, "previous": {"adjacency": {"Ops": [], "Alice": ["Ops"]}}}`
	rec := do(t, newTestApp(), http.MethodPost, "/api/analyze", masterKey, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	diff := decode(t, rec)["diff"].(map[string]any)
	assert.Equal(t, true, diff["baseline"])
	result := diff["result"].(map[string]any)
	assert.Equal(t, []any{"Alice"}, result["removed_nodes"])
}

func TestAnalyze_BadRequests(t *testing.T) {
	app := newTestApp()

	for name, body := range map[string]string{
		"no model":        `{"seed": 1}`,
		"decay too large": `{"model": {}, "decay_factor": 2}`,
		"negative decay":  `{"model": {}, "decay_factor": -0.1}`,
		"not json":        `{"model": `,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, app, http.MethodPost, "/api/analyze", masterKey, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSummary(t *testing.T) {
	body := `{"model": {"tools": [{"name": "A"}, {"name": "B"}, {"name": "C"}]}, "max_per_category": 2}`
	rec := do(t, newTestApp(), http.MethodPost, "/api/summary", masterKey, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := decode(t, rec)
	tools := doc["summary"].(map[string]any)["tools"].([]any)
	assert.Len(t, tools, 2)
	meta := doc["meta"].(map[string]any)
	assert.Equal(t, []any{"tools"}, meta["components"])
}

func TestSessionWorkflow(t *testing.T) {
	app := newTestApp()

	rec := do(t, app, http.MethodPost, "/api/sessions", masterKey, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec)["session_id"].(string)
	require.Len(t, id, 21)

	rec = do(t, app, http.MethodGet, "/api/sessions/"+id+"/snapshot", masterKey, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, app, http.MethodPost, "/api/sessions/"+id+"/analyze", masterKey, modelWithAlice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"baseline": false}, decode(t, rec)["diff"])

	rec = do(t, app, http.MethodPost, "/api/sessions/"+id+"/analyze", masterKey, modelWithoutAlice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	diff := decode(t, rec)["diff"].(map[string]any)
	require.Equal(t, true, diff["baseline"])
	assert.Equal(t, []any{"Alice"}, diff["result"].(map[string]any)["removed_nodes"])

	rec = do(t, app, http.MethodGet, "/api/sessions/"+id+"/snapshot", masterKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode(t, rec)["adjacency"], "Alice")

	rec = do(t, app, http.MethodDelete, "/api/sessions/"+id, masterKey, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/sessions/"+id+"/snapshot", masterKey, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSession_InvalidID(t *testing.T) {
	app := newTestApp()

	rec := do(t, app, http.MethodPost, "/api/sessions/abc/analyze", masterKey, modelWithAlice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/sessions/abc/snapshot", masterKey, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnqueueSessionJob(t *testing.T) {
	app := newTestApp()
	sessionID := "V1StGXR8_Z5jdHi6B-myT"
	body := `{"model_key": "models/org.yaml", "seed": 9}`

	rec := do(t, app, http.MethodPost, "/api/sessions/"+sessionID+"/jobs", masterKey, body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	pub := &recordingPublisher{}
	app.Queue = pub

	rec = do(t, app, http.MethodPost, "/api/sessions/"+sessionID+"/jobs", masterKey, body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	analysisID := decode(t, rec)["analysis_id"].(string)

	require.Equal(t, []string{queue.AnalysisQueue}, pub.keys)
	var msg queue.AnalysisMsg
	require.NoError(t, json.Unmarshal(pub.bodies[0], &msg))
	assert.Equal(t, sessionID, msg.SessionID)
	assert.Equal(t, "models/org.yaml", msg.ModelKey)
	assert.Equal(t, analysisID, msg.AnalysisID)
	require.NotNil(t, msg.Seed)
	assert.Equal(t, uint64(9), *msg.Seed)

	rec = do(t, app, http.MethodPost, "/api/sessions/"+sessionID+"/jobs", masterKey, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReports_WithoutStorage(t *testing.T) {
	app := newTestApp()
	sessionID := "V1StGXR8_Z5jdHi6B-myT"

	rec := do(t, app, http.MethodGet, "/api/sessions/"+sessionID+"/reports", masterKey, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/sessions/"+sessionID+"/reports/"+sessionID, masterKey, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSchema(t *testing.T) {
	app := newTestApp()

	rec := do(t, app, http.MethodGet, "/api/schema/report", masterKey, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "properties")

	rec = do(t, app, http.MethodGet, "/api/schema/nope", masterKey, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryOptionsFromEnv(t *testing.T) {
	t.Setenv("SUMMARY_MAX_PER_CATEGORY", "3")
	t.Setenv("SUMMARY_MAX_RELATIONSHIPS", "")

	opts := SummaryOptionsFromEnv()
	assert.Equal(t, 3, opts.MaxPerCategory)
	assert.Equal(t, summary.DefaultOptions().MaxRelationships, opts.MaxRelationships)
}

func TestDecayFactorFromEnv(t *testing.T) {
	t.Setenv("DECAY_FACTOR", "")
	assert.Nil(t, DecayFactorFromEnv())

	t.Setenv("DECAY_FACTOR", "0.25")
	require.NotNil(t, DecayFactorFromEnv())
	assert.Equal(t, 0.25, *DecayFactorFromEnv())
}
