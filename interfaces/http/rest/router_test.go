package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mindmap-backend/application/commands/bus"
	commandhandlers "mindmap-backend/application/commands/handlers"
	"mindmap-backend/application/ports"
	querybus "mindmap-backend/application/queries/bus"
	queryhandlers "mindmap-backend/application/queries/handlers"
	"mindmap-backend/application/services"
	"mindmap-backend/domain/core/valueobjects"
	"mindmap-backend/domain/layout"
	"mindmap-backend/infrastructure/persistence/memory"
	"mindmap-backend/interfaces/http/rest"
	"mindmap-backend/interfaces/http/rest/middleware"
	"mindmap-backend/pkg/auth"
	pkgerrors "mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "mindmap-test"
	testAudience = "mindmap-api"
)

type stubSuggestions struct {
	out []string
	err error
}

func (s stubSuggestions) Suggest(ctx context.Context, label string, existing []string) ([]string, error) {
	return s.out, s.err
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   pkgerrors.ErrorBody `json:"error"`
}

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	tokens *auth.JWTGenerator
	store  *memory.Store
}

func newTestAPI(t *testing.T, suggestions ports.SuggestionService) *testAPI {
	t.Helper()
	logger := zap.NewNop()

	store := memory.NewStore()
	adapter := services.NewPersistenceAdapter(store, nil, logger,
		services.WithLocker(memory.NewLocker()),
		services.WithPlanProvider(services.NewStorePlanProvider(store, 2, []string{"vip"})),
	)
	pipeline := services.NewExpansionPipeline(suggestions, nil, nil, nil, nil, services.ExpansionOptions{}, nil, nil, logger)
	engine := layout.NewEngineWithRand(rand.New(rand.NewSource(7)))
	ws := services.NewWorkspace(adapter, pipeline, engine, nil, services.WorkspaceSettings{AutosaveDelay: time.Hour}, nil, logger)
	t.Cleanup(func() { _ = ws.Shutdown(context.Background()) })

	commandBus := bus.NewCommandBus()
	require.NoError(t, commandhandlers.NewMindMapHandlers(ws, logger).Register(commandBus))
	queryBus := querybus.NewQueryBus()
	require.NoError(t, queryhandlers.NewMindMapQueryHandlers(ws, nil).Register(queryBus, nil, nil))

	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     testSecret,
		Issuer:        testIssuer,
		Audience:      []string{testAudience},
	})
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator(auth.JWTGeneratorConfig{
		SigningMethod: "HS256",
		SecretKey:     testSecret,
		Issuer:        testIssuer,
		Audience:      []string{testAudience},
		ExpiryTime:    time.Hour,
	})
	require.NoError(t, err)

	router := rest.NewRouter(commandBus, queryBus, rest.Options{
		Auth:       middleware.AuthConfig{Validator: validator},
		EnableCORS: true,
		Metrics:    observability.NewCollector("resttest"),
	}, logger).Setup()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testAPI{t: t, server: server, tokens: generator, store: store}
}

func (a *testAPI) token(userID string) string {
	a.t.Helper()
	token, err := a.tokens.GenerateToken(userID, userID+"@example.com", []string{"user"})
	require.NoError(a.t, err)
	return token
}

// do sends a request as user and returns the status and decoded envelope
func (a *testAPI) do(user, method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	resp := a.raw(user, method, path, body)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (a *testAPI) raw(user, method, path string, body interface{}) *http.Response {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(user))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	return resp
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

type mapState struct {
	MapID string `json:"mapId"`
	Title string `json:"title"`
	Nodes []struct {
		ID    string  `json:"id"`
		Label string  `json:"label"`
		X     float64 `json:"x"`
	} `json:"nodes"`
	Edges []struct {
		ID     string `json:"id"`
		Source string `json:"source"`
		Target string `json:"target"`
	} `json:"edges"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

func (a *testAPI) createMap(user, title string) mapState {
	a.t.Helper()
	status, env := a.do(user, http.MethodPost, "/api/v1/maps", map[string]string{"title": title})
	require.Equal(a.t, http.StatusCreated, status, env.Error.Message)
	var state mapState
	decodeData(a.t, env, &state)
	return state
}

func TestHealthAndReadiness(t *testing.T) {
	api := newTestAPI(t, nil)

	for _, path := range []string{"/health", "/ready"} {
		resp := api.raw("", http.MethodGet, path, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t, nil)
	api.createMap("alice", "Ideas")

	resp := api.raw("", http.MethodGet, "/metrics", nil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "resttest_http_requests_total")
	assert.Contains(t, string(body), `method="POST"`)
	assert.Contains(t, string(body), `status="201"`)
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "not a bearer token", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, api.server.URL+"/api/v1/maps", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := api.server.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			var env envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
		})
	}
}

func TestGatewayHeadersIgnoredOutsideLambda(t *testing.T) {
	api := newTestAPI(t, nil)

	req, err := http.NewRequest(http.MethodGet, api.server.URL+"/api/v1/plan", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.HeaderGatewayAuthorized, "true")
	req.Header.Set(middleware.HeaderUserID, "mallory")

	resp, err := api.server.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMapLifecycle(t *testing.T) {
	// Arrange
	api := newTestAPI(t, nil)
	created := api.createMap("alice", "Ideas")
	require.NotEmpty(t, created.MapID)
	require.Len(t, created.Nodes, 1)
	base := "/api/v1/maps/" + created.MapID

	// Act & Assert: add a node linked to the central node
	status, env := api.do("alice", http.MethodPost, base+"/nodes", map[string]string{"label": "Child", "connectTo": "1"})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	var added struct {
		NodeID string `json:"nodeId"`
		EdgeID string `json:"edgeId"`
	}
	decodeData(t, env, &added)
	assert.NotEmpty(t, added.NodeID)
	assert.NotEmpty(t, added.EdgeID)

	// second unlinked node with the default label
	status, env = api.do("alice", http.MethodPost, base+"/nodes", nil)
	require.Equal(t, http.StatusCreated, status)
	var loose struct {
		NodeID string `json:"nodeId"`
	}
	decodeData(t, env, &loose)

	status, env = api.do("alice", http.MethodPatch, base+"/nodes/"+added.NodeID, map[string]interface{}{"label": "Renamed", "color": "#ff0000"})
	require.Equal(t, http.StatusOK, status, env.Error.Message)

	status, env = api.do("alice", http.MethodGet, base+"/nodes/"+added.NodeID, nil)
	require.Equal(t, http.StatusOK, status)
	var node struct {
		Label string `json:"label"`
		Color string `json:"color"`
	}
	decodeData(t, env, &node)
	assert.Equal(t, "Renamed", node.Label)
	assert.Equal(t, "#ff0000", node.Color)

	status, env = api.do("alice", http.MethodPost, base+"/edges", map[string]string{"source": added.NodeID, "target": loose.NodeID})
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	var edge struct {
		EdgeID string `json:"edgeId"`
	}
	decodeData(t, env, &edge)

	status, env = api.do("alice", http.MethodPost, base+"/edges", map[string]string{"source": loose.NodeID, "target": added.NodeID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, pkgerrors.CodeDuplicateEdge, env.Error.Code)

	status, env = api.do("alice", http.MethodPost, base+"/edges", map[string]string{"source": loose.NodeID, "target": loose.NodeID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, pkgerrors.CodeSelfLoop, env.Error.Code)

	status, _ = api.do("alice", http.MethodDelete, base+"/edges/"+edge.EdgeID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, env = api.do("alice", http.MethodPost, base+"/nodes/"+loose.NodeID+"/drag", map[string]float64{"dx": 1000})
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	var dragged struct {
		X float64 `json:"x"`
	}
	decodeData(t, env, &dragged)
	assert.Equal(t, 15.0, dragged.X, "drags are clamped to the scene")

	status, _ = api.do("alice", http.MethodDelete, base+"/nodes/"+loose.NodeID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, env = api.do("alice", http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	var state mapState
	decodeData(t, env, &state)
	assert.Len(t, state.Nodes, 2)
	assert.Len(t, state.Edges, 1)
	assert.True(t, state.CanUndo)
	assert.False(t, state.CanRedo)

	// undo restores the deleted node, redo removes it again
	status, env = api.do("alice", http.MethodPost, base+"/undo", nil)
	require.Equal(t, http.StatusOK, status)
	var undone struct {
		Applied bool     `json:"applied"`
		State   mapState `json:"state"`
	}
	decodeData(t, env, &undone)
	assert.True(t, undone.Applied)
	assert.Len(t, undone.State.Nodes, 3)
	assert.True(t, undone.State.CanRedo)

	status, env = api.do("alice", http.MethodPost, base+"/redo", nil)
	require.Equal(t, http.StatusOK, status)
	decodeData(t, env, &undone)
	assert.Len(t, undone.State.Nodes, 2)

	status, _ = api.do("alice", http.MethodPost, base+"/save", nil)
	assert.Equal(t, http.StatusOK, status)
	stored, err := api.store.Get(context.Background(), "alice", valueobjects.MapID(created.MapID))
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 2)

	status, _ = api.do("alice", http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, env = api.do("alice", http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, pkgerrors.CodeNotFound, env.Error.Code)
}

func TestMapsAreScopedToTheCaller(t *testing.T) {
	api := newTestAPI(t, nil)
	created := api.createMap("alice", "Private")

	status, _ := api.do("bob", http.MethodGet, "/api/v1/maps/"+created.MapID, nil)

	assert.Equal(t, http.StatusNotFound, status)
}

func TestExportImportRoundTrip(t *testing.T) {
	api := newTestAPI(t, nil)
	created := api.createMap("alice", "Source")
	base := "/api/v1/maps/" + created.MapID
	status, _ := api.do("alice", http.MethodPost, base+"/nodes", map[string]string{"label": "Leaf", "connectTo": "1"})
	require.Equal(t, http.StatusCreated, status)

	resp := api.raw("alice", http.MethodGet, base+"/export", nil)
	defer resp.Body.Close()
	exported, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "mindmap-"+created.MapID+".json")

	var doc struct {
		MapID     string            `json:"mapId"`
		Timestamp string            `json:"timestamp"`
		Nodes     []json.RawMessage `json:"nodes"`
		Edges     []json.RawMessage `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(exported, &doc))
	assert.Equal(t, created.MapID, doc.MapID)
	assert.NotEmpty(t, doc.Timestamp)
	assert.Len(t, doc.Nodes, 2)
	assert.Len(t, doc.Edges, 1)

	target := api.createMap("alice", "Target")
	status, env := api.do("alice", http.MethodPost, "/api/v1/maps/"+target.MapID+"/import", exported)
	require.Equal(t, http.StatusOK, status, env.Error.Message)
	var state mapState
	decodeData(t, env, &state)
	assert.Len(t, state.Nodes, 2)
	assert.Len(t, state.Edges, 1)

	status, env = api.do("alice", http.MethodPost, "/api/v1/maps/"+target.MapID+"/import", `{"mapId":"x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", env.Error.Type)
}

func TestExpandNode(t *testing.T) {
	api := newTestAPI(t, stubSuggestions{out: []string{"Alpha", "Beta", "Central Idea"}})
	created := api.createMap("alice", "Ideas")

	status, env := api.do("alice", http.MethodPost, "/api/v1/maps/"+created.MapID+"/nodes/1/expand", nil)

	require.Equal(t, http.StatusOK, status, env.Error.Message)
	var result struct {
		NodeIDs      []string `json:"nodeIds"`
		Suggestions  []string `json:"suggestions"`
		UsedFallback bool     `json:"usedFallback"`
	}
	decodeData(t, env, &result)
	assert.Equal(t, []string{"Alpha", "Beta"}, result.Suggestions)
	assert.Len(t, result.NodeIDs, 2)
	assert.False(t, result.UsedFallback)

	status, _ = api.do("alice", http.MethodPost, "/api/v1/maps/"+created.MapID+"/nodes/99/expand", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestExpandNodeFallsBackWithoutSuggestions(t *testing.T) {
	api := newTestAPI(t, stubSuggestions{err: pkgerrors.NewRemoteUnavailableError("openrouter", nil)})
	created := api.createMap("alice", "Ideas")

	status, env := api.do("alice", http.MethodPost, "/api/v1/maps/"+created.MapID+"/nodes/1/expand", nil)

	require.Equal(t, http.StatusOK, status)
	var result struct {
		NodeIDs      []string `json:"nodeIds"`
		UsedFallback bool     `json:"usedFallback"`
		State        string   `json:"state"`
	}
	decodeData(t, env, &result)
	assert.True(t, result.UsedFallback)
	assert.Len(t, result.NodeIDs, 3)
	assert.Equal(t, "errored", result.State)
}

func TestListMapsAndPlanLimit(t *testing.T) {
	api := newTestAPI(t, nil)
	api.createMap("alice", "One")
	api.createMap("alice", "Two")

	status, env := api.do("alice", http.MethodPost, "/api/v1/maps", map[string]string{"title": "Three"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, pkgerrors.CodeMapLimitReached, env.Error.Code)

	status, env = api.do("alice", http.MethodGet, "/api/v1/plan", nil)
	require.Equal(t, http.StatusOK, status)
	var plan ports.PlanStatus
	decodeData(t, env, &plan)
	assert.Equal(t, ports.PlanStatus{Plan: services.PlanFree, CanCreate: false, CurrentCount: 2, Limit: 2}, plan)

	status, env = api.do("alice", http.MethodGet, "/api/v1/maps?page=2&page_size=1", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Maps []struct {
			Title string `json:"title"`
		} `json:"maps"`
		Pagination struct {
			Total   int  `json:"total"`
			HasPrev bool `json:"has_prev"`
		} `json:"pagination"`
	}
	decodeData(t, env, &list)
	require.Len(t, list.Maps, 1)
	assert.Equal(t, 2, list.Pagination.Total)
	assert.True(t, list.Pagination.HasPrev)

	// premium owners are not limited
	for i := 0; i < 3; i++ {
		api.createMap("vip", "Map")
	}
}

func TestClassify(t *testing.T) {
	api := newTestAPI(t, nil)

	status, env := api.do("alice", http.MethodPost, "/api/v1/classify", map[string]string{"label": "machine learning"})
	require.Equal(t, http.StatusOK, status)
	var got struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	decodeData(t, env, &got)
	assert.NotEmpty(t, got.Category)

	status, env = api.do("alice", http.MethodPost, "/api/v1/classify", map[string]string{"label": "  "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", env.Error.Type)
}

func TestInvalidBodies(t *testing.T) {
	api := newTestAPI(t, nil)
	created := api.createMap("alice", "Ideas")
	base := "/api/v1/maps/" + created.MapID

	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{name: "malformed json", path: base + "/edges", body: `{"source":`},
		{name: "empty patch", path: base + "/nodes/1", body: map[string]string{}},
		{name: "partial position", path: base + "/nodes/1", body: map[string]float64{"x": 1}},
		{name: "bad color", path: base + "/nodes/1", body: map[string]string{"color": "red"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := http.MethodPatch
			if strings.HasSuffix(tt.path, "/edges") {
				method = http.MethodPost
			}

			status, env := api.do("alice", method, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "VALIDATION", env.Error.Type)
		})
	}
}

func TestIPRateLimitKeysOnConnectionAddress(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantSecond int
	}{
		{name: "forwarding headers ignored", trustProxy: false, wantSecond: http.StatusTooManyRequests},
		{name: "forwarding headers trusted behind a proxy", trustProxy: true, wantSecond: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			router := rest.NewRouter(bus.NewCommandBus(), querybus.NewQueryBus(), rest.Options{
				Auth: middleware.AuthConfig{
					Validator: mustValidator(t),
					IPLimiter: auth.NewKeyedLimiter(1, 1),
				},
				TrustProxyHeaders: tt.trustProxy,
			}, zap.NewNop()).Setup()

			send := func(forwardedFor string) int {
				req := httptest.NewRequest(http.MethodGet, "/api/v1/plan", nil)
				req.RemoteAddr = "192.0.2.10:4321"
				req.Header.Set("X-Forwarded-For", forwardedFor)
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)
				return rec.Code
			}

			// Act
			first := send("203.0.113.1")
			second := send("203.0.113.2")

			// Assert
			assert.Equal(t, http.StatusUnauthorized, first)
			assert.Equal(t, tt.wantSecond, second)
		})
	}
}

func mustValidator(t *testing.T) *auth.JWTValidator {
	t.Helper()
	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     testSecret,
		Issuer:        testIssuer,
		Audience:      []string{testAudience},
	})
	require.NoError(t, err)
	return validator
}
