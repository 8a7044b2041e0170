package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bradboard/internal/db"
	"bradboard/internal/domain"
	"bradboard/internal/engine"
	"bradboard/internal/identity"
	"bradboard/internal/llm"
	"bradboard/internal/migrate"
	"bradboard/internal/smartcreate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const testSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	close  func()

	mu    sync.Mutex
	model []llm.Call // answers smart-create prompts
}

func (s *testServer) script(calls ...llm.Call) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = calls
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	require.NoError(t, err)
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)
	e := engine.New(conn)

	testSrv := &testServer{client: &http.Client{}}
	model := llm.ClientFunc(func(context.Context, string, string, []llm.ToolSpec) ([]llm.Call, error) {
		testSrv.mu.Lock()
		defer testSrv.mu.Unlock()
		return testSrv.model, nil
	})
	handler, err := New(Config{
		Engine:      e,
		SmartCreate: smartcreate.New(smartcreate.EngineStore{Engine: e}, model),
		BasePath:    "/api/v1",
		CORSOrigins: []string{"http://localhost:3000"},
		Auth: AuthConfig{
			Authenticator: identity.JWTVerifier{Secret: testSecret},
			JWTSecret:     testSecret,
			DevLogin:      true,
		},
	})
	require.NoError(t, err)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv.URL = "http://" + ln.Addr().String()
	testSrv.close = func() {
		testSrv.client.CloseIdleConnections()
		srv.Shutdown(context.Background())
		ln.Close()
		conn.Close()
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func login(t *testing.T, srv *testServer, email, name string) (map[string]string, domain.User) {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/auth/dev/login", map[string]any{"email": email, "name": name}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var out AuthResponse
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotNil(t, out.User)
	return map[string]string{"Authorization": "Bearer " + out.AccessToken}, *out.User
}

func decodeError(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	return env.Error
}

func TestRootAndHealthArePublic(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/health", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"healthy","service":"bradboard-api"}`, string(data))

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"message":"BradBoard API","version":"1.0.0"}`, string(data))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/projects", nil, nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "unauthorized", decodeError(t, data).Code)

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/projects", nil, map[string]string{"Authorization": "Bearer nope"})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "invalid_credentials", decodeError(t, data).Code)
}

func TestProjectAndTicketLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	auth, me := login(t, srv, "ann@example.com", "Ann")
	base := srv.URL + "/api/v1"
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, base+"/projects", map[string]any{"title": "Site", "description": "Marketing site"}, auth)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	var project domain.Project
	require.NoError(t, json.Unmarshal(data, &project))
	assert.Equal(t, me.ID, project.CreatedByID)
	assert.Equal(t, "Ann", project.CreatedByName)

	res, data = doJSON(t, client, http.MethodPost, base+"/tickets", map[string]any{
		"title": "Hero", "description": "Hero banner", "project_id": project.ID, "priority": 3,
	}, auth)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	var ticket domain.Ticket
	require.NoError(t, json.Unmarshal(data, &ticket))
	assert.Equal(t, domain.StatusOpen, ticket.Status)

	res, data = doJSON(t, client, http.MethodPost, base+"/tickets", map[string]any{
		"title": "Orphan", "description": "x", "project_id": "missing",
	}, auth)
	require.Equal(t, http.StatusNotFound, res.StatusCode, string(data))
	assert.Equal(t, "Project not found", decodeError(t, data).Message)

	res, data = doJSON(t, client, http.MethodPut, base+"/tickets/"+ticket.ID, map[string]any{"status": "in progress"}, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var updated domain.TicketWithProject
	require.NoError(t, json.Unmarshal(data, &updated))
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Equal(t, "Site", updated.ProjectTitle)

	res, data = doJSON(t, client, http.MethodGet, base+"/tickets?statuses=in%20progress&project_ids="+project.ID, nil, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var list TicketListResponse
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Equal(t, 1, list.Total)

	res, data = doJSON(t, client, http.MethodDelete, base+"/tickets/"+ticket.ID, nil, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.JSONEq(t, `{"message":"Ticket deleted successfully"}`, string(data))

	res, data = doJSON(t, client, http.MethodDelete, base+"/projects/"+project.ID, nil, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.JSONEq(t, `{"message":"Project deleted successfully"}`, string(data))

	res, _ = doJSON(t, client, http.MethodGet, base+"/projects/"+project.ID, nil, auth)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSmartCreateEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	auth, _ := login(t, srv, "ann@example.com", "Ann")
	base := srv.URL + "/api/v1"

	srv.script(
		llm.Call{Name: "create_project", Arguments: json.RawMessage(`{"title":"Website Redesign","description":"New site"}`)},
		llm.Call{Name: "create_ticket", Arguments: json.RawMessage(`{"title":"Homepage mockup","description":"Mock it","project_id":"Website Redesign","priority":3}`)},
	)
	res, data := doJSON(t, srv.Client(), http.MethodPost, base+"/create", map[string]any{"text": "redesign the website"}, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var out smartcreate.CreationResult
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.CreatedProjects, 1)
	require.Len(t, out.CreatedTickets, 1)
	assert.Equal(t, out.CreatedProjects[0].ID, out.CreatedTickets[0].ProjectID)
	assert.Equal(t, "Successfully created 1 projects and 1 tickets", out.Message)

	srv.script(llm.Call{Name: "create_ticket", Arguments: json.RawMessage(`{"title":"t","description":"d","priority":4}`)})
	res, data = doJSON(t, srv.Client(), http.MethodPost, base+"/create", map[string]any{"text": "bad", "project_id": out.CreatedProjects[0].ID}, auth)
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))
	body := decodeError(t, data)
	assert.True(t, strings.HasPrefix(body.Message, "Smart creation failed: "), body.Message)
	assert.Equal(t, "ValidationFailure", body.Details["kind"])
}

func TestExportCSV(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	auth, _ := login(t, srv, "ann@example.com", "Ann")
	base := srv.URL + "/api/v1"

	_, data := doJSON(t, srv.Client(), http.MethodPost, base+"/projects", map[string]any{"title": "P", "description": "D"}, auth)
	var project domain.Project
	require.NoError(t, json.Unmarshal(data, &project))
	doJSON(t, srv.Client(), http.MethodPost, base+"/tickets", map[string]any{"title": "T", "description": "D", "project_id": project.ID}, auth)

	res, data := doJSON(t, srv.Client(), http.MethodGet, base+"/export/tickets/csv", nil, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, "text/csv", res.Header.Get("Content-Type"))
	assert.Equal(t, "attachment; filename=bradboard_tickets.csv", res.Header.Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Title,Description,Project,Project ID"))
	assert.Contains(t, lines[1], ",MEDIUM,")
}

func TestUsersRenameOwnRecordOnly(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	annAuth, ann := login(t, srv, "ann@example.com", "Ann")
	_, bob := login(t, srv, "bob@example.com", "Bob")
	base := srv.URL + "/api/v1"

	res, data := doJSON(t, srv.Client(), http.MethodGet, base+"/users", nil, annAuth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var users []domain.User
	require.NoError(t, json.Unmarshal(data, &users))
	assert.Len(t, users, 2)

	res, _ = doJSON(t, srv.Client(), http.MethodPut, base+"/users/"+bob.ID+"?name=Robert", nil, annAuth)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, data = doJSON(t, srv.Client(), http.MethodPut, base+"/users/"+ann.ID+"?name=Annie", nil, annAuth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var renamed domain.User
	require.NoError(t, json.Unmarshal(data, &renamed))
	assert.Equal(t, "Annie", renamed.Name)

	res, data = doJSON(t, srv.Client(), http.MethodGet, base+"/auth/me", nil, annAuth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Contains(t, string(data), `"email":"ann@example.com"`)
}

func TestCORSPreflight(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, _ := doJSON(t, srv.Client(), http.MethodOptions, srv.URL+"/api/v1/projects", nil, map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, "http://localhost:3000", res.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))
}

func TestLoginWithoutProviderIsUnavailable(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/auth/login", map[string]any{"email": "a@example.com", "password": "pw"}, nil)
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode, string(data))
	assert.Equal(t, "identity_unavailable", decodeError(t, data).Code)
}

func TestOpenAPIDocumentsBearerAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/openapi.json", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var doc struct {
		Paths      map[string]map[string]json.RawMessage `json:"paths"`
		Components struct {
			SecuritySchemes map[string]any `json:"securitySchemes"`
			Schemas         map[string]any `json:"schemas"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc.Components.SecuritySchemes, "bearerAuth")
	assert.Contains(t, doc.Paths, "/api/v1/create")
	assert.Contains(t, doc.Paths, "/api/v1/export/tickets/csv")

	var login struct {
		Security []map[string][]string `json:"security"`
	}
	require.NoError(t, json.Unmarshal(doc.Paths["/api/v1/auth/login"]["post"], &login))
	assert.Empty(t, login.Security)

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/docs", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(data), "/api/v1/openapi.json")
}

func TestListWireContract(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	auth, _ := login(t, srv, "ann@example.com", "Ann")
	base := srv.URL + "/api/v1"
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, base+"/projects", map[string]any{"title": "Ops", "description": "Runbooks"}, auth)
	var project domain.Project
	require.NoError(t, json.Unmarshal(data, &project))
	var ids []string
	for _, title := range []string{"Open one", "Finished", "Underway"} {
		res, data := doJSON(t, client, http.MethodPost, base+"/tickets", map[string]any{"title": title, "description": "d", "project_id": project.ID}, auth)
		require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
		var tk domain.Ticket
		require.NoError(t, json.Unmarshal(data, &tk))
		ids = append(ids, tk.ID)
	}
	res, data := doJSON(t, client, http.MethodPut, base+"/tickets/"+ids[1], map[string]any{"status": "done"}, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	res, data = doJSON(t, client, http.MethodPut, base+"/tickets/"+ids[2], map[string]any{"status": "in progress"}, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodGet, base+"/projects/", nil, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	require.Contains(t, body, "projects")
	assert.NotContains(t, body, "items")
	assert.Len(t, body["projects"], 1)
	assert.EqualValues(t, 1, body["total"])

	res, data = doJSON(t, client, http.MethodGet, base+"/tickets?statuses=open,done&project_ids="+project.ID, nil, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	body = nil
	require.NoError(t, json.Unmarshal(data, &body))
	require.Contains(t, body, "tickets")
	assert.EqualValues(t, 2, body["total"])
	var titles []string
	for _, raw := range body["tickets"].([]any) {
		titles = append(titles, raw.(map[string]any)["title"].(string))
	}
	assert.ElementsMatch(t, []string{"Open one", "Finished"}, titles)

	res, data = doJSON(t, client, http.MethodGet, base+"/tickets?priorities=2,3&created_by_ids=nobody", nil, auth)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var list TicketListResponse
	require.NoError(t, json.Unmarshal(data, &list))
	assert.Equal(t, 0, list.Total)

	res, data = doJSON(t, client, http.MethodGet, base+"/tickets?priorities=high", nil, auth)
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))
	assert.Equal(t, "priorities", decodeError(t, data).Details["field"])
}

func TestRequestBodyLimit(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	auth, _ := login(t, srv, "ann@example.com", "Ann")
	base := srv.URL + "/api/v1"

	huge := strings.Repeat("x", maxBodyBytes)
	res, data := doJSON(t, srv.Client(), http.MethodPost, base+"/projects", map[string]any{"title": "Big", "description": huge}, auth)
	require.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode, string(data))
	assert.Equal(t, "payload_too_large", decodeError(t, data).Code)

	res, data = doJSON(t, srv.Client(), http.MethodPost, base+"/projects", map[string]any{"title": "Small", "description": "fits"}, auth)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
}

// unreadBody fails the test if a handler reads it.
type unreadBody struct{ t *testing.T }

func (b unreadBody) Read([]byte) (int, error) {
	b.t.Error("request body read before authentication")
	return 0, io.EOF
}

func TestBodyNotBufferedBeforeAuth(t *testing.T) {
	handler, err := New(Config{
		SmartCreate: smartcreate.New(nil, llm.Mock{}),
		Auth:        AuthConfig{Authenticator: identity.JWTVerifier{Secret: testSecret}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", unreadBody{t})
	req.ContentLength = maxBodyBytes * 4
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/projects/", unreadBody{t})
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
