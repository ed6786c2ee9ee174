package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Jeremieon/todo-api-cicd/internal/config"
	"github.com/Jeremieon/todo-api-cicd/internal/dto"
	"github.com/Jeremieon/todo-api-cicd/internal/repo"
	"github.com/Jeremieon/todo-api-cicd/internal/service"
	"github.com/Jeremieon/todo-api-cicd/migrations"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTodoRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "todos.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Up(db.DB, config.DriverSQLite); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	h := NewTodoHandler(service.NewTodoService(repo.NewSQLiteTodoRepo(db), nil, discard), discard)
	r := gin.New()
	r.GET("/api/todos", h.List)
	r.POST("/api/todos", h.Create)
	r.GET("/api/todos/:id", h.GetByID)
	r.PUT("/api/todos/:id", h.Update)
	r.DELETE("/api/todos/:id", h.Delete)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

type validationBody struct {
	Detail []dto.ErrorItem `json:"detail"`
}

type detailBody struct {
	Detail string `json:"detail"`
}

func createTodo(t *testing.T, r http.Handler, body string) dto.TodoResponse {
	t.Helper()
	w := do(r, http.MethodPost, "/api/todos", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST %s: got %d, want 201 (%s)", body, w.Code, w.Body.String())
	}
	return decode[dto.TodoResponse](t, w)
}

func TestCreateAndGet(t *testing.T) {
	r := newTodoRouter(t)

	created := createTodo(t, r, `{"title":"Test Todo","description":"Testing"}`)
	if created.ID == 0 {
		t.Errorf("ID: got 0, want assigned id")
	}
	if created.Completed || created.Priority != "medium" {
		t.Errorf("defaults: got completed=%v priority=%q", created.Completed, created.Priority)
	}
	if created.UpdatedAt != nil {
		t.Errorf("UpdatedAt: got %v, want nil", created.UpdatedAt)
	}

	w := do(r, http.MethodGet, fmt.Sprintf("/api/todos/%d", created.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET: got %d, want 200", w.Code)
	}
	got := decode[dto.TodoResponse](t, w)
	if got.Title != "Test Todo" || got.Description == nil || *got.Description != "Testing" {
		t.Errorf("GET: got %+v", got)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestCreateRendersNulls(t *testing.T) {
	r := newTodoRouter(t)
	w := do(r, http.MethodPost, "/api/todos", `{"title":"only title"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST: got %d, want 201", w.Code)
	}
	raw := decode[map[string]any](t, w)
	for _, key := range []string{"description", "updated_at"} {
		v, ok := raw[key]
		if !ok || v != nil {
			t.Errorf("%s: got %v (present=%v), want null", key, v, ok)
		}
	}
}

func TestCreateInvalid(t *testing.T) {
	r := newTodoRouter(t)

	tests := []struct {
		name string
		body string
		loc  string
	}{
		{"missing title", `{"description":"x"}`, "body.title"},
		{"empty title", `{"title":""}`, "body.title"},
		{"completed not bool", `{"title":"x","completed":"yes"}`, "body.completed"},
		{"malformed json", `{"title":`, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/todos", tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status: got %d, want 422 (%s)", w.Code, w.Body.String())
			}
			got := decode[validationBody](t, w)
			if len(got.Detail) == 0 {
				t.Fatalf("detail: got empty list")
			}
			if loc := strings.Join(got.Detail[0].Loc, "."); loc != tt.loc {
				t.Errorf("loc: got %q, want %q", loc, tt.loc)
			}
		})
	}
}

func TestMissingTodoIs404(t *testing.T) {
	r := newTodoRouter(t)

	tests := []struct {
		method string
		body   string
	}{
		{http.MethodGet, ""},
		{http.MethodPut, `{"title":"x"}`},
		{http.MethodDelete, ""},
	}
	for _, tt := range tests {
		w := do(r, tt.method, "/api/todos/999", tt.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", tt.method, w.Code)
			continue
		}
		if got := decode[detailBody](t, w); got.Detail != "Todo not found" {
			t.Errorf("%s detail: got %q, want %q", tt.method, got.Detail, "Todo not found")
		}
	}
}

func TestNonIntegerIDIs422(t *testing.T) {
	r := newTodoRouter(t)
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := do(r, method, "/api/todos/abc", "")
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: got %d, want 422", method, w.Code)
			continue
		}
		got := decode[validationBody](t, w)
		if len(got.Detail) != 1 || strings.Join(got.Detail[0].Loc, ".") != "path.id" {
			t.Errorf("%s detail: got %+v", method, got.Detail)
		}
	}
}

func TestUpdatePartial(t *testing.T) {
	r := newTodoRouter(t)
	created := createTodo(t, r, `{"title":"a","description":"d","priority":"low"}`)
	path := fmt.Sprintf("/api/todos/%d", created.ID)

	w := do(r, http.MethodPut, path, `{"completed":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT: got %d, want 200 (%s)", w.Code, w.Body.String())
	}
	got := decode[dto.TodoResponse](t, w)
	if !got.Completed {
		t.Errorf("Completed: got false, want true")
	}
	if got.Title != "a" || got.Priority != "low" || got.Description == nil || *got.Description != "d" {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if got.UpdatedAt == nil {
		t.Errorf("UpdatedAt: got nil, want set")
	}

	w = do(r, http.MethodPut, path, `{"description":null}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT null description: got %d, want 200", w.Code)
	}
	if got := decode[dto.TodoResponse](t, w); got.Description != nil {
		t.Errorf("Description: got %q, want nil", *got.Description)
	}
}

func TestUpdateEmptyBodyChangesNothing(t *testing.T) {
	r := newTodoRouter(t)
	created := createTodo(t, r, `{"title":"still"}`)

	w := do(r, http.MethodPut, fmt.Sprintf("/api/todos/%d", created.ID), `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT: got %d, want 200", w.Code)
	}
	got := decode[dto.TodoResponse](t, w)
	if got.Title != "still" || got.UpdatedAt != nil {
		t.Errorf("got %+v, want unchanged record", got)
	}
}

func TestUpdateInvalid(t *testing.T) {
	r := newTodoRouter(t)
	created := createTodo(t, r, `{"title":"x"}`)
	path := fmt.Sprintf("/api/todos/%d", created.ID)

	for _, body := range []string{`{"title":""}`, `{"title":null}`, `{"completed":1}`, `[`} {
		if w := do(r, http.MethodPut, path, body); w.Code != http.StatusUnprocessableEntity {
			t.Errorf("PUT %s: got %d, want 422", body, w.Code)
		}
	}
}

func TestDelete(t *testing.T) {
	r := newTodoRouter(t)
	created := createTodo(t, r, `{"title":"bye"}`)
	path := fmt.Sprintf("/api/todos/%d", created.ID)

	w := do(r, http.MethodDelete, path, "")
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE: got %d, want 200", w.Code)
	}
	if got := decode[dto.MessageResponse](t, w); got.Message != "Todo deleted successfully" {
		t.Errorf("message: got %q", got.Message)
	}
	if w := do(r, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
		t.Errorf("GET after delete: got %d, want 404", w.Code)
	}
	if w := do(r, http.MethodDelete, path, ""); w.Code != http.StatusNotFound {
		t.Errorf("second DELETE: got %d, want 404", w.Code)
	}
}

func TestListPagination(t *testing.T) {
	r := newTodoRouter(t)
	for i := 1; i <= 5; i++ {
		createTodo(t, r, fmt.Sprintf(`{"title":"t%d"}`, i))
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"t1", "t2", "t3", "t4", "t5"}},
		{"?limit=2", []string{"t1", "t2"}},
		{"?skip=3", []string{"t4", "t5"}},
		{"?skip=1&limit=2", []string{"t2", "t3"}},
		{"?skip=10", []string{}},
		{"?limit=0", []string{}},
		{"?limit=5000", []string{"t1", "t2", "t3", "t4", "t5"}},
	}
	for _, tt := range tests {
		w := do(r, http.MethodGet, "/api/todos"+tt.query, "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %q: got %d, want 200", tt.query, w.Code)
			continue
		}
		if body := strings.TrimSpace(w.Body.String()); body == "null" {
			t.Errorf("GET %q: got null, want array", tt.query)
			continue
		}
		list := decode[[]dto.TodoResponse](t, w)
		got := make([]string, len(list))
		for i, td := range list {
			got[i] = td.Title
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("GET %q: got %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestListInvalidQuery(t *testing.T) {
	r := newTodoRouter(t)
	for _, q := range []string{"?skip=-1", "?limit=-5", "?limit=abc"} {
		if w := do(r, http.MethodGet, "/api/todos"+q, ""); w.Code != http.StatusUnprocessableEntity {
			t.Errorf("GET %q: got %d, want 422", q, w.Code)
		}
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newSystemRouter(db, cache Pinger) *gin.Engine {
	app := config.AppConfig{Name: "Team Tasks", Env: config.EnvStaging, Version: "2.0.0"}
	h := NewSystemHandler(app, db, cache, time.Now(), discard)
	h.now = func() time.Time { return h.started.Add(42 * time.Second) }

	r := gin.New()
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/api/info", h.Info)
	return r
}

func TestRoot(t *testing.T) {
	w := do(newSystemRouter(stubPinger{}, nil), http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	got := decode[dto.RootResponse](t, w)
	want := dto.RootResponse{Message: "Todo API v2.0.0", App: "Team Tasks", Environment: "staging", Status: "running"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestInfo(t *testing.T) {
	w := do(newSystemRouter(stubPinger{}, nil), http.MethodGet, "/api/info", "")
	got := decode[config.Info](t, w)
	want := config.Info{App: "Team Tasks", Version: "2.0.0", Environment: "staging", Debug: false}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestHealth(t *testing.T) {
	w := do(newSystemRouter(stubPinger{}, nil), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	got := decode[dto.HealthResponse](t, w)
	want := dto.HealthResponse{Status: "healthy", Environment: "staging", Version: "2.0.0", Uptime: 42, Database: "connected"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	secret := "dial tcp 10.0.0.7:5432: password authentication failed for user admin"
	w := do(newSystemRouter(stubPinger{err: errors.New(secret)}, nil), http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("10.0.0.7")) {
		t.Errorf("body leaks backend error: %s", w.Body.String())
	}
	if got := decode[detailBody](t, w); got.Detail != "database unavailable" {
		t.Errorf("detail: got %q", got.Detail)
	}
}

func TestHealthCacheDownStaysHealthy(t *testing.T) {
	w := do(newSystemRouter(stubPinger{}, stubPinger{err: errors.New("redis down")}), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	if got := decode[dto.HealthResponse](t, w); got.Cache != "unavailable" {
		t.Errorf("cache: got %q, want unavailable", got.Cache)
	}
}
