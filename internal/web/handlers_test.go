package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hpungsan/feedq/internal/config"
	"github.com/hpungsan/feedq/internal/db"
	"github.com/hpungsan/feedq/internal/ops"
)

func setupTest(t *testing.T) http.Handler {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewServer(ops.Deps{DB: database, Config: config.DefaultConfig()}, "test").Handler
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := decodeJSON(t, rec)["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in %s", rec.Body.String())
	}
	return errObj["code"].(string)
}

func seedActivities(t *testing.T, h http.Handler) {
	t.Helper()
	bodies := []string{
		`{"actor":"User:1","verb":"post","object":"Post:1","time":"2026-10-18T10:00:00Z","foreign_id":"Post:1","message":"**one**"}`,
		`{"actor":"User:2","verb":"post","object":"Post:2","time":"2026-10-18T10:01:00Z"}`,
		`{"actor":"User:3","verb":"post","object":"Post:3","time":"2026-10-18T10:02:00Z"}`,
	}
	for _, b := range bodies {
		rec := do(t, h, http.MethodPost, "/feeds/user/1/activities", b)
		if rec.Code != http.StatusCreated {
			t.Fatalf("POST status = %d, body %s", rec.Code, rec.Body.String())
		}
	}
}

func TestHandleList_Paging(t *testing.T) {
	h := setupTest(t)
	seedActivities(t, h)

	rec := do(t, h, http.MethodGet, "/feeds/user/1/activities?page=1&per=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}

	out := decodeJSON(t, rec)
	if out["count"] != float64(2) {
		t.Errorf("count = %v, want 2", out["count"])
	}
	first := out["items"].([]any)[0].(map[string]any)
	if first["object"] != "Post:3" {
		t.Errorf("first object = %v, want Post:3", first["object"])
	}
}

func TestHandleList_BlockedAndRender(t *testing.T) {
	h := setupTest(t)
	seedActivities(t, h)

	rec := do(t, h, http.MethodGet, "/feeds/user/1/activities?blocked=2,3&render=markdown", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	items := decodeJSON(t, rec)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 after blocking users 2 and 3", len(items))
	}
	html, _ := items[0].(map[string]any)["message_html"].(string)
	if !strings.Contains(html, "<strong>one</strong>") {
		t.Errorf("message_html = %q, want rendered markdown", html)
	}
}

func TestHandleList_InvalidParams(t *testing.T) {
	h := setupTest(t)

	tests := []struct {
		name   string
		target string
	}{
		{"non-integer page", "/feeds/user/1/activities?page=two"},
		{"non-integer blocked", "/feeds/user/1/activities?blocked=abc"},
		{"unknown render", "/feeds/user/1/activities?render=html"},
		{"bad ranking", "/feeds/user/1/activities?ranking=popular"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if code := errorCode(t, rec); code != "INVALID_REQUEST" {
				t.Errorf("code = %s, want INVALID_REQUEST", code)
			}
		})
	}
}

func TestHandleAdd_InvalidBody(t *testing.T) {
	h := setupTest(t)

	rec := do(t, h, http.MethodPost, "/feeds/user/1/activities", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/feeds/user/1/activities", `{"verb":"post"}`)
	if code := errorCode(t, rec); code != "INVALID_REQUEST" {
		t.Errorf("missing actor code = %s, want INVALID_REQUEST", code)
	}
}

func TestHandleUpdateAndRemove(t *testing.T) {
	h := setupTest(t)
	seedActivities(t, h)

	rec := do(t, h, http.MethodPut, "/feeds/user/1/activities",
		`{"actor":"User:1","verb":"post","object":"Post:1","time":"2026-10-18T10:00:00Z","foreign_id":"Post:1","message":"edited"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodDelete, "/feeds/user/1/activities/Post:1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d, body %s", rec.Code, rec.Body.String())
	}
	if decodeJSON(t, rec)["removed"] != true {
		t.Errorf("removed = false, body %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodDelete, "/feeds/user/1/activities/Post:1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec); code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}
}

func TestHandleObjectPutAndIncludes(t *testing.T) {
	h := setupTest(t)
	seedActivities(t, h)

	rec := do(t, h, http.MethodPut, "/objects/User:3", `{"name":"Cy"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT object status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/feeds/user/1/activities?includes=actor&limit=1", "")
	items := decodeJSON(t, rec)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	actor, ok := items[0].(map[string]any)["actor"].(map[string]any)
	if !ok || actor["name"] != "Cy" {
		t.Errorf("actor = %v, want enriched User:3", items[0].(map[string]any)["actor"])
	}
}

func TestHandleKind_NotificationMarks(t *testing.T) {
	h := setupTest(t)

	rec := do(t, h, http.MethodPut, "/feeds/notify/1/kind", `{"kind":"notification"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT kind status = %d, body %s", rec.Code, rec.Body.String())
	}
	do(t, h, http.MethodPost, "/feeds/notify/1/activities",
		`{"actor":"User:2","verb":"like","object":"Post:1","time":"2026-10-18T10:00:00Z"}`)

	rec = do(t, h, http.MethodGet, "/feeds/notify/1/activities?mark_read=true", "")
	group := decodeJSON(t, rec)["items"].([]any)[0].(map[string]any)
	if group["is_read"] != false {
		t.Errorf("first read is_read = %v, want false", group["is_read"])
	}

	rec = do(t, h, http.MethodGet, "/feeds/notify/1/activities", "")
	group = decodeJSON(t, rec)["items"].([]any)[0].(map[string]any)
	if group["is_read"] != true {
		t.Errorf("second read is_read = %v, want true", group["is_read"])
	}

	rec = do(t, h, http.MethodPut, "/feeds/notify/1/kind", `{"kind":"ranked"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", rec.Code)
	}
}

func TestMetricsAndHealth(t *testing.T) {
	h := setupTest(t)
	seedActivities(t, h)
	do(t, h, http.MethodGet, "/feeds/user/1/activities", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "feedq_transport_requests_total") {
		t.Error("metrics output missing feedq_transport_requests_total")
	}

	rec = do(t, h, http.MethodGet, "/healthz", "")
	if decodeJSON(t, rec)["version"] != "test" {
		t.Errorf("healthz body = %s", rec.Body.String())
	}
}

func TestRenderError_HidesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	renderError(rec, errPlain("open /secret.db: denied"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret.db") {
		t.Errorf("internal cause leaked: %s", rec.Body.String())
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
