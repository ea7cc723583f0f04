package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcpmux/mcpmux/internal/adapter/outbound/memory"
	"github.com/mcpmux/mcpmux/internal/domain/app"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAdmin(onAdded func(a *app.App)) (*Admin, *memory.AppStore) {
	store := memory.NewAppStore()
	return NewAdmin(store, testLogger(), onAdded), store
}

func newTestMux(a *Admin) *http.ServeMux {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux, "/admin/apps")
	return mux
}

func TestAdmin_List_EmptyEnvelope(t *testing.T) {
	a, _ := newTestAdmin(nil)
	mux := newTestMux(a)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/apps", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Apps []app.App `json:"apps"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Apps == nil {
		t.Error("expected apps key present (possibly empty, not null)")
	}
}

func TestAdmin_Create_ThenGet(t *testing.T) {
	var added *app.App
	a, _ := newTestAdmin(func(created *app.App) { added = created })
	mux := newTestMux(a)

	body := `{"name":"my-tools","upstreams":[{"name":"fs","kind":"stdio","command":"mcp-server-fs"}]}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/apps", bytes.NewBufferString(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if added == nil || added.Name != "my-tools" {
		t.Fatalf("expected onAdded callback to fire with the new app, got %+v", added)
	}

	getRec := httptest.NewRecorder()
	mux.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/admin/apps/my-tools", nil))
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", getRec.Code, getRec.Body.String())
	}

	var got app.App
	if err := json.Unmarshal(getRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "my-tools" || len(got.Upstreams) != 1 {
		t.Errorf("unexpected app: %+v", got)
	}
}

func TestAdmin_Get_NotFound(t *testing.T) {
	a, _ := newTestAdmin(nil)
	mux := newTestMux(a)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/apps/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assertJSONError(t, rec.Body.Bytes())
}

func TestAdmin_Create_InvalidBody(t *testing.T) {
	a, _ := newTestAdmin(nil)
	mux := newTestMux(a)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/apps", bytes.NewBufferString(`not json`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	assertJSONError(t, rec.Body.Bytes())
}

func TestAdmin_Create_InvalidApp(t *testing.T) {
	a, _ := newTestAdmin(nil)
	mux := newTestMux(a)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/apps", bytes.NewBufferString(`{"name":""}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdmin_Create_NameTaken(t *testing.T) {
	a, _ := newTestAdmin(nil)
	mux := newTestMux(a)

	body := `{"name":"dup"}`
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/admin/apps", bytes.NewBufferString(body)))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/apps", bytes.NewBufferString(body)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertJSONError(t, rec.Body.Bytes())
}

func TestAdmin_Delete(t *testing.T) {
	a, _ := newTestAdmin(nil)
	mux := newTestMux(a)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/admin/apps", bytes.NewBufferString(`{"name":"my-tools"}`)))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/apps/my-tools", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	getRec := httptest.NewRecorder()
	mux.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/admin/apps/my-tools", nil))
	if getRec.Code != http.StatusNotFound {
		t.Fatalf("expected app gone after delete, got %d", getRec.Code)
	}
}

func TestAdmin_Delete_NotFound(t *testing.T) {
	a, _ := newTestAdmin(nil)
	mux := newTestMux(a)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/apps/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdmin_MethodNotAllowed(t *testing.T) {
	a, _ := newTestAdmin(nil)
	mux := newTestMux(a)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/apps", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestAdmin_CustomPrefix(t *testing.T) {
	store := memory.NewAppStore()
	a := NewAdmin(store, testLogger(), nil)
	mux := http.NewServeMux()
	a.RegisterRoutes(mux, "/v1/apps")

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/apps", bytes.NewBufferString(`{"name":"my-tools"}`)))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/apps/my-tools", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 under custom prefix, got %d: %s", rec.Code, rec.Body.String())
	}
}

func assertJSONError(t *testing.T, body []byte) {
	t.Helper()
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("expected JSON error envelope, got %s: %v", body, err)
	}
	if envelope.Error == "" {
		t.Errorf("expected non-empty error message, got %s", body)
	}
}
