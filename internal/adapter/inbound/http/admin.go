package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mcpmux/mcpmux/internal/domain/app"
)

// Admin is the REST surface for managing the app registry: list, create,
// inspect, and delete apps. Unlike the downstream MCP surface, this speaks
// plain request/response JSON, not SSE.
type Admin struct {
	store   app.Store
	logger  *slog.Logger
	onAdded func(a *app.App)
	prefix  string
}

// NewAdmin creates the admin API handler. onAdded, if non-nil, is called
// after a new app is persisted so the caller can bring its supervisor up.
func NewAdmin(store app.Store, logger *slog.Logger, onAdded func(a *app.App)) *Admin {
	return &Admin{store: store, logger: logger, onAdded: onAdded}
}

// RegisterRoutes mounts the admin API under prefix (conventionally
// "/admin/apps").
func (a *Admin) RegisterRoutes(mux *http.ServeMux, prefix string) {
	a.prefix = prefix
	mux.HandleFunc(prefix, a.handleCollection)
	mux.HandleFunc(prefix+"/", a.handleItem)
}

func (a *Admin) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.list(w, r)
	case http.MethodPost:
		a.create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *Admin) handleItem(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, a.prefix+"/")
	if name == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.get(w, r, name)
	case http.MethodDelete:
		a.delete(w, r, name)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *Admin) list(w http.ResponseWriter, r *http.Request) {
	apps, err := a.store.List(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"apps": apps})
}

func (a *Admin) get(w http.ResponseWriter, r *http.Request, name string) {
	found, err := a.store.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "app not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// createAppRequest is the admin API's input shape for registering an app.
type createAppRequest struct {
	Name      string          `json:"name"`
	Upstreams json.RawMessage `json:"upstreams"`
}

func (a *Admin) create(w http.ResponseWriter, r *http.Request) {
	var req createAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newApp := &app.App{
		ID:        app.NewID(),
		Name:      req.Name,
		CreatedAt: time.Now(),
	}
	if len(req.Upstreams) > 0 {
		if err := json.Unmarshal(req.Upstreams, &newApp.Upstreams); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid upstreams")
			return
		}
	}

	if err := newApp.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.Create(r.Context(), newApp); err != nil {
		if errors.Is(err, app.ErrNameTaken) {
			writeJSONError(w, http.StatusConflict, "app name already in use")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if a.onAdded != nil {
		a.onAdded(newApp)
	}

	a.logger.Info("app registered", "name", newApp.Name, "upstreams", len(newApp.Upstreams))
	writeJSON(w, http.StatusCreated, newApp)
}

func (a *Admin) delete(w http.ResponseWriter, r *http.Request, name string) {
	if err := a.store.Delete(r.Context(), name); err != nil {
		if errors.Is(err, app.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "app not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
