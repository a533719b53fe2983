// Package server is the remote inventory endpoint: a single JSON resource
// addressed by query parameters, backed by a Repository.
//
//	GET    ?type=plants|lawns        -> {"plants": [...]} / {"lawns": [...]}
//	POST   {"type":"plant","data":{}} -> 201 {"success":true,"id":"..."}
//	DELETE ?type=plant|lawn&id=...    -> 200 {"success":true}
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// Handler serves the inventory endpoint.
type Handler struct {
	repo   Repository
	logger *slog.Logger
}

// NewHandler returns a handler over repo. A nil logger uses slog.Default.
func NewHandler(repo Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes returns the endpoint router, to be mounted at the base URL.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(cors)
	r.Options("/", preflight)
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/", h.remove)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func preflight(w http.ResponseWriter, _ *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("type")
	if resource == "" {
		resource = string(types.CollectionPlants)
	}
	switch types.Collection(resource) {
	case types.CollectionPlants:
		plants, err := h.repo.ListPlants(r.Context())
		if err != nil {
			h.internal(w, "list plants", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]types.Plant{"plants": plants})
	case types.CollectionLawns:
		lawns, err := h.repo.ListLawns(r.Context())
		if err != nil {
			h.internal(w, "list lawns", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]types.Lawn{"lawns": lawns})
	default:
		writeError(w, http.StatusBadRequest, "unknown type "+resource)
	}
}

type createRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type createResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "missing data")
		return
	}

	switch req.Type {
	case types.CollectionPlants.Singular():
		var p types.Plant
		if err := strictUnmarshal(req.Data, &p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid plant: "+err.Error())
			return
		}
		if err := validatePlant(p); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.repo.UpsertPlant(r.Context(), p); err != nil {
			h.internal(w, "upsert plant", err)
			return
		}
		writeJSON(w, http.StatusCreated, createResponse{Success: true, ID: p.ID})
	case types.CollectionLawns.Singular():
		var l types.Lawn
		if err := strictUnmarshal(req.Data, &l); err != nil {
			writeError(w, http.StatusBadRequest, "invalid lawn: "+err.Error())
			return
		}
		if err := validateLawn(l); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.repo.UpsertLawn(r.Context(), l); err != nil {
			h.internal(w, "upsert lawn", err)
			return
		}
		writeJSON(w, http.StatusCreated, createResponse{Success: true, ID: l.ID})
	default:
		writeError(w, http.StatusBadRequest, "unknown type "+req.Type)
	}
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing id parameter")
		return
	}
	resource := q.Get("type")
	if resource == "" {
		resource = types.CollectionPlants.Singular()
	}
	c, err := types.ParseCollection(resource)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown type "+resource)
		return
	}
	if err := h.repo.Delete(r.Context(), c, id); err != nil {
		h.internal(w, "delete "+c.Singular(), err)
		return
	}
	writeJSON(w, http.StatusOK, createResponse{Success: true})
}

func (h *Handler) internal(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request failed", "op", op, "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
