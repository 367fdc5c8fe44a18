package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/groupstage/draw-backend/internal/groups"
)

type Handlers struct {
	svc *groups.Service
	log *zap.Logger
}

func NewHandlers(svc *groups.Service, log *zap.Logger) *Handlers {
	return &Handlers{svc: svc, log: log}
}

type drawRequest struct {
	GroupsCount int    `json:"groupsCount"`
	Method      string `json:"method"`
}

type assignRequest struct {
	GroupsCount int `json:"groupsCount"`
}

func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	grouping, err := h.svc.List(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grouping)
}

func (h *Handlers) DrawGroups(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	count, err := h.svc.Draw(r.Context(), chi.URLParam(r, "slug"), req.GroupsCount, groups.DrawMethod(req.Method))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "groupsCount": count})
}

func (h *Handlers) ResetGroups(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context(), chi.URLParam(r, "slug")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handlers) AssignOne(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	reveal, err := h.svc.AssignOne(r.Context(), chi.URLParam(r, "slug"), req.GroupsCount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if reveal.Done {
		writeJSON(w, http.StatusOK, map[string]any{"done": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "team": reveal.Team, "letter": reveal.Letter})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, groups.ErrTournamentNotFound):
		http.Error(w, "tournament not found", http.StatusNotFound)
	case errors.Is(err, groups.ErrInvalidGroupsCount), errors.Is(err, groups.ErrNoTeams):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		// Storage detail stays out of responses.
		h.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
