package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"backlog-manager/internal/backlog"
	"backlog-manager/internal/model"
	"backlog-manager/internal/view"
)

// OwnerHeader selects whose backlog a request works on.
const OwnerHeader = "X-Backlog-Owner"

var ownerPattern = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)

// Backlog is the part of service.BacklogService the API uses.
type Backlog interface {
	Get(ctx context.Context, key, id string) (model.Game, error)
	Create(ctx context.Context, key string, in model.NewGame) (model.Game, error)
	Update(ctx context.Context, key, id string, u model.GameUpdate) (model.Game, error)
	Delete(ctx context.Context, key, id string) (bool, error)
	MarkComplete(ctx context.Context, key, id string) (model.Game, error)
	StartPlaying(ctx context.Context, key, id string) (model.Game, error)
	Move(ctx context.Context, key, id, column string) (model.Game, bool, error)
	View(ctx context.Context, key string, f backlog.Filter) ([]model.Game, error)
	Stats(ctx context.Context, key string) (model.Stats, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	svc     Backlog
	baseKey string
}

// NewHandler creates a new handler with dependencies
func NewHandler(svc Backlog, baseKey string) *Handler {
	return &Handler{svc: svc, baseKey: baseKey}
}

// backlogKey resolves the storage key of the request's owner.
func (h *Handler) backlogKey(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if owner == "" {
		return h.baseKey, nil
	}
	if !ownerPattern.MatchString(owner) {
		return "", fmt.Errorf("invalid %s header", OwnerHeader)
	}
	return h.baseKey + ":" + owner, nil
}

// withKey resolves the backlog key or answers 400.
func (h *Handler) withKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := h.backlogKey(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return "", false
	}
	return key, true
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "backlog-manager",
	})
}

// ListGames returns the filtered view.
// Query params: status, platform, q ("all" or empty disables a filter)
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	key, ok := h.withKey(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	f, err := backlog.ParseFilter(q.Get("status"), q.Get("platform"), q.Get("q"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	games, err := h.svc.View(r.Context(), key, f)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if games == nil {
		games = []model.Game{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

// CreateGame adds a game. A duplicate answers 409 with the existing record.
func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	key, ok := h.withKey(w, r)
	if !ok {
		return
	}

	var in model.NewGame
	if err := decodeBody(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	g, err := h.svc.Create(r.Context(), key, in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, g)
}

// GetGame returns one game.
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	key, ok := h.withKey(w, r)
	if !ok {
		return
	}

	g, err := h.svc.Get(r.Context(), key, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// updateRequest is the PATCH body. A null price removes the price.
type updateRequest struct {
	Title    *string         `json:"title"`
	Platform *model.Platform `json:"platform"`
	Status   *model.Status   `json:"status"`
	Price    json.RawMessage `json:"price"`
	Notes    *string         `json:"notes"`
}

func (req updateRequest) toUpdate() (model.GameUpdate, error) {
	u := model.GameUpdate{
		Title:    req.Title,
		Platform: req.Platform,
		Status:   req.Status,
		Notes:    req.Notes,
	}
	if raw := bytes.TrimSpace(req.Price); len(raw) > 0 {
		if bytes.Equal(raw, []byte("null")) {
			u.ClearPrice = true
		} else {
			var m model.Money
			if err := json.Unmarshal(raw, &m); err != nil {
				return model.GameUpdate{}, err
			}
			u.Price = &m
		}
	}
	return u, nil
}

// UpdateGame applies a partial update.
func (h *Handler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	key, ok := h.withKey(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	u, err := req.toUpdate()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	g, err := h.svc.Update(r.Context(), key, chi.URLParam(r, "id"), u)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// DeleteGame removes a game. Unknown ids also answer 204.
func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	key, ok := h.withKey(w, r)
	if !ok {
		return
	}

	if _, err := h.svc.Delete(r.Context(), key, chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteGame is the "Mark Complete" quick action.
func (h *Handler) CompleteGame(w http.ResponseWriter, r *http.Request) {
	h.quickAction(w, r, h.svc.MarkComplete)
}

// StartGame is the "Start Playing" quick action.
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	h.quickAction(w, r, h.svc.StartPlaying)
}

func (h *Handler) quickAction(w http.ResponseWriter, r *http.Request, action func(context.Context, string, string) (model.Game, error)) {
	key, ok := h.withKey(w, r)
	if !ok {
		return
	}

	g, err := action(r.Context(), key, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, g)
}

type moveRequest struct {
	Column string `json:"column"`
}

type moveResponse struct {
	Game  model.Game `json:"game"`
	Moved bool       `json:"moved"`
}

// MoveGame handles a card dropped on a board column.
func (h *Handler) MoveGame(w http.ResponseWriter, r *http.Request) {
	key, ok := h.withKey(w, r)
	if !ok {
		return
	}

	var req moveRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	g, moved, err := h.svc.Move(r.Context(), key, chi.URLParam(r, "id"), req.Column)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, moveResponse{Game: g, Moved: moved})
}

type statsResponse struct {
	model.Stats
	Formatted struct {
		TotalSpent         string `json:"totalSpent"`
		EstimatedRemaining string `json:"estimatedRemaining"`
	} `json:"formatted"`
}

// GetStats returns the summary of the whole backlog.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	key, ok := h.withKey(w, r)
	if !ok {
		return
	}

	st, err := h.svc.Stats(r.Context(), key)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := statsResponse{Stats: st}
	resp.Formatted.TotalSpent = view.FormatCurrency(st.TotalSpent)
	resp.Formatted.EstimatedRemaining = view.FormatCurrency(st.EstimatedRemaining)
	respondJSON(w, http.StatusOK, resp)
}

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// GetMeta lists the values forms and boards offer.
func (h *Handler) GetMeta(w http.ResponseWriter, r *http.Request) {
	statuses := make([]option, 0, len(model.Statuses()))
	for _, s := range model.Statuses() {
		statuses = append(statuses, option{Value: string(s), Label: s.Label()})
	}
	platforms := make([]option, 0, len(model.Platforms()))
	for _, p := range model.Platforms() {
		platforms = append(platforms, option{Value: string(p), Label: string(p)})
	}
	columns := make([]string, 0, len(backlog.Columns()))
	for _, c := range backlog.Columns() {
		columns = append(columns, string(c))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"statuses":  statuses,
		"platforms": platforms,
		"columns":   columns,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
