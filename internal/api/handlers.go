package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gauravkale/ComicsLibrary/internal/apperr"
	"github.com/gauravkale/ComicsLibrary/internal/coordinator"
	"github.com/gauravkale/ComicsLibrary/internal/models"
	"github.com/gauravkale/ComicsLibrary/internal/store"
)

// resolveTimeout bounds how long GET /characters/{id} waits for the detail
// resolution (store lookup plus possible remote fetch) to reach a terminal
// state.
const resolveTimeout = 10 * time.Second

// Handler holds API route handlers.
type Handler struct {
	coord *coordinator.Coordinator
}

// NewHandler creates a new Handler.
func NewHandler(coord *coordinator.Coordinator) *Handler {
	return &Handler{coord: coord}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// UpdateQuery handles PUT /api/search/query. The submission itself is
// debounced; 202 means "accepted for searching", not "searched".
func (h *Handler) UpdateQuery(w http.ResponseWriter, r *http.Request) {
	var req UpdateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.coord.SetQueryText(req.Query)
	w.WriteHeader(http.StatusAccepted)
}

// SearchState handles GET /api/search.
func (h *Handler) SearchState(w http.ResponseWriter, r *http.Request) {
	res := h.coord.Results().Get()
	writeJSON(w, http.StatusOK, SearchStateResponse{
		Query:       h.coord.QueryText().Get(),
		State:       res.Kind.String(),
		Results:     res.Payload,
		Attribution: res.Attribution,
		Message:     res.Message,
	})
}

// Status handles GET /api/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Connectivity: h.coord.Connectivity().Get().String(),
	})
}

// ListCharacters handles GET /api/characters.
func (h *Handler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	characters := h.coord.Collection().Get()
	if characters == nil {
		characters = []models.CollectedCharacter{}
	}
	writeJSON(w, http.StatusOK, CollectionResponse{Characters: characters, Total: len(characters)})
}

// Collect handles POST /api/characters.
func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	saved, err := h.coord.Collect(models.RemoteCharacter{
		ExternalID:   req.ExternalID,
		Name:         req.Name,
		ThumbnailURL: req.ThumbnailURL,
		Comics:       req.Comics,
		Description:  req.Description,
	})
	if err != nil {
		slog.Error("collect failed", slog.Int("external_id", req.ExternalID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GetCharacter handles GET /api/characters/{id}. It resolves locally first
// and falls back to a remote fetch. Resolution runs on the request goroutine
// rather than through the shared detail machine, so concurrent requests for
// different ids do not supersede each other.
func (h *Handler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("character id must be numeric"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), resolveTimeout)
	defer cancel()

	view, err := h.coord.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			writeJSON(w, http.StatusGatewayTimeout, errorBody("character resolution timed out"))
			return
		}
		if ctx.Err() != nil {
			// Client went away; there is nobody to answer.
			return
		}
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Uncollect handles DELETE /api/characters/{id}.
func (h *Handler) Uncollect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("character id must be numeric"))
		return
	}
	if err := h.coord.Uncollect(id); err != nil {
		slog.Error("uncollect failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CharacterNotes handles GET /api/characters/{id}/notes.
func (h *Handler) CharacterNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("character id must be numeric"))
		return
	}
	notes, err := h.coord.NotesFor(id)
	if err != nil {
		slog.Error("list character notes failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, NotesResponse{Notes: notes, Total: len(notes)})
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes := h.coord.Notes().Get()
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, NotesResponse{Notes: notes, Total: len(notes)})
}

// SearchNotes handles GET /api/notes/search.
func (h *Handler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q parameter is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	matches, err := h.coord.SearchNotes(q, limit)
	if err != nil {
		slog.Error("note search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if matches == nil {
		matches = []store.NoteMatch{}
	}
	writeJSON(w, http.StatusOK, NoteSearchResponse{Matches: matches, Total: len(matches)})
}

// AddNote handles POST /api/notes.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	saved, err := h.coord.AddNote(models.Note{
		OwnerCharacterID: req.OwnerCharacterID,
		Title:            req.Title,
		Text:             req.Text,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrIntegrity) {
			writeJSON(w, http.StatusConflict, errorBody("character is not in the collection"))
			return
		}
		slog.Error("add note failed", slog.Int64("owner", req.OwnerCharacterID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// RemoveNote handles DELETE /api/notes/{id}.
func (h *Handler) RemoveNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("note id must be numeric"))
		return
	}
	if err := h.coord.RemoveNote(id); err != nil {
		slog.Error("remove note failed", slog.Int64("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
