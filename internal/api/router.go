package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gauravkale/ComicsLibrary/internal/coordinator"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(coord *coordinator.Coordinator, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(coord)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Remote search.
	r.Get("/search", h.SearchState)
	r.Put("/search/query", h.UpdateQuery)

	// Collection.
	r.Get("/characters", h.ListCharacters)
	r.Post("/characters", h.Collect)
	r.Get("/characters/{id}", h.GetCharacter)
	r.Delete("/characters/{id}", h.Uncollect)
	r.Get("/characters/{id}/notes", h.CharacterNotes)

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/search", h.SearchNotes)
	r.Post("/notes", h.AddNote)
	r.Delete("/notes/{id}", h.RemoveNote)

	// Connectivity.
	r.Get("/status", h.Status)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
