package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/gauravkale/ComicsLibrary/internal/models"
	"github.com/gauravkale/ComicsLibrary/internal/store"
)

// UpdateQueryRequest is the request body for updating the search query text.
type UpdateQueryRequest struct {
	Query string `json:"query"`
}

// SearchStateResponse is the current search lifecycle state. Results and
// Attribution are set when state is "success"; Message when it is "error".
type SearchStateResponse struct {
	Query       string                   `json:"query"`
	State       string                   `json:"state"`
	Results     []models.RemoteCharacter `json:"results,omitempty"`
	Attribution string                   `json:"attribution,omitempty"`
	Message     string                   `json:"message,omitempty"`
}

// StatusResponse reports the connectivity signal.
type StatusResponse struct {
	Connectivity string `json:"connectivity"`
}

// CollectRequest is the request body for adding a character to the collection.
type CollectRequest struct {
	ExternalID   int      `json:"external_id"`
	Name         string   `json:"name"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Comics       []string `json:"comics"`
	Description  string   `json:"description"`
}

// Validate validates the collect request.
func (r CollectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ExternalID, validation.Required, validation.Min(1)),
		validation.Field(&r.Name, validation.Required),
	)
}

// AddNoteRequest is the request body for attaching a note to a character.
type AddNoteRequest struct {
	OwnerCharacterID int64  `json:"owner_character_id"`
	Title            string `json:"title"`
	Text             string `json:"text"`
}

// Validate validates the note request.
func (r AddNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OwnerCharacterID, validation.Required, validation.Min(1)),
		validation.Field(&r.Title, validation.Required),
	)
}

// CollectionResponse wraps the collection listing.
type CollectionResponse struct {
	Characters []models.CollectedCharacter `json:"characters"`
	Total      int                         `json:"total"`
}

// NoteSearchResponse wraps full-text search hits over the note archive.
type NoteSearchResponse struct {
	Matches []store.NoteMatch `json:"matches"`
	Total   int               `json:"total"`
}

// NotesResponse wraps a note listing.
type NotesResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}
