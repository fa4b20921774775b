// Package models defines the domain types for the character library.
package models

import "strings"

// RemoteCharacter is one catalog entry as returned by the remote search.
// Instances live only for the duration of a single query response; they are
// transformed into CollectedCharacter on collection.
type RemoteCharacter struct {
	ExternalID   int      `json:"external_id"`
	Name         string   `json:"name"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Comics       []string `json:"comics,omitempty"`
	Description  string   `json:"description"`
}

// CollectedCharacter is a persisted collection entry. LocalID is assigned by
// the store and is the only key notes reference; ExternalID is the dedup key
// back to the remote catalog.
type CollectedCharacter struct {
	LocalID       int64  `json:"local_id"`
	ExternalID    int    `json:"external_id"`
	Name          string `json:"name"`
	ThumbnailURL  string `json:"thumbnail_url"`
	ComicsSummary string `json:"comics_summary"`
	Description   string `json:"description"`
}

// Note is a free-text note attached to a collected character. A note never
// outlives its owner: removing a character cascades to its notes.
type Note struct {
	LocalID          int64  `json:"local_id"`
	OwnerCharacterID int64  `json:"owner_character_id"`
	Title            string `json:"title"`
	Text             string `json:"text"`
}

// NoComics is the summary shown for a character with no comic appearances.
const NoComics = "no comics"

// ComicsSummary joins comic names into a single display string.
func ComicsSummary(comics []string) string {
	if len(comics) == 0 {
		return NoComics
	}
	return strings.Join(comics, ", ")
}

// Collected maps a remote catalog entry to its persisted form. LocalID is
// zero until the store assigns one.
func Collected(rc RemoteCharacter) CollectedCharacter {
	return CollectedCharacter{
		ExternalID:    rc.ExternalID,
		Name:          rc.Name,
		ThumbnailURL:  rc.ThumbnailURL,
		ComicsSummary: ComicsSummary(rc.Comics),
		Description:   rc.Description,
	}
}
