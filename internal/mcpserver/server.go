// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the character library tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gauravkale/ComicsLibrary/internal/apperr"
	"github.com/gauravkale/ComicsLibrary/internal/catalog"
	"github.com/gauravkale/ComicsLibrary/internal/collection"
	"github.com/gauravkale/ComicsLibrary/internal/models"
)

// Server wraps the MCP server with character library tools.
type Server struct {
	mcp  *server.MCPServer
	cat  catalog.Searcher
	repo *collection.Repository
}

// New creates a new MCP server with all library tools registered.
func New(cat catalog.Searcher, repo *collection.Repository) *Server {
	s := &Server{cat: cat, repo: repo}

	s.mcp = server.NewMCPServer(
		"ComicsLibrary",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_characters",
		mcp.WithDescription("Search the remote character catalog by name prefix. "+
			"Returns matching characters with their attribution notice."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Name prefix to search for")),
	), s.searchCharacters)

	s.mcp.AddTool(mcp.NewTool("get_character",
		mcp.WithDescription("Look up a character by its catalog id. Checks the local "+
			"collection first and falls back to the remote catalog."),
		mcp.WithNumber("external_id", mcp.Required(), mcp.Description("Catalog id of the character")),
	), s.getCharacter)

	s.mcp.AddTool(mcp.NewTool("collect_character",
		mcp.WithDescription("Add a character to the local collection. Collecting a "+
			"character that is already present returns the existing entry."),
		mcp.WithNumber("external_id", mcp.Required(), mcp.Description("Catalog id of the character")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Character name")),
		mcp.WithString("thumbnail_url", mcp.Description("Optional thumbnail URL")),
		mcp.WithString("description", mcp.Description("Optional character description")),
	), s.collectCharacter)

	s.mcp.AddTool(mcp.NewTool("uncollect_character",
		mcp.WithDescription("Remove a character from the collection along with all its notes."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Local id of the collected character")),
	), s.uncollectCharacter)

	s.mcp.AddTool(mcp.NewTool("list_collection",
		mcp.WithDescription("List all characters in the local collection."),
	), s.listCollection)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Attach a note to a collected character."),
		mcp.WithNumber("character_id", mcp.Required(), mcp.Description("Local id of the collected character")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("text", mcp.Description("Note body")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, optionally restricted to one character."),
		mcp.WithNumber("character_id", mcp.Description("Optional local character id filter")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search over note titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("remove_note",
		mcp.WithDescription("Delete a note by its id. Deleting an absent note is a no-op."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.removeNote)

	// Resource: current collection snapshot.
	s.mcp.AddResource(
		mcp.NewResource("comicslibrary://collection", "Collected Characters",
			mcp.WithResourceDescription("JSON snapshot of the local character collection."),
			mcp.WithMIMEType("application/json"),
		),
		s.readCollectionResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchCharacters(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.cat.SearchCharacters(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getCharacter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	externalID, err := req.RequireInt("external_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if saved, err := s.repo.GetByExternalID(externalID); err == nil {
		return jsonResult(saved)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(err.Error()), nil
	}

	remote, err := s.cat.FetchCharacter(ctx, externalID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("character %d not found: %v", externalID, err)), nil
	}
	return jsonResult(remote)
}

func (s *Server) collectCharacter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	externalID, err := req.RequireInt("external_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	saved, err := s.repo.Add(models.RemoteCharacter{
		ExternalID:   externalID,
		Name:         name,
		ThumbnailURL: req.GetString("thumbnail_url", ""),
		Description:  req.GetString("description", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(saved)
}

func (s *Server) uncollectCharacter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.repo.Remove(int64(id)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("character %d removed", id)), nil
}

func (s *Server) listCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	characters := s.repo.Collection().Get()
	if len(characters) == 0 {
		return mcp.NewToolResultText("collection is empty"), nil
	}
	return jsonResult(characters)
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	characterID, err := req.RequireInt("character_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	saved, err := s.repo.AddNote(models.Note{
		OwnerCharacterID: int64(characterID),
		Title:            title,
		Text:             req.GetString("text", ""),
	})
	if err != nil {
		if errors.Is(err, apperr.ErrIntegrity) {
			return mcp.NewToolResultError(fmt.Sprintf("character %d is not in the collection", characterID)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(saved)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if characterID := req.GetInt("character_id", 0); characterID > 0 {
		notes, err := s.repo.NotesFor(int64(characterID))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(notes)
	}

	notes := s.repo.Notes().Get()
	if len(notes) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return jsonResult(notes)
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matches, err := s.repo.SearchNotes(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return jsonResult(matches)
}

func (s *Server) removeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.repo.RemoveNote(int64(id)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("note %d removed", id)), nil
}

func (s *Server) readCollectionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.repo.Collection().Get(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "comicslibrary://collection",
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
