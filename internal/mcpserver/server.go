// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the SafeVault documents and saved locations over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/safevault/safevault/internal/apperr"
	"github.com/safevault/safevault/internal/location"
	"github.com/safevault/safevault/internal/models"
	"github.com/safevault/safevault/internal/vault"
)

const documentsURI = "safevault://documents"

// Server wraps the MCP server with SafeVault tools. It drives its own vault
// session, so tools that open or delete documents never race an interactive
// client.
type Server struct {
	mcp     *server.MCPServer
	store   *vault.Store
	tracker *location.Tracker
}

// New creates a new MCP server with all SafeVault tools registered.
func New(store *vault.Store, tracker *location.Tracker) *Server {
	s := &Server{store: store, tracker: tracker}

	s.mcp = server.NewMCPServer(
		"SafeVault",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the documents stored in the vault folder."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full text of a vault document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path as returned by list_documents (e.g. MyVaultDocuments/notes.txt)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Save a new text document. The name becomes <name>.txt in the vault folder; "+
			"an existing document with the same name is overwritten unless the vault rejects duplicates."),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name without extension")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document text")),
	), s.saveDocument)

	s.mcp.AddTool(mcp.NewTool("update_document",
		mcp.WithDescription("Replace the text of an existing vault document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New document text")),
	), s.updateDocument)

	s.mcp.AddTool(mcp.NewTool("delete_document",
		mcp.WithDescription("Delete a vault document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
	), s.deleteDocument)

	s.mcp.AddTool(mcp.NewTool("list_locations",
		mcp.WithDescription("List saved locations with their names, dates and map links."),
	), s.listLocations)

	s.mcp.AddResource(
		mcp.NewResource(documentsURI, "Vault documents",
			mcp.WithResourceDescription("Newline-separated paths of the documents in the vault folder."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readDocumentsResource,
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

func (s *Server) paths(ctx context.Context) ([]string, error) {
	docs, err := s.store.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	return paths, nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := s.paths(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no documents"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.store.Open(ctx, models.Document{Path: path})
	if err != nil {
		return openError(path, err), nil
	}
	_ = s.store.Close()
	return mcp.NewToolResultText(doc.Text()), nil
}

// openError reports a missing document as "not found" and anything else as is.
func openError(path string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) saveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.store.Create(ctx, name, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", doc.Path)), nil
}

func (s *Server) updateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.store.Open(ctx, models.Document{Path: path}); err != nil {
		return openError(path, err), nil
	}
	if _, err := s.store.Update(ctx, content); err != nil {
		_ = s.store.Close()
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", path)), nil
}

func (s *Server) deleteDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.store.Refresh(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.RequestDelete(models.Document{Path: path}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	if err := s.store.ConfirmDelete(ctx); err != nil {
		_ = s.store.CancelDelete()
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) listLocations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	locs, err := s.tracker.Load(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(locs) == 0 {
		return mcp.NewToolResultText("no saved locations"), nil
	}
	out, _ := json.MarshalIndent(locs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocumentsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	paths, err := s.paths(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      documentsURI,
			MIMEType: "text/plain",
			Text:     strings.Join(paths, "\n"),
		},
	}, nil
}
