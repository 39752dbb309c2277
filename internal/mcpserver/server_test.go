package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/safevault/safevault/internal/location"
	"github.com/safevault/safevault/internal/models"
	"github.com/safevault/safevault/internal/testutil"
	"github.com/safevault/safevault/internal/vault"
)

func testServer(t *testing.T) (*Server, string, *location.Tracker) {
	t.Helper()

	store, folder, _ := testutil.TestStore(t, vault.Options{})
	logger := testutil.Logger()
	tracker := location.NewTracker(testutil.TestKV(t),
		location.StaticLocator{Position: models.Coordinates{Latitude: 1.5, Longitude: 2.5}},
		location.LogSharer{Logger: logger},
		location.Options{Logger: logger})

	return New(store, tracker), folder, tracker
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "save_document":
		result, err = srv.saveDocument(ctx, req)
	case "update_document":
		result, err = srv.updateDocument(ctx, req)
	case "delete_document":
		result, err = srv.deleteDocument(ctx, req)
	case "list_locations":
		result, err = srv.listLocations(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSaveReadUpdateDelete(t *testing.T) {
	srv, dir, _ := testServer(t)

	r := callTool(t, srv, "save_document", map[string]interface{}{"name": "test", "content": "Hello"})
	if text := resultText(r); text != "saved: MyVaultDocuments/test.txt" {
		t.Errorf("save result = %q", text)
	}

	r = callTool(t, srv, "read_document", map[string]interface{}{"path": "MyVaultDocuments/test.txt"})
	if text := resultText(r); text != "Hello" {
		t.Errorf("read result = %q", text)
	}

	r = callTool(t, srv, "update_document", map[string]interface{}{"path": "MyVaultDocuments/test.txt", "content": "Bye"})
	if r.IsError {
		t.Fatalf("update: %s", resultText(r))
	}
	data, _ := os.ReadFile(filepath.Join(dir, "test.txt"))
	if string(data) != "Bye" {
		t.Errorf("stored = %q", data)
	}

	r = callTool(t, srv, "delete_document", map[string]interface{}{"path": "MyVaultDocuments/test.txt"})
	if r.IsError {
		t.Fatalf("delete: %s", resultText(r))
	}
	if _, err := os.Stat(filepath.Join(dir, "test.txt")); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	srv, dir, _ := testServer(t)
	_ = os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644)

	r := callTool(t, srv, "list_documents", map[string]interface{}{})
	if text := resultText(r); text != "MyVaultDocuments/a.txt\nMyVaultDocuments/b.txt" {
		t.Errorf("list = %q", text)
	}
}

func TestSaveDocumentValidation(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "save_document", map[string]interface{}{"name": "../up", "content": "x"})
	if !r.IsError {
		t.Error("expected error for traversal name")
	}
	r = callTool(t, srv, "save_document", map[string]interface{}{"name": "x"})
	if !r.IsError {
		t.Error("expected error for missing content")
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "MyVaultDocuments/nope.txt"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestReadDocumentMissingSaysNotFound(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "MyVaultDocuments/nope.txt"})
	if text := resultText(r); text != "not found: MyVaultDocuments/nope.txt" {
		t.Errorf("missing read = %q", text)
	}
}

func TestOpenErrorsOtherThanMissingAreReported(t *testing.T) {
	srv, _, _ := testServer(t)
	ctx := context.Background()
	doc, err := srv.store.Create(ctx, "held", "x")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := srv.store.RequestDelete(doc); err != nil {
		t.Fatalf("RequestDelete: %v", err)
	}

	for _, tool := range []string{"read_document", "update_document"} {
		r := callTool(t, srv, tool, map[string]interface{}{"path": doc.Path, "content": "y"})
		text := resultText(r)
		if !r.IsError || strings.HasPrefix(text, "not found") || !strings.Contains(text, "invalid session state") {
			t.Errorf("%s = %q, want the invalid state error", tool, text)
		}
	}

	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "elsewhere/x.txt"})
	if text := resultText(r); strings.HasPrefix(text, "not found") {
		t.Errorf("foreign path = %q, want the validation error", text)
	}
}

func TestDeleteDocumentMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "delete_document", map[string]interface{}{"path": "MyVaultDocuments/nope.txt"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestListLocations(t *testing.T) {
	srv, _, tracker := testServer(t)
	r := callTool(t, srv, "list_locations", map[string]interface{}{})
	if text := resultText(r); text != "no saved locations" {
		t.Errorf("empty list = %q", text)
	}

	ctx := context.Background()
	_, _ = tracker.Locate(ctx)
	if _, err := tracker.Save(ctx, "Harbour"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	r = callTool(t, srv, "list_locations", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, `"name": "Harbour"`) || !strings.Contains(text, "maps?q=1.5,2.5") {
		t.Errorf("list = %q", text)
	}
}
