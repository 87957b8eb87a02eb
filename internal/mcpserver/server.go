// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/postservice"
	"github.com/starford/ansuz/internal/publish"
	"github.com/starford/ansuz/internal/storage"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *postservice.Service
	pub   *publish.Publisher
	store storage.Provider
}

// New creates a new MCP server with all Ansuz tools registered.
func New(svc *postservice.Service, pub *publish.Publisher, store storage.Provider) *Server {
	s := &Server{svc: svc, pub: pub, store: store}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List cached blog posts, optionally filtered by search query, category or tag."),
		mcp.WithString("query", mcp.Description("Substring to match against title, description and excerpt")),
		mcp.WithString("category", mcp.Description("Exact category to filter by")),
		mcp.WithString("tag", mcp.Description("Exact tag to filter by")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read the full Markdown content of an article."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Article path relative to the content root (e.g. post/2025-01-01-hello/index.md)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("publish_post",
		mcp.WithDescription("Publish a draft article: flips draft to false and stamps publishDate. "+
			"Fails if the article is already published."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Article path relative to the content root")),
	), s.publishPost)

	s.mcp.AddTool(mcp.NewTool("post_status",
		mcp.WithDescription("Get the publish status of an article, including validation warnings."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Article path relative to the content root")),
	), s.postStatus)

	s.mcp.AddTool(mcp.NewTool("refresh_cache",
		mcp.WithDescription("Reconcile the post cache with the content directory and report what changed."),
		mcp.WithBoolean("force", mcp.Description("Re-parse every file regardless of mtime")),
	), s.refreshCache)

	s.mcp.AddTool(mcp.NewTool("get_post_contract",
		mcp.WithDescription("Returns the canonical Ansuz article format contract. "+
			"Call this before creating or editing articles to ensure correct structure."),
	), s.getPostContract)

	// Resource: article format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://post-format", "Article Format Contract",
			mcp.WithResourceDescription("Canonical Markdown article format that all posts must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPostFormatResource,
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

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	category := req.GetString("category", "")
	tag := req.GetString("tag", "")

	page, err := s.svc.GetPosts(ctx, query, category, tag, 1, 100)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(page.Posts, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) publishPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.pub.Publish(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s (operation %s)", result.Message, result.OperationID)), nil
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) postStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := s.pub.GetStatus(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(st, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) refreshCache(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	force := req.GetBool("force", false)
	stats, err := s.svc.Refresh(ctx, force)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %d, deleted: %d", stats.Updated, stats.Deleted)), nil
}

func (s *Server) getPostContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostFormatContract), nil
}

func (s *Server) readPostFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://post-format",
			MIMEType: "text/markdown",
			Text:     PostFormatContract,
		},
	}, nil
}
