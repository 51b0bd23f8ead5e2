// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes quailpub actions for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quailpub/internal/frontmatter"
	"github.com/starford/quailpub/internal/ledger"
	"github.com/starford/quailpub/internal/publisher"
	"github.com/starford/quailpub/internal/storage"
)

const contractURI = "quailpub://frontmatter-format"

// Publisher is the action surface the tools call.
type Publisher interface {
	Save(ctx context.Context, path string) (*publisher.Result, error)
	Publish(ctx context.Context, path string) (*publisher.Result, error)
	Unpublish(ctx context.Context, path string) (*publisher.Result, error)
	Deliver(ctx context.Context, path string) (*publisher.Result, error)
	Verify(ctx context.Context, path string) (frontmatter.Verification, error)
	Preview(ctx context.Context, path string) (*frontmatter.Payload, error)
	GenerateMetadata(ctx context.Context, path string) (frontmatter.Record, error)
	InsertTemplate(ctx context.Context, path string) (frontmatter.Record, error)
	Status(ctx context.Context) ([]ledger.PostRow, error)
}

var _ Publisher = (*publisher.Service)(nil)

type actionFunc func(ctx context.Context, path string) (*publisher.Result, error)

// Server wraps the MCP server with quailpub tools.
type Server struct {
	mcp         *server.MCPServer
	store       storage.Provider
	pub         Publisher
	attachments string
}

// Option configures a Server.
type Option func(*Server)

// WithAttachmentDir sets the vault folder import_image saves into.
func WithAttachmentDir(dir string) Option {
	return func(s *Server) {
		if dir != "" {
			s.attachments = dir
		}
	}
}

// New creates a new MCP server with all quailpub tools registered.
func New(store storage.Provider, pub Publisher, opts ...Option) *Server {
	s := &Server{store: store, pub: pub, attachments: "attachments"}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"quailpub",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	pathArg := mcp.WithString("path", mcp.Required(), mcp.Description("Vault path of the document (e.g. posts/hello.md)"))

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List Markdown documents in the vault or in one folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw content of a Markdown document, frontmatter included."),
		pathArg,
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("verify_frontmatter",
		mcp.WithDescription("Check whether a document's frontmatter can be published. "+
			"Returns {verified, reason}. Read the contract via get_frontmatter_contract first."),
		pathArg,
	), s.verify)

	s.mcp.AddTool(mcp.NewTool("preview_post",
		mcp.WithDescription("Show the payload that would be sent to Quail, without uploading or publishing."),
		pathArg,
	), s.preview)

	s.mcp.AddTool(mcp.NewTool("save_post",
		mcp.WithDescription("Upload the document's images and create or update its Quail post without publishing it."),
		pathArg,
	), s.action(pub.Save))

	s.mcp.AddTool(mcp.NewTool("publish_post",
		mcp.WithDescription("Save the document and make its Quail post public. Returns the post's view URL."),
		pathArg,
	), s.action(pub.Publish))

	s.mcp.AddTool(mcp.NewTool("unpublish_post",
		mcp.WithDescription("Hide the Quail post of a document."),
		pathArg,
	), s.action(pub.Unpublish))

	s.mcp.AddTool(mcp.NewTool("deliver_post",
		mcp.WithDescription("Send a published post to the list's subscribers."),
		pathArg,
	), s.action(pub.Deliver))

	s.mcp.AddTool(mcp.NewTool("generate_metadata",
		mcp.WithDescription("Replace the document's slug, summary and tags with suggestions from the Quail composer."),
		pathArg,
	), s.generateMetadata)

	s.mcp.AddTool(mcp.NewTool("insert_metadata_template",
		mcp.WithDescription("Prepend a frontmatter template to a document that has none."),
		pathArg,
	), s.insertTemplate)

	s.mcp.AddTool(mcp.NewTool("post_status",
		mcp.WithDescription("List the posts quailpub has saved, with status and whether the document changed since."),
	), s.status)

	s.mcp.AddTool(mcp.NewTool("get_frontmatter_contract",
		mcp.WithDescription("Returns the frontmatter contract. "+
			"Call this before writing or fixing frontmatter."),
	), s.getContract)

	s.mcp.AddTool(mcp.NewTool("import_image",
		mcp.WithDescription("Copy an image from an http(s) URL or a base64 data URI into the vault "+
			"and return a Markdown reference usable from the given document."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("document", mcp.Description("Document the image will be embedded in; the reference is made relative to it")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.importImage)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Frontmatter Contract",
			mcp.WithResourceDescription("Frontmatter a document needs before it can be published to Quail."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listDocuments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no documents found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) verify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.pub.Verify(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v), nil
}

func (s *Server) preview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.pub.Preview(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p), nil
}

func (s *Server) action(call actionFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := call(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res), nil
	}
}

func (s *Server) generateMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.pub.GenerateMetadata(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) insertTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.pub.InsertTemplate(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) status(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	posts, err := s.pub.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(posts) == 0 {
		return mcp.NewToolResultText("no posts saved yet"), nil
	}
	return jsonResult(posts), nil
}

func (s *Server) getContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FrontmatterContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     FrontmatterContract,
		},
	}, nil
}
