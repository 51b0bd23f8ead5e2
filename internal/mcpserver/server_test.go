package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quailpub/internal/apperr"
	"github.com/starford/quailpub/internal/frontmatter"
	"github.com/starford/quailpub/internal/ledger"
	"github.com/starford/quailpub/internal/publisher"
	"github.com/starford/quailpub/internal/storage"
	"github.com/starford/quailpub/internal/testutil"
)

// minimal 1x1 PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

type fakePublisher struct {
	calls []string
	err   error
}

func (f *fakePublisher) result(action, path string) (*publisher.Result, error) {
	f.calls = append(f.calls, action+":"+path)
	if f.err != nil {
		return nil, f.err
	}
	return &publisher.Result{Path: path, Action: action, Slug: "hello", Status: "published"}, nil
}

func (f *fakePublisher) Save(_ context.Context, p string) (*publisher.Result, error) {
	return f.result("save", p)
}

func (f *fakePublisher) Publish(_ context.Context, p string) (*publisher.Result, error) {
	return f.result("publish", p)
}

func (f *fakePublisher) Unpublish(_ context.Context, p string) (*publisher.Result, error) {
	return f.result("unpublish", p)
}

func (f *fakePublisher) Deliver(_ context.Context, p string) (*publisher.Result, error) {
	return f.result("deliver", p)
}

func (f *fakePublisher) Verify(_ context.Context, p string) (frontmatter.Verification, error) {
	f.calls = append(f.calls, "verify:"+p)
	return frontmatter.Verification{Verified: false, Reason: "`slug` is required"}, f.err
}

func (f *fakePublisher) Preview(_ context.Context, p string) (*frontmatter.Payload, error) {
	f.calls = append(f.calls, "preview:"+p)
	if f.err != nil {
		return nil, f.err
	}
	return &frontmatter.Payload{Slug: "hello", Content: "body"}, nil
}

func (f *fakePublisher) GenerateMetadata(_ context.Context, p string) (frontmatter.Record, error) {
	f.calls = append(f.calls, "generate:"+p)
	return frontmatter.Record{"slug": "generated"}, f.err
}

func (f *fakePublisher) InsertTemplate(_ context.Context, p string) (frontmatter.Record, error) {
	f.calls = append(f.calls, "template:"+p)
	return frontmatter.Record{"slug": "hello"}, f.err
}

func (f *fakePublisher) Status(context.Context) ([]ledger.PostRow, error) {
	return []ledger.PostRow{{Path: "a.md", Slug: "a", Status: "saved"}}, f.err
}

func testServer(t *testing.T) (*Server, storage.Provider, *fakePublisher) {
	t.Helper()
	_, store := testutil.TestVault(t)
	pub := &fakePublisher{}
	return New(store, pub, WithAttachmentDir("assets")), store, pub
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_documents":           srv.listDocuments,
		"read_document":            srv.readDocument,
		"verify_frontmatter":       srv.verify,
		"preview_post":             srv.preview,
		"save_post":                srv.action(srv.pub.Save),
		"publish_post":             srv.action(srv.pub.Publish),
		"unpublish_post":           srv.action(srv.pub.Unpublish),
		"deliver_post":             srv.action(srv.pub.Deliver),
		"generate_metadata":        srv.generateMetadata,
		"insert_metadata_template": srv.insertTemplate,
		"post_status":              srv.status,
		"get_frontmatter_contract": srv.getContract,
		"import_image":             srv.importImage,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
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

func TestListAndReadDocuments(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("posts/a.md", []byte("---\nslug: a\n---\nA"))
	_ = store.Write("b.md", []byte("B"))
	_ = store.Write("posts/pic.png", pngBytes)

	text := resultText(callTool(t, srv, "list_documents", map[string]any{}))
	if !strings.Contains(text, "posts/a.md") || !strings.Contains(text, "b.md") {
		t.Errorf("list = %q", text)
	}
	if strings.Contains(text, "pic.png") {
		t.Errorf("images listed as documents: %q", text)
	}

	text = resultText(callTool(t, srv, "list_documents", map[string]any{"folder": "posts"}))
	if strings.Contains(text, "b.md") {
		t.Errorf("folder filter ignored: %q", text)
	}

	text = resultText(callTool(t, srv, "read_document", map[string]any{"path": "posts/a.md"}))
	if text != "---\nslug: a\n---\nA" {
		t.Errorf("read = %q", text)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]any{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestActionTools(t *testing.T) {
	srv, _, pub := testServer(t)
	for _, tool := range []string{"save_post", "publish_post", "unpublish_post", "deliver_post"} {
		r := callTool(t, srv, tool, map[string]any{"path": "a.md"})
		if r.IsError {
			t.Fatalf("%s: %s", tool, resultText(r))
		}
		var res publisher.Result
		if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
			t.Fatalf("%s: decode: %v", tool, err)
		}
		if res.Slug != "hello" || res.Path != "a.md" {
			t.Errorf("%s: result = %+v", tool, res)
		}
	}
	want := []string{"save:a.md", "publish:a.md", "unpublish:a.md", "deliver:a.md"}
	if strings.Join(pub.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v", pub.calls)
	}
}

func TestActionToolErrors(t *testing.T) {
	srv, _, pub := testServer(t)
	pub.err = apperr.ErrVerification

	r := callTool(t, srv, "publish_post", map[string]any{"path": "a.md"})
	if !r.IsError {
		t.Error("expected error result")
	}

	r = callTool(t, srv, "save_post", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing path")
	}
}

func TestVerifyAndPreviewTools(t *testing.T) {
	srv, _, _ := testServer(t)

	text := resultText(callTool(t, srv, "verify_frontmatter", map[string]any{"path": "a.md"}))
	if !strings.Contains(text, `"verified": false`) || !strings.Contains(text, "slug") {
		t.Errorf("verify = %q", text)
	}

	text = resultText(callTool(t, srv, "preview_post", map[string]any{"path": "a.md"}))
	if !strings.Contains(text, `"slug": "hello"`) {
		t.Errorf("preview = %q", text)
	}
}

func TestMetadataTools(t *testing.T) {
	srv, _, pub := testServer(t)

	text := resultText(callTool(t, srv, "generate_metadata", map[string]any{"path": "a.md"}))
	if !strings.Contains(text, "generated") {
		t.Errorf("generate = %q", text)
	}

	pub.err = apperr.ErrFrontmatterExists
	r := callTool(t, srv, "insert_metadata_template", map[string]any{"path": "a.md"})
	if !r.IsError {
		t.Error("expected error when frontmatter exists")
	}
}

func TestStatusTool(t *testing.T) {
	srv, _, pub := testServer(t)
	text := resultText(callTool(t, srv, "post_status", nil))
	if !strings.Contains(text, `"path": "a.md"`) {
		t.Errorf("status = %q", text)
	}

	pub.err = errors.New("db closed")
	if r := callTool(t, srv, "post_status", nil); !r.IsError {
		t.Error("expected error result")
	}
}

func TestContract(t *testing.T) {
	srv, _, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_frontmatter_contract", nil))
	if !strings.Contains(text, "cover_image_url") {
		t.Error("contract missing cover_image_url")
	}

	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != contractURI || tc.Text != FrontmatterContract {
		t.Errorf("resource = %+v", contents[0])
	}
}

func TestImportImage_DataURI(t *testing.T) {
	srv, store, _ := testServer(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	r := callTool(t, srv, "import_image", map[string]any{
		"url":      uri,
		"filename": "my shot.png",
		"document": "posts/hello.md",
	})
	if r.IsError {
		t.Fatalf("import failed: %s", resultText(r))
	}

	var res importResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.SavedPath != "assets/my_shot.png" {
		t.Errorf("savedPath = %q", res.SavedPath)
	}
	if res.MarkdownImage != "![my_shot](../assets/my_shot.png)" {
		t.Errorf("markdownImage = %q", res.MarkdownImage)
	}
	if data, err := store.Read("assets/my_shot.png"); err != nil || len(data) != len(pngBytes) {
		t.Errorf("saved file: %v", err)
	}

	r = callTool(t, srv, "import_image", map[string]any{"url": uri, "filename": "my shot.png"})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("expected duplicate error, got %q", resultText(r))
	}
}

func TestImportImage_GeneratedName(t *testing.T) {
	srv, _, _ := testServer(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)

	r := callTool(t, srv, "import_image", map[string]any{"url": uri})
	if r.IsError {
		t.Fatalf("import failed: %s", resultText(r))
	}
	var res importResult
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if !strings.HasPrefix(res.SavedPath, "assets/") || !strings.HasSuffix(res.SavedPath, ".png") {
		t.Errorf("savedPath = %q", res.SavedPath)
	}
}

func TestImportImage_Rejects(t *testing.T) {
	srv, _, _ := testServer(t)
	png64 := base64.StdEncoding.EncodeToString(pngBytes)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"not base64", map[string]any{"url": "data:image/png,raw"}},
		{"non image type", map[string]any{"url": "data:application/pdf;base64," + png64}},
		{"content mismatch", map[string]any{"url": "data:image/png;base64," + png64, "filename": "x.gif"}},
		{"unsupported extension", map[string]any{"url": "data:image/png;base64," + png64, "filename": "x.pdf"}},
		{"bad scheme", map[string]any{"url": "ftp://example.com/x.png"}},
		{"loopback", map[string]any{"url": "http://127.0.0.1/x.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := callTool(t, srv, "import_image", tt.args); !r.IsError {
				t.Errorf("expected error, got %q", resultText(r))
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd.png": "passwd.png",
		`dir\evil.png`:         "evil.png",
		"a b(1).jpg":           "a_b_1_.jpg",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
