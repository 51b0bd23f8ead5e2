package quail

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/quailpub/internal/frontmatter"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New("secret", WithBaseURL(srv.URL+"/"))
}

func writeEnvelope(w http.ResponseWriter, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "msg": msg, "data": data})
}

func TestCreatePost(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/lists/my-list/posts" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-QUAIL-KEY"); got != "secret" {
			t.Errorf("api key = %q", got)
		}
		var p frontmatter.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if p.Slug != "hello" || p.Content != "body" {
			t.Errorf("payload = %+v", p)
		}
		writeEnvelope(w, 0, "", map[string]any{"id": 7, "slug": "hello"})
	})

	post, err := c.CreatePost(context.Background(), "my-list", &frontmatter.Payload{Slug: "hello", Content: "body"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.ID != 7 || post.Slug != "hello" {
		t.Errorf("post = %+v", post)
	}
}

func TestPostActions(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		paths = append(paths, r.URL.Path)
		writeEnvelope(w, 0, "", nil)
	})

	ctx := context.Background()
	for _, fn := range []func(context.Context, string, string) (*Post, error){c.PublishPost, c.UnpublishPost, c.DeliverPost} {
		post, err := fn(ctx, "l", "s")
		if err != nil {
			t.Fatalf("action: %v", err)
		}
		if post.Slug != "s" {
			t.Errorf("slug = %q", post.Slug)
		}
	}
	want := []string{"/lists/l/posts/s/publish", "/lists/l/posts/s/unpublish", "/lists/l/posts/s/deliver"}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestUploadAttachment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/attachments" {
			t.Errorf("path = %s", r.URL.Path)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "PNGDATA" || hdr.Filename != "a.png" || hdr.Header.Get("Content-Type") != "image/png" {
			t.Errorf("upload = %q %q %q", data, hdr.Filename, hdr.Header.Get("Content-Type"))
		}
		writeEnvelope(w, 0, "", map[string]string{"view_url": "https://cdn/a.png"})
	})

	att, err := c.UploadAttachment(context.Background(), []byte("PNGDATA"), "image/png", "a.png")
	if err != nil {
		t.Fatalf("UploadAttachment: %v", err)
	}
	if att.ViewURL != "https://cdn/a.png" {
		t.Errorf("view url = %q", att.ViewURL)
	}
}

func TestGenerateFrontmatter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/composer/frontmatter" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeEnvelope(w, 0, "", map[string]string{"slug": "s", "summary": "sum", "tags": "a,b"})
	})
	s, err := c.GenerateFrontmatter(context.Background(), "T", "body")
	if err != nil {
		t.Fatalf("GenerateFrontmatter: %v", err)
	}
	if s.Slug != "s" || s.Summary != "sum" || s.Tags != "a,b" {
		t.Errorf("suggestion = %+v", s)
	}
}

func TestEnvelopeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, 40001, "slug taken", nil)
	})
	_, err := c.PublishPost(context.Background(), "l", "s")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 40001 || apiErr.Message != "slug taken" {
		t.Errorf("err = %+v", apiErr)
	}
}

func TestHTTPErrorWithoutEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	_, err := c.DeliverPost(context.Background(), "l", "s")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
