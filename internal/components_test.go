package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/quailpub/internal/apperr"
	"github.com/starford/quailpub/internal/testutil"
	"github.com/starford/quailpub/internal/uploader"
)

func componentsConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := validConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "ledger.db")
	return cfg
}

func TestNewComponents_CreatesVaultAndLedger(t *testing.T) {
	cfg := componentsConfig(t)
	c, err := NewComponents(context.Background(), cfg, testutil.QuietLogger())
	if err != nil {
		t.Fatalf("NewComponents: %v", err)
	}
	defer c.Close()

	if info, err := os.Stat(cfg.Vault.Path); err != nil || !info.IsDir() {
		t.Fatalf("vault dir not created: %v", err)
	}
	if _, err := os.Stat(cfg.SQLite.Path); err != nil {
		t.Fatalf("ledger db not created: %v", err)
	}

	posts, err := c.Publisher.Status(context.Background())
	if err != nil || len(posts) != 0 {
		t.Fatalf("status = %v, %v", posts, err)
	}
}

func TestNewComponents_PublisherWritesVault(t *testing.T) {
	cfg := componentsConfig(t)
	c, err := NewComponents(context.Background(), cfg, testutil.QuietLogger())
	if err != nil {
		t.Fatalf("NewComponents: %v", err)
	}
	defer c.Close()

	if err := c.Store.Write("Hello World.md", []byte("body\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Publisher.InsertTemplate(context.Background(), "Hello World.md"); err != nil {
		t.Fatalf("InsertTemplate: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Vault.Path, "Hello World.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "---\n") || !strings.Contains(string(data), "slug:") {
		t.Errorf("template not written: %q", data)
	}

	_, err = c.Publisher.InsertTemplate(context.Background(), "Hello World.md")
	if !errors.Is(err, apperr.ErrFrontmatterExists) {
		t.Errorf("second insert err = %v", err)
	}
}

func TestNewComponents_LocalUploader(t *testing.T) {
	cfg := componentsConfig(t)
	cfg.Uploader = uploader.Config{
		Type:  uploader.TypeLocal,
		Local: uploader.LocalConfig{Dir: "attachments", PublicBase: "http://localhost:8080"},
	}
	c, err := NewComponents(context.Background(), cfg, testutil.QuietLogger())
	if err != nil {
		t.Fatalf("NewComponents: %v", err)
	}
	defer c.Close()

	url, err := c.Uploader.Upload(context.Background(), uploader.Attachment{Name: "a.png", MimeType: "image/png", Data: []byte("png")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/attachments/") || !strings.HasSuffix(url, "-a.png") {
		t.Errorf("url = %q", url)
	}
}

func TestNewComponents_UnknownUploader(t *testing.T) {
	cfg := componentsConfig(t)
	cfg.Uploader.Type = "ftp"
	if _, err := NewComponents(context.Background(), cfg, testutil.QuietLogger()); err == nil {
		t.Fatal("expected error for unknown uploader type")
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
	if err := RunMCP(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
