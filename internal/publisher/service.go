// Package publisher runs the document actions: save, publish, unpublish,
// deliver and the frontmatter helpers.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/starford/quailpub/internal/apperr"
	"github.com/starford/quailpub/internal/document"
	"github.com/starford/quailpub/internal/frontmatter"
	"github.com/starford/quailpub/internal/ledger"
	"github.com/starford/quailpub/internal/quail"
	"github.com/starford/quailpub/internal/storage"
	"github.com/starford/quailpub/internal/uploader"
)

// API is the part of the Quail client the publisher calls.
type API interface {
	CreatePost(ctx context.Context, listID string, payload *frontmatter.Payload) (*quail.Post, error)
	PublishPost(ctx context.Context, listID, slug string) (*quail.Post, error)
	UnpublishPost(ctx context.Context, listID, slug string) (*quail.Post, error)
	DeliverPost(ctx context.Context, listID, slug string) (*quail.Post, error)
	GenerateFrontmatter(ctx context.Context, title, content string) (*frontmatter.Suggestion, error)
}

// Config holds the publishing settings of one Quail list.
type Config struct {
	ListID string
	// Host is the public site address used to build view URLs.
	Host             string
	StrictLineBreaks bool
	// Uploader names the configured uploader; attachment cache entries are
	// kept per uploader.
	Uploader string
}

// Service coordinates the vault, the uploader, the Quail API and the ledger.
type Service struct {
	store    storage.Provider
	api      API
	uploader uploader.Uploader
	cfg      Config

	ledger    ledger.Ledger
	logger    *slog.Logger
	now       func() time.Time
	observers []Observer

	mu       sync.Mutex
	inFlight map[string]bool
}

// Option configures a Service.
type Option func(*Service)

// WithLedger records posts and caches uploads in l.
func WithLedger(l ledger.Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithObserver adds an observer of publishing state transitions.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// New creates a Service.
func New(store storage.Provider, api API, up uploader.Uploader, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:    store,
		api:      api,
		uploader: up,
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
	for _, o := range opts {
		o(s)
	}
	if s.cfg.Uploader == "" {
		s.cfg.Uploader = uploader.TypeQuail
	}
	return s
}

// Result is the outcome of an action that reached Quail.
type Result struct {
	Path     string      `json:"path"`
	Action   string      `json:"action"`
	Slug     string      `json:"slug"`
	Status   string      `json:"status"`
	ViewURL  string      `json:"view_url,omitempty"`
	Uploaded int         `json:"uploaded"`
	Filled   []string    `json:"filled,omitempty"`
	Post     *quail.Post `json:"post,omitempty"`
}

// acquire marks p busy for the duration of an action.
func (s *Service) acquire(p string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[p] {
		return nil, fmt.Errorf("%w: %s", apperr.ErrBusy, p)
	}
	s.inFlight[p] = true
	return func() {
		s.mu.Lock()
		delete(s.inFlight, p)
		s.mu.Unlock()
	}, nil
}

// snapshot reads and splits the document at p.
func (s *Service) snapshot(p string) (*document.Snapshot, []byte, error) {
	raw, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", p, apperr.ErrNotFound)
		}
		return nil, nil, err
	}
	snap, err := document.Load(p, raw)
	if err != nil {
		return nil, nil, err
	}
	return snap, raw, nil
}

// verified returns the snapshot of p if its frontmatter passes Verify.
func (s *Service) verified(p string) (*document.Snapshot, []byte, error) {
	snap, raw, err := s.snapshot(p)
	if err != nil {
		return nil, nil, err
	}
	if !snap.HasFrontmatter() {
		return nil, nil, fmt.Errorf("%s: %w", p, apperr.ErrNoFrontmatter)
	}
	if v := frontmatter.Verify(snap.Record); !v.Verified {
		return nil, nil, fmt.Errorf("%w: %s", apperr.ErrVerification, v.Reason)
	}
	return snap, raw, nil
}

// viewURL is the public address of a post.
func (s *Service) viewURL(slug string) string {
	if s.cfg.Host == "" || s.cfg.ListID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/p/%s", strings.TrimRight(s.cfg.Host, "/"), s.cfg.ListID, slug)
}

// Status returns every post the ledger knows about.
func (s *Service) Status(_ context.Context) ([]ledger.PostRow, error) {
	if s.ledger == nil {
		return []ledger.PostRow{}, nil
	}
	rows, err := s.ledger.ListPosts()
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []ledger.PostRow{}
	}
	return rows, nil
}
