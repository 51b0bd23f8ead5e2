package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/quailpub/internal/apperr"
	"github.com/starford/quailpub/internal/checksum"
	"github.com/starford/quailpub/internal/document"
	"github.com/starford/quailpub/internal/frontmatter"
	"github.com/starford/quailpub/internal/imageref"
	"github.com/starford/quailpub/internal/ledger"
	"github.com/starford/quailpub/internal/quail"
	"github.com/starford/quailpub/internal/resolver"
	"github.com/starford/quailpub/internal/rewrite"
	"github.com/starford/quailpub/internal/uploader"
)

// Action names.
const (
	ActionSave      = "save"
	ActionPublish   = "publish"
	ActionUnpublish = "unpublish"
	ActionDeliver   = "deliver"
)

// arranged is a document ready to be sent to Quail.
type arranged struct {
	snap     *document.Snapshot
	payload  *frontmatter.Payload
	uploaded int
}

// Save uploads the document's images and creates or updates its post.
// The frontmatter is verified first; an empty summary or tags are then filled
// from the composer and written back to the document.
func (s *Service) Save(ctx context.Context, p string) (*Result, error) {
	return s.run(ctx, p, ActionSave)
}

// Publish saves the document and makes its post public.
func (s *Service) Publish(ctx context.Context, p string) (*Result, error) {
	return s.run(ctx, p, ActionPublish)
}

func (s *Service) run(ctx context.Context, p, action string) (*Result, error) {
	release, err := s.acquire(p)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, _, err := s.verified(p)
	if err != nil {
		return nil, err
	}
	filled, err := s.fillMetadata(ctx, snap)
	if err != nil {
		return nil, err
	}

	m := newMachine(p, action, s.now, s.observers)
	if err := m.to(StateUploading); err != nil {
		return nil, err
	}
	a, err := s.arrange(ctx, p)
	if err != nil {
		return nil, m.fail(err)
	}

	if err := m.to(StatePublishing); err != nil {
		return nil, m.fail(err)
	}
	post, err := s.api.CreatePost(ctx, s.cfg.ListID, a.payload)
	if err != nil {
		return nil, m.fail(fmt.Errorf("publisher: create post: %w", err))
	}
	status := ledger.StatusSaved
	if action == ActionPublish {
		if post, err = s.api.PublishPost(ctx, s.cfg.ListID, a.payload.Slug); err != nil {
			return nil, m.fail(fmt.Errorf("publisher: publish post: %w", err))
		}
		status = ledger.StatusPublished
	}

	res := &Result{
		Path:     p,
		Action:   action,
		Slug:     a.payload.Slug,
		Status:   status,
		ViewURL:  s.viewURL(a.payload.Slug),
		Uploaded: a.uploaded,
		Filled:   filled,
		Post:     post,
	}
	s.record(a.snap, res)

	if err := m.to(StateDone); err != nil {
		return nil, err
	}
	s.logger.Info("post "+status,
		slog.String("path", p),
		slog.String("slug", res.Slug),
		slog.Int("images", res.Uploaded),
	)
	return res, nil
}

// fillMetadata merges composer suggestions into the empty summary and tags
// of a verified document and writes the result back.
func (s *Service) fillMetadata(ctx context.Context, snap *document.Snapshot) ([]string, error) {
	if !snap.Record.Incomplete() {
		return nil, nil
	}

	sug, err := s.api.GenerateFrontmatter(ctx, s.title(snap), strings.TrimSpace(snap.Body))
	if err != nil {
		return nil, fmt.Errorf("publisher: generate metadata: %w", err)
	}
	rec := snap.Record.Clone()
	filled := frontmatter.MergeEmpty(rec, frontmatter.Record{
		frontmatter.FieldSummary: sug.Summary,
		frontmatter.FieldTags:    sug.Tags,
	})
	if len(filled) == 0 {
		return nil, nil
	}
	if err := s.writeBack(snap, rec); err != nil {
		return nil, err
	}
	s.logger.Info("metadata filled", slog.String("path", snap.Path), slog.Any("fields", filled))
	return filled, nil
}

// arrange verifies the document, uploads its images and formalizes the
// rewritten body into a payload.
func (s *Service) arrange(ctx context.Context, p string) (*arranged, error) {
	snap, _, err := s.verified(p)
	if err != nil {
		return nil, err
	}
	rec := snap.Record.Clone()
	host := &vaultHost{store: s.store, snap: snap}

	images, err := resolver.Resolve(ctx, host, imageref.Scan(snap.Body), rec.Trimmed(frontmatter.FieldCoverImageURL), s.logger)
	if err != nil {
		return nil, err
	}

	var oldURLs, newURLs []string
	uploaded := 0
	for _, img := range images.Images() {
		viewURL, err := s.upload(ctx, img)
		if err != nil {
			return nil, err
		}
		uploaded++
		// every spelling of the file in the body maps to the same URL
		for _, pathname := range img.Pathnames() {
			oldURLs = append(oldURLs, pathname)
			newURLs = append(newURLs, viewURL)
		}
		if images.Cover != nil && img.Path == images.Cover.Path {
			rec[frontmatter.FieldCoverImageURL] = viewURL
		}
	}

	body := rewrite.Rewrite(snap.Body, oldURLs, newURLs, s.logger)
	payload, err := s.formalize(snap, rec, body)
	if err != nil {
		return nil, err
	}
	return &arranged{snap: snap, payload: payload, uploaded: uploaded}, nil
}

// formalize builds the payload from rec and body. The summary is derived
// from the body as written; line breaks are doubled in the content only.
func (s *Service) formalize(snap *document.Snapshot, rec frontmatter.Record, body string) (*frontmatter.Payload, error) {
	if rec.Trimmed(frontmatter.FieldTitle) == "" {
		rec[frontmatter.FieldTitle] = snap.Title
	}
	payload, err := frontmatter.Formalize(rec, strings.TrimSpace(body), frontmatter.WithClock(s.now))
	if err != nil {
		return nil, err
	}
	if !s.cfg.StrictLineBreaks {
		payload.Content = strings.ReplaceAll(payload.Content, "\n", "\n\n")
	}
	return payload, nil
}

// upload stores img through the configured uploader unless the ledger
// already holds a URL for the same content.
func (s *Service) upload(ctx context.Context, img resolver.Image) (string, error) {
	sum := checksum.Sum(img.Data)
	if s.ledger != nil {
		viewURL, ok, err := s.ledger.LookupAttachment(sum, s.cfg.Uploader)
		if err != nil {
			s.logger.Warn("attachment cache lookup failed", slog.String("error", err.Error()))
		} else if ok {
			s.logger.Debug("attachment cached", slog.String("path", img.Path), slog.String("url", viewURL))
			return viewURL, nil
		}
	}

	viewURL, err := s.uploader.Upload(ctx, uploader.Attachment{Name: img.Name, MimeType: img.MimeType, Data: img.Data})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperr.ErrUpload, img.Path, err)
	}
	s.logger.Debug("attachment uploaded", slog.String("path", img.Path), slog.String("url", viewURL))

	if s.ledger != nil {
		row := ledger.AttachmentRow{Checksum: sum, Uploader: s.cfg.Uploader, Name: img.Name, MimeType: img.MimeType, ViewURL: viewURL}
		if err := s.ledger.PutAttachment(row); err != nil {
			s.logger.Warn("attachment cache write failed", slog.String("error", err.Error()))
		}
	}
	return viewURL, nil
}

// record stores the outcome of a save or publish in the ledger.
func (s *Service) record(snap *document.Snapshot, res *Result) {
	if s.ledger == nil {
		return
	}
	now := s.now()
	err := s.ledger.UpsertPost(ledger.PostRow{
		Path:      snap.Path,
		ListID:    s.cfg.ListID,
		Slug:      res.Slug,
		Checksum:  checksum.Sum([]byte(snap.Raw)),
		Status:    ledger.StatusSaved,
		ViewURL:   res.ViewURL,
		UpdatedAt: now,
	})
	if err == nil && res.Status != ledger.StatusSaved {
		err = s.ledger.SetStatus(snap.Path, res.Status, now)
	}
	if err != nil {
		s.logger.Warn("ledger update failed", slog.String("path", snap.Path), slog.String("error", err.Error()))
	}
}

// Unpublish hides the post of the document at p.
func (s *Service) Unpublish(ctx context.Context, p string) (*Result, error) {
	return s.postAction(ctx, p, ActionUnpublish, s.api.UnpublishPost, ledger.StatusUnpublished)
}

// Deliver sends the post of the document at p to the list's subscribers.
func (s *Service) Deliver(ctx context.Context, p string) (*Result, error) {
	return s.postAction(ctx, p, ActionDeliver, s.api.DeliverPost, ledger.StatusDelivered)
}

type postFunc func(ctx context.Context, listID, slug string) (*quail.Post, error)

func (s *Service) postAction(ctx context.Context, p, action string, call postFunc, status string) (*Result, error) {
	release, err := s.acquire(p)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, _, err := s.verified(p)
	if err != nil {
		return nil, err
	}
	slug := snap.Record.Trimmed(frontmatter.FieldSlug)
	post, err := call(ctx, s.cfg.ListID, slug)
	if err != nil {
		return nil, fmt.Errorf("publisher: %s post: %w", action, err)
	}

	if s.ledger != nil {
		if err := s.ledger.SetStatus(p, status, s.now()); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("ledger update failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	s.logger.Info("post "+status, slog.String("path", p), slog.String("slug", slug))
	return &Result{Path: p, Action: action, Slug: slug, Status: status, ViewURL: s.viewURL(slug), Post: post}, nil
}

// GenerateMetadata replaces the document's slug, summary and tags with
// composer suggestions and returns the new frontmatter.
func (s *Service) GenerateMetadata(ctx context.Context, p string) (frontmatter.Record, error) {
	release, err := s.acquire(p)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, _, err := s.snapshot(p)
	if err != nil {
		return nil, err
	}
	sug, err := s.api.GenerateFrontmatter(ctx, s.title(snap), strings.TrimSpace(snap.Body))
	if err != nil {
		return nil, fmt.Errorf("publisher: generate metadata: %w", err)
	}

	rec := frontmatter.Record{}
	if snap.HasFrontmatter() {
		rec = snap.Record.Clone()
	}
	suggested := sug.Record(s.now())
	// keep an existing datetime and cover
	for _, key := range []string{frontmatter.FieldDatetime, frontmatter.FieldCoverImageURL} {
		if !rec.IsEmpty(key) {
			delete(suggested, key)
		}
	}
	frontmatter.Overwrite(rec, suggested)
	if err := s.writeBack(snap, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// InsertTemplate prepends a frontmatter template to a document without one.
func (s *Service) InsertTemplate(_ context.Context, p string) (frontmatter.Record, error) {
	release, err := s.acquire(p)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, _, err := s.snapshot(p)
	if err != nil {
		return nil, err
	}
	if snap.HasFrontmatter() {
		return nil, fmt.Errorf("%s: %w", p, apperr.ErrFrontmatterExists)
	}
	rec := frontmatter.Template(snap.Title, s.now())
	if err := s.writeBack(snap, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Verify checks the frontmatter of the document at p.
func (s *Service) Verify(_ context.Context, p string) (frontmatter.Verification, error) {
	snap, _, err := s.snapshot(p)
	if err != nil {
		return frontmatter.Verification{}, err
	}
	if !snap.HasFrontmatter() {
		return frontmatter.Verification{}, fmt.Errorf("%s: %w", p, apperr.ErrNoFrontmatter)
	}
	return frontmatter.Verify(snap.Record), nil
}

// Preview formalizes the document as it would be sent, without uploading
// images or calling Quail. Image references keep their vault targets.
func (s *Service) Preview(_ context.Context, p string) (*frontmatter.Payload, error) {
	snap, _, err := s.verified(p)
	if err != nil {
		return nil, err
	}
	return s.formalize(snap, snap.Record.Clone(), snap.Body)
}

func (s *Service) title(snap *document.Snapshot) string {
	if snap.HasFrontmatter() {
		if t := snap.Record.Trimmed(frontmatter.FieldTitle); t != "" {
			return t
		}
	}
	return snap.Title
}

func (s *Service) writeBack(snap *document.Snapshot, rec frontmatter.Record) error {
	out, err := snap.WithFrontmatter(rec)
	if err != nil {
		return err
	}
	if err := s.store.Write(snap.Path, out); err != nil {
		return fmt.Errorf("publisher: write %s: %w", snap.Path, err)
	}
	return nil
}
