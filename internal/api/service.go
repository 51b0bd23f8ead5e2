package api

import (
	"context"

	"github.com/starford/quailpub/internal/frontmatter"
	"github.com/starford/quailpub/internal/ledger"
	"github.com/starford/quailpub/internal/publisher"
)

// Publisher is the action surface the handlers call.
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

// actions maps the {action} URL parameter to the publisher call.
func actions(p Publisher) map[string]actionFunc {
	return map[string]actionFunc{
		publisher.ActionSave:      p.Save,
		publisher.ActionPublish:   p.Publish,
		publisher.ActionUnpublish: p.Unpublish,
		publisher.ActionDeliver:   p.Deliver,
	}
}
