package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/quailpub/internal/ledger"
	"github.com/starford/quailpub/internal/publisher"
	"github.com/starford/quailpub/internal/quail"
	"github.com/starford/quailpub/internal/storage"
	"github.com/starford/quailpub/internal/uploader"
)

// Components is everything a quailpub command needs to act on the vault.
type Components struct {
	Store     *storage.FS
	Ledger    *ledger.DB
	Quail     *quail.Client
	Uploader  uploader.Uploader
	Publisher *publisher.Service
}

// NewComponents opens the vault and ledger and builds the publisher from cfg.
// The caller must Close the result.
func NewComponents(ctx context.Context, cfg *Config, logger *slog.Logger, opts ...publisher.Option) (*Components, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	client := quail.New(cfg.Quail.APIKey,
		quail.WithBaseURL(cfg.Quail.APIBase),
		quail.WithLogger(logger),
	)

	up, err := uploader.New(ctx, &cfg.Uploader, uploader.Deps{Quail: client, Store: store})
	if err != nil {
		return nil, fmt.Errorf("init uploader: %w", err)
	}

	db, err := ledger.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init ledger: %w", err)
	}

	opts = append([]publisher.Option{
		publisher.WithLedger(db),
		publisher.WithLogger(logger),
	}, opts...)

	svc := publisher.New(store, client, up, publisher.Config{
		ListID:           cfg.Quail.ListID,
		Host:             cfg.Quail.Host,
		StrictLineBreaks: cfg.Quail.StrictLineBreaks,
		Uploader:         cfg.Uploader.Type,
	}, opts...)

	return &Components{
		Store:     store,
		Ledger:    db,
		Quail:     client,
		Uploader:  up,
		Publisher: svc,
	}, nil
}

// Close releases the ledger.
func (c *Components) Close() error {
	return c.Ledger.Close()
}
