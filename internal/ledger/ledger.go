package ledger

import "time"

// Post statuses.
const (
	StatusSaved       = "saved"
	StatusPublished   = "published"
	StatusUnpublished = "unpublished"
	StatusDelivered   = "delivered"
)

// PostRow is a row of the posts table.
type PostRow struct {
	Path        string     `json:"path"`
	ListID      string     `json:"list_id"`
	Slug        string     `json:"slug"`
	Checksum    string     `json:"checksum"`
	Status      string     `json:"status"`
	ViewURL     string     `json:"view_url,omitempty"`
	Stale       bool       `json:"stale"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AttachmentRow is a cached upload.
type AttachmentRow struct {
	Checksum   string
	Uploader   string
	Name       string
	MimeType   string
	ViewURL    string
	UploadedAt time.Time
}

// Ledger defines the ledger operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type Ledger interface {
	UpsertPost(p PostRow) error
	SetStatus(path, status string, at time.Time) error
	MarkStale(path string, stale bool) error
	GetPost(path string) (*PostRow, error)
	ListPosts() ([]PostRow, error)
	DeletePost(path string) error
	AllChecksums() (map[string]string, error)
	LookupAttachment(checksum, uploader string) (string, bool, error)
	PutAttachment(a AttachmentRow) error
	Close() error
}

// Verify *DB satisfies Ledger at compile time.
var _ Ledger = (*DB)(nil)
