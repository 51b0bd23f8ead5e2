package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LookupAttachment returns the URL an uploader already assigned to content
// with the given checksum.
func (db *DB) LookupAttachment(checksum, uploader string) (string, bool, error) {
	var viewURL string
	err := db.conn.QueryRow(`SELECT view_url FROM attachments WHERE checksum = ? AND uploader = ?`, checksum, uploader).Scan(&viewURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ledger: lookup attachment: %w", err)
	}
	return viewURL, true, nil
}

// PutAttachment caches an upload result.
func (db *DB) PutAttachment(a AttachmentRow) error {
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO attachments (checksum, uploader, name, mime_type, view_url, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(checksum, uploader) DO UPDATE SET
			name        = excluded.name,
			mime_type   = excluded.mime_type,
			view_url    = excluded.view_url,
			uploaded_at = excluded.uploaded_at
	`, a.Checksum, a.Uploader, a.Name, a.MimeType, a.ViewURL, a.UploadedAt)
	if err != nil {
		return fmt.Errorf("ledger: put attachment: %w", err)
	}
	return nil
}
