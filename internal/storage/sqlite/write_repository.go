package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/italolelis/edge_downloader/internal/storage"
)

// staleClaimAge is how long a claim of a crashed instance blocks others.
const staleClaimAge = time.Hour

// DownloadWriteRepository implements storage.DownloadWriteRepository
// and stores download records in SQLite.
type DownloadWriteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewDownloadWriteRepository(db *sql.DB) *DownloadWriteRepository {
	return &DownloadWriteRepository{db: db, now: time.Now}
}

// ClaimDownload upserts the record with status 'downloading'. An existing row
// is taken over unless another instance claimed it within staleClaimAge.
func (r *DownloadWriteRepository) ClaimDownload(ctx context.Context, record storage.DownloadRecord) (bool, error) {
	now := r.now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO downloads (file_path, url, sha256, downloaded_at, status, locked_by)
		VALUES (?, ?, ?, ?, 'downloading', ?)
		ON CONFLICT(file_path) DO UPDATE SET
			url = excluded.url,
			sha256 = excluded.sha256,
			downloaded_at = excluded.downloaded_at,
			status = 'downloading',
			locked_by = excluded.locked_by
		WHERE downloads.status != 'downloading'
			OR downloads.locked_by IS NULL
			OR downloads.locked_by = ''
			OR downloads.locked_by = excluded.locked_by
			OR downloads.downloaded_at < ?
	`, record.Path, record.URL, hex.EncodeToString(record.Sha256), now.Format(time.RFC3339), record.LockedBy,
		now.Add(-staleClaimAge).Format(time.RFC3339))
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// UpdateDownloadStatus sets the final status and size and releases the claim.
func (r *DownloadWriteRepository) UpdateDownloadStatus(ctx context.Context, path, status string, size int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE downloads SET status = ?, size = ?, downloaded_at = ?, locked_by = NULL WHERE file_path = ?`,
		status, size, r.now().UTC().Format(time.RFC3339), path,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// DeleteDownload forgets the record for path.
func (r *DownloadWriteRepository) DeleteDownload(ctx context.Context, path string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM downloads WHERE file_path = ?`, path)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}
