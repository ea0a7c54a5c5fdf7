package sqlite

import (
	"database/sql"

	"github.com/italolelis/edge_downloader/internal/storage"
)

// DownloadRepository is the SQLite download history.
type DownloadRepository struct {
	*DownloadReadRepository
	*DownloadWriteRepository
}

var _ storage.DownloadRepository = (*DownloadRepository)(nil)

func NewDownloadRepository(dbConn *sql.DB) *DownloadRepository {
	return &DownloadRepository{
		DownloadReadRepository:  NewDownloadReadRepository(dbConn),
		DownloadWriteRepository: NewDownloadWriteRepository(dbConn),
	}
}
