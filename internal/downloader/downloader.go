package downloader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/edge_downloader/internal/downloader/progress"
	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/logctx"
	"github.com/italolelis/edge_downloader/internal/storage"
	"github.com/italolelis/edge_downloader/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	MinParallelism = 1
	MaxParallelism = 64

	dirPerm = 0755
)

// Option configures a Downloader.
type Option func(*Downloader)

// WithTransport replaces the base round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(d *Downloader) {
		d.client.Transport = otelhttp.NewTransport(rt)
	}
}

// WithHistory records downloads and skips files already verified.
func WithHistory(repo storage.DownloadRepository) Option {
	return func(d *Downloader) {
		d.history = repo
	}
}

func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(d *Downloader) {
		d.telemetry = tel
	}
}

// WithProgress sets the renderer factory, called once per file.
func WithProgress(fn func(fileName string) progress.RenderFunc) Option {
	return func(d *Downloader) {
		d.progress = fn
	}
}

// Downloader fetches artifacts either as one stream or as verified pieces.
type Downloader struct {
	// client has no overall timeout; artifacts can take arbitrarily long.
	client     *http.Client
	history    storage.DownloadRepository
	telemetry  *telemetry.Telemetry
	progress   func(fileName string) progress.RenderFunc
	instanceID string
}

func New(opts ...Option) *Downloader {
	d := &Downloader{
		client:     &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		instanceID: storage.InstanceID(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Download saves url to targetPath. A parallelism of 1 or less streams the
// file; anything higher fetches digest-checked pieces with that many workers. When
// digest is a SHA-256 sum the finished file is verified against it and kept
// even if verification fails.
func (d *Downloader) Download(ctx context.Context, url, targetPath string, digest []byte, parallelism int) error {
	if parallelism > MaxParallelism {
		return fmt.Errorf("parallelism must be at most %d, got %d", MaxParallelism, parallelism)
	}

	logger := logctx.LoggerFromContext(ctx).With("target", targetPath)
	ctx = logctx.WithLogger(ctx, logger)

	if err := d.claim(ctx, url, targetPath, digest); err != nil {
		return err
	}

	if err := d.ensureTargetDir(targetPath, logger); err != nil {
		d.finish(ctx, targetPath, storage.StatusFailed, 0)

		return err
	}

	mode := "pieces"
	if parallelism <= MinParallelism {
		mode = "single"
	}

	var size int64

	err := d.telemetry.InstrumentDownload(ctx, mode, func(ctx context.Context) error {
		var err error
		if parallelism <= MinParallelism {
			size, err = d.downloadSingle(ctx, url, targetPath)
		} else {
			size, err = d.downloadPieces(ctx, url, targetPath, parallelism)
		}

		if err != nil {
			return err
		}

		if len(digest) == sha256.Size {
			return verifyFile(targetPath, digest)
		}

		return nil
	})
	if err != nil {
		d.finish(ctx, targetPath, storage.StatusFailed, size)

		return fmt.Errorf("failed to download %s: %w", url, err)
	}

	d.finish(ctx, targetPath, storage.StatusVerified, size)

	logger.Info("downloaded and saved file", "file_size", humanize.Bytes(uint64(size)), "mode", mode)

	return nil
}

// claim consults the history. A path recorded as verified with the same
// digest that is still on disk is skipped with storage.ErrDownloaded.
func (d *Downloader) claim(ctx context.Context, url, targetPath string, digest []byte) error {
	if d.history == nil {
		return nil
	}

	record, err := d.history.GetDownload(ctx, targetPath)

	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read download history: %w", err)
	case alreadyDownloaded(record, targetPath, digest):
		logctx.LoggerFromContext(ctx).Debug("file already downloaded", "downloaded_at", record.DownloadedAt)

		return storage.ErrDownloaded
	}

	claimed, err := d.history.ClaimDownload(ctx, storage.DownloadRecord{
		Path:     targetPath,
		URL:      url,
		Sha256:   digest,
		LockedBy: d.instanceID,
	})
	if err != nil {
		return fmt.Errorf("failed to claim download: %w", err)
	}

	if !claimed {
		return storage.ErrLocked
	}

	return nil
}

func alreadyDownloaded(record *storage.DownloadRecord, targetPath string, digest []byte) bool {
	if record.Status != storage.StatusVerified || len(digest) == 0 || !bytes.Equal(record.Sha256, digest) {
		return false
	}

	info, err := os.Stat(targetPath)

	return err == nil && info.Size() == record.Size
}

func (d *Downloader) finish(ctx context.Context, targetPath, status string, size int64) {
	if d.history == nil {
		return
	}

	if err := d.history.UpdateDownloadStatus(ctx, targetPath, status, size); err != nil {
		logctx.LoggerFromContext(ctx).Warn("failed to record download", "status", status, "err", err)
	}
}

func (d *Downloader) downloadSingle(ctx context.Context, url, targetPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, &edge.TransportError{Operation: "download", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &edge.TransportError{Operation: "download", URL: url, StatusCode: resp.StatusCode}
	}

	if resp.ContentLength <= 0 {
		return 0, &edge.TransportError{
			Operation:  "download",
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        errors.New("response has no content length"),
		}
	}

	tracker, err := progress.NewTracker(resp.ContentLength, d.renderer(ctx, targetPath))
	if err != nil {
		return 0, err
	}

	out, err := createSized(targetPath, resp.ContentLength)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	n, err := io.Copy(out, progress.NewReader(resp.Body, tracker))
	d.telemetry.RecordDownloadedBytes(n)

	if err != nil {
		return n, &edge.TransportError{Operation: "download", URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	if n != resp.ContentLength {
		return n, &edge.TransportError{
			Operation:  "download",
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength),
		}
	}

	return n, out.Close()
}

func (d *Downloader) renderer(ctx context.Context, targetPath string) progress.RenderFunc {
	name := filepath.Base(targetPath)
	if d.progress != nil {
		return d.progress(name)
	}

	return LogProgress(logctx.LoggerFromContext(ctx), name)
}

// LogProgress logs every tenth of a transfer at debug level.
func LogProgress(logger *slog.Logger, name string) progress.RenderFunc {
	var lastDecile int64

	return func(downloaded, total, unit int64) {
		decile := unit / (progress.Scale / 10)
		if decile <= lastDecile {
			return
		}

		lastDecile = decile

		logger.Debug("download progress",
			"file", name,
			"downloaded", humanize.Bytes(uint64(downloaded)),
			"total", humanize.Bytes(uint64(total)),
			"percent", humanize.FtoaWithDigits(float64(unit)/100, 2))
	}
}

func (d *Downloader) ensureTargetDir(targetPath string, logger *slog.Logger) error {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		logger.Error("failed to create target directory", "dir", dir, "err", err)

		return fmt.Errorf("failed to create target directory: %w", err)
	}

	return nil
}

// createSized creates (or truncates) the target and sets its length up front.
func createSized(targetPath string, size int64) (*os.File, error) {
	out, err := os.Create(targetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create target file: %w", err)
	}

	if err := out.Truncate(size); err != nil {
		out.Close()

		return nil, fmt.Errorf("failed to size target file: %w", err)
	}

	return out, nil
}

func verifyFile(targetPath string, digest []byte) error {
	f, err := os.Open(targetPath)
	if err != nil {
		return fmt.Errorf("failed to open downloaded file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("failed to hash downloaded file: %w", err)
	}

	if !bytes.Equal(h.Sum(nil), digest) {
		return &edge.IntegrityError{Path: targetPath, Piece: -1}
	}

	return nil
}
