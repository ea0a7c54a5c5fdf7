package downloader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/italolelis/edge_downloader/internal/downloader/progress"
	"github.com/italolelis/edge_downloader/internal/edge"
	"github.com/italolelis/edge_downloader/internal/logctx"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// pieceAttempts is the number of tries a piece gets before its digest
// mismatch becomes fatal.
const pieceAttempts = 5

// pieceDescriptor is served next to every artifact at {url}/pieceshash.
type pieceDescriptor struct {
	MajorVersion  int      `json:"MajorVersion"`
	MinorVersion  int      `json:"MinorVersion"`
	HashOfHashes  []byte   `json:"HashOfHashes"`
	ContentLength int64    `json:"ContentLength"`
	PieceSize     int64    `json:"PieceSize"`
	Pieces        [][]byte `json:"Pieces"`
}

// piece is one byte range of the artifact and its expected digest.
type piece struct {
	index  int
	offset int64
	length int64
	sha256 []byte
}

// ranges partitions the content. The last piece absorbs the remainder.
func (p *pieceDescriptor) ranges() ([]piece, error) {
	count := int64(len(p.Pieces))
	if count == 0 || p.PieceSize <= 0 || p.ContentLength <= 0 || (count-1)*p.PieceSize >= p.ContentLength {
		return nil, &edge.ParseError{
			Field: "pieces",
			Value: fmt.Sprintf("%d pieces of %d bytes for %d bytes", count, p.PieceSize, p.ContentLength),
		}
	}

	out := make([]piece, 0, count)

	for i, sum := range p.Pieces {
		offset := int64(i) * p.PieceSize

		length := p.PieceSize
		if int64(i) == count-1 {
			length = p.ContentLength - offset
		}

		out = append(out, piece{index: i, offset: offset, length: length, sha256: sum})
	}

	return out, nil
}

// piecesURL derives the descriptor location: the query and the "tlu." host
// prefix are dropped.
func piecesURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return strings.ReplaceAll(u[:i], "tlu.", "") + "/pieceshash"
	}

	return u + "/pieceshash"
}

func (d *Downloader) downloadPieces(ctx context.Context, url, targetPath string, parallelism int) (int64, error) {
	logger := logctx.LoggerFromContext(ctx)

	desc, err := d.fetchDescriptor(ctx, piecesURL(url))
	if err != nil {
		return 0, err
	}

	pieces, err := desc.ranges()
	if err != nil {
		return 0, err
	}

	logger.Debug("fetching pieces", "pieces", len(pieces), "piece_size", desc.PieceSize, "workers", parallelism)

	tracker, err := progress.NewTracker(desc.ContentLength, d.renderer(ctx, targetPath))
	if err != nil {
		return 0, err
	}

	out, err := createSized(targetPath, desc.ContentLength)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	sem := semaphore.NewWeighted(int64(parallelism))
	g, gctx := errgroup.WithContext(ctx)

	var acquireErr error

	for _, p := range pieces {
		if err := sem.Acquire(gctx, 1); err != nil {
			acquireErr = err

			break
		}

		g.Go(func() error {
			defer sem.Release(1)

			return d.fetchPiece(gctx, out, url, targetPath, p, tracker)
		})
	}

	if err := g.Wait(); err != nil {
		return tracker.Downloaded(), err
	}

	if acquireErr != nil {
		return tracker.Downloaded(), acquireErr
	}

	return desc.ContentLength, out.Close()
}

func (d *Downloader) fetchDescriptor(ctx context.Context, url string) (*pieceDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &edge.TransportError{Operation: "pieces_descriptor", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &edge.TransportError{Operation: "pieces_descriptor", URL: url, StatusCode: resp.StatusCode}
	}

	var desc pieceDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, &edge.ParseError{Field: "pieces", Value: url, Err: err}
	}

	return &desc, nil
}

// fetchPiece downloads p until its digest matches, then writes it at its
// offset. Bytes of a rejected attempt are taken back out of the tracker.
func (d *Downloader) fetchPiece(ctx context.Context, out io.WriterAt, url, targetPath string, p piece, tracker *progress.Tracker) error {
	logger := logctx.LoggerFromContext(ctx).With("piece", p.index)

	for attempt := 1; attempt <= pieceAttempts; attempt++ {
		buf, err := d.fetchRange(ctx, url, p, tracker)
		if err != nil {
			return err
		}

		sum := sha256.Sum256(buf)
		if bytes.Equal(sum[:], p.sha256) {
			if _, err := out.WriteAt(buf, p.offset); err != nil {
				return fmt.Errorf("failed to write piece %d: %w", p.index, err)
			}

			d.telemetry.RecordDownloadedBytes(int64(len(buf)))

			return nil
		}

		tracker.Update(-int64(len(buf)))
		d.telemetry.RecordPieceRetry()

		logger.Warn("piece digest mismatch", "attempt", attempt, "max_attempts", pieceAttempts)
	}

	return &edge.IntegrityError{Path: targetPath, Piece: p.index, Attempts: pieceAttempts}
}

func (d *Downloader) fetchRange(ctx context.Context, url string, p piece, tracker *progress.Tracker) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", p.offset, p.offset+p.length-1))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &edge.TransportError{Operation: "download_piece", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &edge.TransportError{Operation: "download_piece", URL: url, StatusCode: resp.StatusCode}
	}

	buf := make([]byte, p.length)

	n, err := io.ReadFull(progress.NewReader(resp.Body, tracker), buf)
	if err != nil {
		tracker.Update(-int64(n))

		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			err = fmt.Errorf("short piece %d: got %d of %d bytes", p.index, n, p.length)
		}

		return nil, &edge.TransportError{Operation: "download_piece", URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	return buf, nil
}
