package progress

import "io"

// ProgressReader wraps an io.Reader and feeds every read into a Tracker.
type ProgressReader struct {
	Reader  io.Reader
	tracker *Tracker
}

func NewReader(r io.Reader, tracker *Tracker) *ProgressReader {
	return &ProgressReader{
		Reader:  r,
		tracker: tracker,
	}
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	if n > 0 {
		pr.tracker.Update(int64(n))
	}

	return n, err
}
