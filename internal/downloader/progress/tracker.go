package progress

import (
	"errors"
	"sync"
)

// Scale is the unit of a complete transfer: progress is tracked in
// hundredths of a percent.
const Scale = 10000

// RenderFunc receives the cumulative byte count, the total and the current
// unit on the 0..Scale scale.
type RenderFunc func(downloaded, total, unit int64)

// Tracker accumulates transferred bytes from concurrent writers and renders
// only when the unit grows, so observers never see progress go backwards.
type Tracker struct {
	mu         sync.Mutex
	total      int64
	downloaded int64
	lastUnit   int64
	render     RenderFunc
}

// NewTracker returns a tracker for a transfer of total bytes. render may be nil.
func NewTracker(total int64, render RenderFunc) (*Tracker, error) {
	if total <= 0 {
		return nil, errors.New("progress total must be positive")
	}

	return &Tracker{total: total, render: render}, nil
}

// Update adds delta bytes. A negative delta rolls back a discarded attempt.
func (t *Tracker) Update(delta int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.downloaded += delta

	unit := t.downloaded * Scale / t.total
	if unit <= t.lastUnit {
		return
	}

	t.lastUnit = unit

	if t.render != nil {
		t.render(t.downloaded, t.total, unit)
	}
}

// Write counts len(p) bytes, so a Tracker can sit behind an io.TeeReader or
// io.MultiWriter.
func (t *Tracker) Write(p []byte) (int, error) {
	t.Update(int64(len(p)))

	return len(p), nil
}

// Downloaded returns the bytes counted so far.
func (t *Tracker) Downloaded() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.downloaded
}

// Unit returns the last rendered unit.
func (t *Tracker) Unit() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.lastUnit
}
