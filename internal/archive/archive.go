// Package archive stores each cycle's frame and narrative under a run directory.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("archive closed")

// Sink writes stepNNN.png and stepNNN.txt files into one run directory.
// It is used from the orchestrator goroutine only.
type Sink struct {
	dir    string
	runID  string
	closed bool
}

// Open creates <root>/run_<YYYYMMDD_HHMMSS>_<id>/ and returns a sink for it.
func Open(root string, now time.Time) (*Sink, error) {
	id := uuid.New()
	short := id.String()[:8]
	dir := filepath.Join(root, fmt.Sprintf("run_%s_%s", now.Format("20060102_150405"), short))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	return &Sink{dir: dir, runID: id.String()}, nil
}

// Dir returns the run directory.
func (s *Sink) Dir() string { return s.dir }

// RunID returns the full run identifier.
func (s *Sink) RunID() string { return s.runID }

// WriteFrame stores the encoded image of cycle step.
func (s *Sink) WriteFrame(step int, png []byte) error {
	return s.write(step, "png", png)
}

// WriteNarrative stores the narrative produced in cycle step.
func (s *Sink) WriteNarrative(step int, text string) error {
	return s.write(step, "txt", []byte(text))
}

func (s *Sink) write(step int, ext string, data []byte) error {
	if s.closed {
		return ErrClosed
	}
	path := filepath.Join(s.dir, fmt.Sprintf("step%03d.%s", step, ext))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Close marks the sink finished.
func (s *Sink) Close() error {
	s.closed = true
	return nil
}
