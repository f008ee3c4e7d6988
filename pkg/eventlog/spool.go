package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"
)

// Spool is the default durable sink: one JSON event per line through a
// snappy-framed stream appended to a file. The framing format is
// self-synchronizing, so appends across daemon restarts stay readable.
type Spool struct {
	mu     sync.Mutex
	file   *os.File
	writer *snappy.Writer
	closed bool
}

// OpenSpool opens (or creates) the spool file for appending.
func OpenSpool(path string) (*Spool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event spool: %w", err)
	}
	return &Spool{
		file:   f,
		writer: snappy.NewBufferedWriter(f),
	}, nil
}

// Write implements Sink.
func (s *Spool) Write(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	// Flush per event: the spool is an audit trail, not a throughput path.
	return s.writer.Flush()
}

// Close flushes and closes the spool. Idempotent.
func (s *Spool) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.writer.Close(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
