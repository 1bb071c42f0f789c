package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sohogrid/menuscout/internal/progress"
)

// FileSink appends events to an NDJSON log, one object per line. The file
// is truncated when the sink opens and again on every SCAN_START event, so
// each scan run starts a fresh log even in a long-lived service.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileSink creates or truncates the event log at path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &FileSink{file: f, enc: json.NewEncoder(f)}, nil
}

// Consume appends each event as one JSON line. Stage names are written in
// lower case to match the log's consumers.
func (s *FileSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("event log is closed")
	}
	for _, evt := range batch {
		if evt.Stage == progress.StageScanStart {
			if err := s.reset(); err != nil {
				return err
			}
		}
		evt.Stage = progress.Stage(strings.ToLower(string(evt.Stage)))
		if err := s.enc.Encode(evt); err != nil {
			return fmt.Errorf("write event log: %w", err)
		}
	}
	return nil
}

// reset rewinds the log so the run about to start owns the whole file.
// Callers hold s.mu.
func (s *FileSink) reset() error {
	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate event log: %w", err)
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind event log: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	return nil
}
