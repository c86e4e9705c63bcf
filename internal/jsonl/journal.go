// Package jsonl keeps an append-only order journal, one JSON record per line.
package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Record is one journal line. Data carries the event payload, typically an order.
type Record struct {
	TsMs  int64           `json:"ts_ms"`
	Event string          `json:"event"`
	Mode  string          `json:"mode,omitempty"` // dry | live
	Err   string          `json:"err,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Journal appends records to a file. It is safe for concurrent use; a nil
// *Journal discards everything.
type Journal struct {
	mu   sync.Mutex
	path string
	mode string
	file *os.File
	w    *bufio.Writer
	now  func() time.Time
}

// Open returns a journal appending to path, or nil when path is blank. The
// file is created on first write.
func Open(path, mode string) *Journal {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return &Journal{path: path, mode: mode, now: time.Now}
}

func (j *Journal) ensureOpenLocked() error {
	if j.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	j.file = f
	j.w = bufio.NewWriterSize(f, 64*1024)
	return nil
}

// Append writes event with data (may be nil) and cause (may be nil), then
// flushes so tailers see the line immediately.
func (j *Journal) Append(event string, data any, cause error) error {
	if j == nil {
		return nil
	}
	if strings.TrimSpace(event) == "" {
		return fmt.Errorf("jsonl: empty event")
	}
	rec := Record{Event: event, Mode: j.mode}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("jsonl: encode %s: %w", event, err)
		}
		rec.Data = b
	}
	if cause != nil {
		rec.Err = cause.Error()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	rec.TsMs = j.now().UnixMilli()
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := j.ensureOpenLocked(); err != nil {
		return err
	}
	if _, err := j.w.Write(line); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	return j.w.Flush()
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	var firstErr error
	if j.w != nil {
		if err := j.w.Flush(); err != nil {
			firstErr = err
		}
	}
	if j.file != nil {
		if err := j.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	j.w = nil
	j.file = nil

	if firstErr != nil && errors.Is(firstErr, os.ErrClosed) {
		return nil
	}
	return firstErr
}

// Scan calls fn for every record in r. Blank lines are skipped; a malformed
// line stops the scan with its line number.
func Scan(r io.Reader, fn func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return fmt.Errorf("jsonl: line %d: %w", line, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return sc.Err()
}
