package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogRotator is a zapcore.WriteSyncer that caps a log file to its most
// recent lines. The file is rewritten with the tail once it has grown to
// twice the cap, so rotation cost is amortized over many writes.
type LogRotator struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	buffer *RingBuffer
}

// OpenLogRotator opens or creates the log file at path.
func OpenLogRotator(path string, maxLines int) (*LogRotator, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	return &LogRotator{
		file:   file,
		path:   path,
		buffer: NewRingBuffer(maxLines),
	}, nil
}

// Write appends p to the file and rotates it when needed.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.buffer.Add(line)

		if w.buffer.overflowed() {
			if err := w.rotate(); err != nil {
				return n, fmt.Errorf("failed to rotate log file: %w", err)
			}
			w.buffer.markRotated()
		}
	}

	return n, nil
}

// Sync flushes the file to disk.
func (w *LogRotator) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Sync()
}

// Close closes the underlying file.
func (w *LogRotator) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}

// rotate replaces the file with the buffered lines.
func (w *LogRotator) rotate() error {
	lines := w.buffer.Lines()
	if len(lines) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.path), "rotate-*.log")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	_, writeErr := temp.WriteString(strings.Join(lines, "\n") + "\n")
	if err := errors.Join(writeErr, temp.Sync(), temp.Close()); err != nil {
		_ = os.Remove(tempPath)
		return err
	}

	_ = w.file.Close()

	if err := os.Rename(tempPath, w.path); err != nil {
		_ = os.Remove(tempPath)
		return err
	}

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = file

	return nil
}
