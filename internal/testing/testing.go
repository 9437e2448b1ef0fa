// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/decklog/internal/models"
)

// Epoch is the start time used by [Entry] fixtures.
var Epoch = time.Unix(1700000000, 0)

// Entry returns a deterministic entry for row, started row minutes after [Epoch].
func Entry(row int) models.Entry {
	return models.Entry{
		Row:       uint32(row),
		Title:     fmt.Sprintf("Track %d", row),
		Artist:    fmt.Sprintf("Artist %d", row),
		Album:     "Fixtures",
		Genre:     "House",
		BPM:       120 + row,
		Key:       "8A",
		Length:    240,
		StartTime: Epoch.Add(time.Duration(row) * time.Minute),
		Deck:      1 + row%2,
		Filename:  fmt.Sprintf("track-%03d.mp3", row),
	}
}

// Entries returns fixtures for rows 1..n.
func Entries(n int) []models.Entry {
	entries := make([]models.Entry, 0, n)
	for i := 1; i <= n; i++ {
		entries = append(entries, Entry(i))
	}
	return entries
}

// Snapshot builds a snapshot whose size grows with its entries.
func Snapshot(tick uint64, entries ...models.Entry) models.Snapshot {
	return models.Snapshot{Tick: tick, Size: len(entries) * 100, Entries: entries}
}

// MemorySource is an in-memory session log whose content tests can grow, rewrite, or break.
type MemorySource struct {
	mu    sync.Mutex
	data  []byte
	err   error
	reads int
}

func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

func (m *MemorySource) ReadAll(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	return append([]byte(nil), m.data...), nil
}

// Set replaces the content.
func (m *MemorySource) Set(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

// Append adds bytes at the end, like a writer growing the log.
func (m *MemorySource) Append(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append(m.data, data...)
}

// Fail makes subsequent reads return err until it is cleared with nil.
func (m *MemorySource) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemorySource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// Eventually polls cond until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
