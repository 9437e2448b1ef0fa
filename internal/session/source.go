package session

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/decklog/internal/shared"
)

// Source supplies the full current content of a session log.
type Source interface {
	ReadAll(ctx context.Context) ([]byte, error)
}

// FileSource reads a session log from disk on every call.
//
// The file may be appended to concurrently; a partial trailing write shows up as a truncated scan.
type FileSource struct {
	path string
}

// NewFileSource creates a [FileSource] for path, expanding a leading ~.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: shared.ExpandPath(path)}
}

// Path returns the resolved log path.
func (s *FileSource) Path() string {
	return s.path
}

// ReadAll reads the log from the start. Any read failure wraps [shared.ErrLogUnavailable].
func (s *FileSource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrLogUnavailable, err)
	}
	return data, nil
}
