package session

import (
	"context"
	"fmt"

	"github.com/desertthunder/decklog/internal/chunk"
	"github.com/desertthunder/decklog/internal/models"
)

// Scan parses data and maps every top-level record chunk to an entry.
//
// Any parse error aborts the whole scan; callers keep their previous snapshot.
func Scan(data []byte, reg *chunk.Registry, tick uint64) (models.Snapshot, error) {
	p := chunk.NewParser(data, reg)

	var entries []models.Entry
	for p.HasMore() {
		c, err := p.ParseNext()
		if err != nil {
			return models.Snapshot{}, err
		}
		if !reg.IsRecord(c.Tag) {
			continue
		}

		fields, err := c.Record()
		if err != nil {
			return models.Snapshot{}, err
		}
		entries = append(entries, MapEntry(fields))
	}

	return models.Snapshot{Tick: tick, Size: len(data), Entries: entries}, nil
}

// Version returns the format version from the first top-level vrsn chunk, or "" when there is none.
func Version(data []byte, reg *chunk.Registry) (string, error) {
	p := chunk.NewParser(data, reg)
	for p.HasMore() {
		c, err := p.ParseNext()
		if err != nil {
			return "", err
		}
		if c.Tag != TagVersion {
			continue
		}
		v, _ := c.Fields.String(FieldVersion)
		return v, nil
	}
	return "", nil
}

// Scanner reads a [Source] and scans it against a fixed registry.
type Scanner struct {
	source Source
	reg    *chunk.Registry
}

// NewScanner creates a [Scanner]. reg must already be validated.
func NewScanner(source Source, reg *chunk.Registry) *Scanner {
	return &Scanner{source: source, reg: reg}
}

// Scan reads the whole log and builds the snapshot for tick.
func (s *Scanner) Scan(ctx context.Context, tick uint64) (models.Snapshot, error) {
	data, err := s.source.ReadAll(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}

	snap, err := Scan(data, s.reg, tick)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("scan at tick %d: %w", tick, err)
	}
	return snap, nil
}
