package session

import (
	"time"

	"github.com/desertthunder/decklog/internal/chunk"
	"github.com/desertthunder/decklog/internal/models"
)

// MapEntry projects decoded adat fields onto an [models.Entry].
//
// Unknown fields are ignored. A missing field leaves the zero value in place and marks the entry
// Incomplete; timestamps of 0 decode as the zero [time.Time].
func MapEntry(f chunk.Fields) models.Entry {
	m := mapper{fields: f}

	e := models.Entry{
		Row:       m.uint(FieldRow),
		Title:     m.text(FieldTitle),
		Artist:    m.text(FieldArtist),
		Album:     m.text(FieldAlbum),
		Genre:     m.text(FieldGenre),
		BPM:       int(m.uint(FieldBPM)),
		Key:       m.text(FieldKey),
		Length:    int(m.uint(FieldLength)),
		StartTime: m.unix(FieldStartTime),
		EndTime:   m.unix(FieldEndTime),
		Deck:      int(m.uint(FieldDeck)),
		Played:    m.uint(FieldPlayed) != 0,
		Filename:  m.text(FieldFilename),
	}
	e.Incomplete = len(m.missing) > 0
	return e
}

// MissingFields lists the expected adat fields absent from f, in program order.
func MissingFields(f chunk.Fields) []string {
	var missing []string
	for _, field := range entryProgram {
		if isLengthField(field.Name) {
			continue
		}
		if _, ok := f[field.Name]; !ok {
			missing = append(missing, field.Name)
		}
	}
	return missing
}

func isLengthField(name string) bool {
	for _, field := range entryProgram {
		if field.LengthFrom == name {
			return true
		}
	}
	return false
}

type mapper struct {
	fields  chunk.Fields
	missing []string
}

func (m *mapper) uint(name string) uint32 {
	v, ok := m.fields.Uint(name)
	if !ok {
		m.missing = append(m.missing, name)
	}
	return v
}

func (m *mapper) text(name string) string {
	v, ok := m.fields.String(name)
	if !ok {
		m.missing = append(m.missing, name)
	}
	return v
}

func (m *mapper) unix(name string) time.Time {
	v := m.uint(name)
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(int64(v), 0)
}
