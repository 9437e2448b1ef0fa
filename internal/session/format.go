package session

import (
	"fmt"
	"time"

	"github.com/desertthunder/decklog/internal/chunk"
	"github.com/desertthunder/decklog/internal/models"
)

const (
	TagVersion = "vrsn"
	TagEntry   = "oent"
	TagData    = "adat"
)

// FormatVersion is written by [AppendVersion] when no version is given.
const FormatVersion = "1.0/decklog"

// Field names of the adat program.
const (
	FieldRow       = "row"
	FieldTitle     = "title"
	FieldArtist    = "artist"
	FieldAlbum     = "album"
	FieldGenre     = "genre"
	FieldBPM       = "bpm"
	FieldKey       = "key"
	FieldLength    = "length"
	FieldStartTime = "start_time"
	FieldEndTime   = "end_time"
	FieldDeck      = "deck"
	FieldPlayed    = "played"
	FieldFilename  = "filename"
	FieldVersion   = "version"
)

var versionProgram = chunk.Program{
	{Name: FieldVersion, Kind: chunk.CString},
}

var entryProgram = chunk.Program{
	{Name: FieldRow, Kind: chunk.Uint32},
	{Name: "title_len", Kind: chunk.Uint16},
	{Name: FieldTitle, Kind: chunk.Text, LengthFrom: "title_len"},
	{Name: "artist_len", Kind: chunk.Uint16},
	{Name: FieldArtist, Kind: chunk.Text, LengthFrom: "artist_len"},
	{Name: "album_len", Kind: chunk.Uint16},
	{Name: FieldAlbum, Kind: chunk.Text, LengthFrom: "album_len"},
	{Name: "genre_len", Kind: chunk.Uint16},
	{Name: FieldGenre, Kind: chunk.Text, LengthFrom: "genre_len"},
	{Name: FieldBPM, Kind: chunk.Uint16},
	{Name: FieldKey, Kind: chunk.Text, Width: 4},
	{Name: FieldLength, Kind: chunk.Uint32},
	{Name: FieldStartTime, Kind: chunk.Uint32},
	{Name: FieldEndTime, Kind: chunk.Uint32},
	{Name: FieldDeck, Kind: chunk.Uint8},
	{Name: FieldPlayed, Kind: chunk.Uint8},
	{Name: FieldFilename, Kind: chunk.CString},
}

// EntryProgram returns a copy of the adat field layout.
func EntryProgram() chunk.Program {
	return append(chunk.Program(nil), entryProgram...)
}

// Registry builds and validates the chunk registry for session logs.
func Registry() (*chunk.Registry, error) {
	reg := chunk.NewRegistry().
		Leaf(TagVersion, versionProgram).
		Container(TagEntry).
		Leaf(TagData, entryProgram).
		Record(TagEntry).
		Record(TagData)

	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("session registry: %w", err)
	}
	return reg, nil
}

// EncodeEntry packs e into an adat payload.
func EncodeEntry(e models.Entry) ([]byte, error) {
	played := uint32(0)
	if e.Played {
		played = 1
	}

	return chunk.Pack(entryProgram, chunk.Fields{
		FieldRow:       e.Row,
		FieldTitle:     e.Title,
		FieldArtist:    e.Artist,
		FieldAlbum:     e.Album,
		FieldGenre:     e.Genre,
		FieldBPM:       uint32(e.BPM),
		FieldKey:       e.Key,
		FieldLength:    uint32(e.Length),
		FieldStartTime: unixSeconds(e.StartTime),
		FieldEndTime:   unixSeconds(e.EndTime),
		FieldDeck:      uint32(e.Deck),
		FieldPlayed:    played,
		FieldFilename:  e.Filename,
	})
}

// AppendEntry appends an oent chunk holding one adat revision per element of revisions.
//
// The last revision is the one [Scan] reports.
func AppendEntry(dst []byte, revisions ...models.Entry) ([]byte, error) {
	if len(revisions) == 0 {
		return dst, fmt.Errorf("append entry: no revisions")
	}

	var payload []byte
	for _, e := range revisions {
		data, err := EncodeEntry(e)
		if err != nil {
			return dst, fmt.Errorf("append entry row %d: %w", e.Row, err)
		}
		payload = chunk.AppendChunk(payload, TagData, data)
	}
	return chunk.AppendChunk(dst, TagEntry, payload), nil
}

// AppendVersion appends a vrsn chunk. An empty version writes [FormatVersion].
func AppendVersion(dst []byte, version string) ([]byte, error) {
	if version == "" {
		version = FormatVersion
	}
	data, err := chunk.Pack(versionProgram, chunk.Fields{FieldVersion: version})
	if err != nil {
		return dst, err
	}
	return chunk.AppendChunk(dst, TagVersion, data), nil
}

func unixSeconds(t time.Time) uint32 {
	if t.IsZero() || t.Unix() < 0 {
		return 0
	}
	return uint32(t.Unix())
}
