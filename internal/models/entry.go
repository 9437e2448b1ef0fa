package models

import (
	"fmt"
	"time"
)

// Entry is one track play as recorded in the session log.
//
// Entries are built once by the record mapper and copied by value afterwards.
type Entry struct {
	Row        uint32    `json:"row"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Album      string    `json:"album,omitempty"`
	Genre      string    `json:"genre,omitempty"`
	Key        string    `json:"key,omitempty"`
	BPM        int       `json:"bpm,omitempty"`
	Length     int       `json:"length"` // Length in seconds, 0 when unknown
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Deck       int       `json:"deck"`
	Played     bool      `json:"played"`
	Filename   string    `json:"filename,omitempty"`
	Incomplete bool      `json:"incomplete,omitempty"` // Incomplete is set when expected fields were missing
}

// EntryKey identifies a play independently of fields that change while it is on deck.
type EntryKey struct {
	Row      uint32
	Title    string
	Artist   string
	Filename string
	Start    int64
}

// Identity returns the [EntryKey] of e.
func (e Entry) Identity() EntryKey {
	var start int64
	if !e.StartTime.IsZero() {
		start = e.StartTime.Unix()
	}
	return EntryKey{Row: e.Row, Title: e.Title, Artist: e.Artist, Filename: e.Filename, Start: start}
}

// Equal reports whether every field of e and o matches.
func (e Entry) Equal(o Entry) bool {
	return e.Row == o.Row &&
		e.Title == o.Title &&
		e.Artist == o.Artist &&
		e.Album == o.Album &&
		e.Genre == o.Genre &&
		e.Key == o.Key &&
		e.BPM == o.BPM &&
		e.Length == o.Length &&
		e.StartTime.Equal(o.StartTime) &&
		e.EndTime.Equal(o.EndTime) &&
		e.Deck == o.Deck &&
		e.Played == o.Played &&
		e.Filename == o.Filename &&
		e.Incomplete == o.Incomplete
}

// Duration returns the declared track length.
func (e Entry) Duration() time.Duration {
	return time.Duration(e.Length) * time.Second
}

func (e Entry) String() string {
	switch {
	case e.Artist != "" && e.Title != "":
		return fmt.Sprintf("%s - %s", e.Artist, e.Title)
	case e.Title != "":
		return e.Title
	case e.Filename != "":
		return e.Filename
	default:
		return fmt.Sprintf("row %d", e.Row)
	}
}
