package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/shared"
	th "github.com/desertthunder/decklog/internal/testing"
)

func fixtureSetlist() *Setlist {
	return NewSetlist("/logs/friday-night.dat", "1.0/decklog", th.Snapshot(3, th.Entries(2)...))
}

func TestExporters(t *testing.T) {
	t.Run("NewSetlist", func(t *testing.T) {
		s := fixtureSetlist()
		if s.Name != "friday-night" {
			t.Errorf("expected name from file, got %q", s.Name)
		}
		if s.Size != 200 || len(s.Entries) != 2 {
			t.Errorf("unexpected setlist %+v", s)
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(fixtureSetlist())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 records, got %d lines", len(lines))
		}
		if lines[0] != "Row,Start,Deck,Artist,Title,Album,Genre,BPM,Key,Length,Filename" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if !strings.Contains(output, "Track 1") || !strings.Contains(output, "track-001.mp3") {
			t.Errorf("CSV missing track 1, got: %s", output)
		}
	})

	t.Run("ExportToCSV quotes commas", func(t *testing.T) {
		e := th.Entry(0)
		e.Title = "One, Two"
		s := NewSetlist("x.dat", "", th.Snapshot(1, e))

		data, err := ExportToCSV(s)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		if !strings.Contains(string(data), `"One, Two"`) {
			t.Errorf("expected quoted title, got: %s", data)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(fixtureSetlist())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"# friday-night", "**Tracks**: 2", "**Format**: 1.0/decklog", "## Setlist", "Artist 0 - Track 0", "[120 BPM, 8A, 4:00]"} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText uses played entries", func(t *testing.T) {
		entries := th.Entries(3)
		entries[1].Played = true
		s := NewSetlist("x.dat", "", th.Snapshot(1, entries...))

		data, err := ExportToText(s)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Tracks: 1") || !strings.Contains(output, "1. Artist 1 - Track 1") {
			t.Errorf("unexpected text output:\n%s", output)
		}
		if strings.Contains(output, "Track 0") {
			t.Errorf("expected unplayed entries to be skipped:\n%s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(fixtureSetlist())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var got Setlist
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Name != "friday-night" || len(got.Entries) != 2 || got.Entries[1].Title != "Track 1" {
			t.Errorf("unexpected decoded setlist %+v", got)
		}
	})

	t.Run("ExportToTable", func(t *testing.T) {
		output := ExportToTable(fixtureSetlist())
		for _, want := range []string{"ARTIST", "TITLE", "Track 0", "Artist 1", "4:00", "121"} {
			if !strings.Contains(output, want) {
				t.Errorf("table missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("PlaysTable", func(t *testing.T) {
		play := models.NewPlay(4, "/logs/x.dat", th.Entry(2), th.Epoch)
		output := PlaysTable([]*models.Play{play}, th.Epoch.Add(2*time.Hour))
		for _, want := range []string{"Artist 2 - Track 2", "playing", "2 hours ago"} {
			if !strings.Contains(output, want) {
				t.Errorf("plays table missing %q, got:\n%s", want, output)
			}
		}
	})
}

func TestParseFormat(t *testing.T) {
	tt := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "csv", input: "csv", want: FormatCSV},
		{name: "markdown alias", input: "md", want: FormatMarkdown},
		{name: "text alias", input: "TXT", want: FormatText},
		{name: "json", input: "json", want: FormatJSON},
		{name: "empty defaults to table", input: "", want: FormatTable},
		{name: "unknown", input: "xml", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFormat(tc.input)
			if tc.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestWriteExport(t *testing.T) {
	tt := []struct {
		format Format
		ext    string
		want   string
	}{
		{format: FormatCSV, ext: "csv", want: "Row,Start"},
		{format: FormatMarkdown, ext: "md", want: "# friday-night"},
		{format: FormatText, ext: "txt", want: "Setlist: friday-night"},
		{format: FormatJSON, ext: "json", want: `"name": "friday-night"`},
		{format: FormatTable, ext: "txt", want: "TITLE"},
	}

	for _, tc := range tt {
		t.Run(string(tc.format), func(t *testing.T) {
			origDir := th.MustGetwd(t)
			defer th.MustChdir(t, origDir)
			th.MustChdir(t, t.TempDir())

			path, err := WriteExport(fixtureSetlist(), tc.format, "")
			if err != nil {
				t.Fatalf("WriteExport failed: %v", err)
			}
			if path != "friday-night_setlist."+tc.ext {
				t.Errorf("unexpected default path %q", path)
			}

			th.AssertFileExists(t, path)
			if content := th.MustReadFile(t, path); !strings.Contains(content, tc.want) {
				t.Errorf("expected %q in output, got:\n%s", tc.want, content)
			}
		})
	}

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "exports", "set.csv")
		got, err := WriteExport(fixtureSetlist(), FormatCSV, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		th.AssertFileExists(t, got)
	})
}
