package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/decklog/internal/chunk"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/shared"
	tu "github.com/desertthunder/decklog/internal/testing"
)

func mustRegistry(t *testing.T) *chunk.Registry {
	t.Helper()
	reg, err := Registry()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return reg
}

func buildLog(t *testing.T, entries ...models.Entry) []byte {
	t.Helper()
	data, err := AppendVersion(nil, "")
	if err != nil {
		t.Fatalf("failed to append version: %v", err)
	}
	for _, e := range entries {
		data, err = AppendEntry(data, e)
		if err != nil {
			t.Fatalf("failed to append entry: %v", err)
		}
	}
	return data
}

func TestEncodeEntryRoundTrip(t *testing.T) {
	want := tu.Entry(7)
	want.EndTime = want.StartTime.Add(4 * time.Minute)
	want.Played = true

	data, err := EncodeEntry(want)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}

	fields, err := chunk.Unpack(entryProgram, data)
	if err != nil {
		t.Fatalf("failed to unpack: %v", err)
	}

	got := MapEntry(fields)
	if !got.Equal(want) {
		t.Errorf("round trip mismatch:\nwant %+v\n got %+v", want, got)
	}
	if got.Incomplete {
		t.Error("fully encoded entry should not be incomplete")
	}
}

func TestEncodeEntryKeyTooLong(t *testing.T) {
	e := tu.Entry(1)
	e.Key = "Abmaj"
	if _, err := EncodeEntry(e); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMapEntry(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		e := MapEntry(chunk.Fields{FieldRow: uint32(4), FieldTitle: "Only Title", "extra": "ignored"})

		if !e.Incomplete {
			t.Error("expected entry to be incomplete")
		}
		if e.Row != 4 || e.Title != "Only Title" {
			t.Errorf("unexpected entry: %+v", e)
		}
		if !e.StartTime.IsZero() {
			t.Errorf("missing start time should be zero, got %v", e.StartTime)
		}
	})

	t.Run("opaque payload", func(t *testing.T) {
		e := MapEntry(chunk.Fields{chunk.TrailingField: []byte{1, 2}})
		if !e.Incomplete {
			t.Error("opaque record should be incomplete")
		}
	})

	t.Run("wrong type counts as missing", func(t *testing.T) {
		fields := chunk.Fields{FieldRow: "seven"}
		if e := MapEntry(fields); !e.Incomplete || e.Row != 0 {
			t.Errorf("expected incomplete zero row, got %+v", e)
		}
	})
}

func TestMissingFields(t *testing.T) {
	missing := MissingFields(chunk.Fields{FieldRow: uint32(1), FieldTitle: "t"})
	for _, name := range missing {
		if name == "title_len" {
			t.Error("length fields should not be reported")
		}
		if name == FieldRow || name == FieldTitle {
			t.Errorf("present field %q reported missing", name)
		}
	}
	if len(missing) != 11 {
		t.Errorf("expected 11 missing fields, got %d: %v", len(missing), missing)
	}
}

func TestScan(t *testing.T) {
	reg := mustRegistry(t)

	t.Run("entries in order", func(t *testing.T) {
		data := buildLog(t, tu.Entries(3)...)

		snap, err := Scan(data, reg, 5)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if snap.Tick != 5 || snap.Size != len(data) {
			t.Errorf("unexpected snapshot header: tick=%d size=%d", snap.Tick, snap.Size)
		}
		if snap.Len() != 3 {
			t.Fatalf("expected 3 entries, got %d", snap.Len())
		}
		for i, e := range snap.Entries {
			if !e.Equal(tu.Entry(i + 1)) {
				t.Errorf("entry %d mismatch: %+v", i, e)
			}
		}
	})

	t.Run("last revision wins", func(t *testing.T) {
		first := tu.Entry(1)
		final := first
		final.Played = true
		final.EndTime = first.StartTime.Add(3 * time.Minute)

		data, err := AppendEntry(buildLog(t), first, final)
		if err != nil {
			t.Fatalf("append failed: %v", err)
		}

		snap, err := Scan(data, reg, 1)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if snap.Len() != 1 || !snap.Entries[0].Equal(final) {
			t.Errorf("expected final revision, got %+v", snap.Entries)
		}
	})

	t.Run("unknown chunks are skipped", func(t *testing.T) {
		data := buildLog(t, tu.Entry(1))
		data = chunk.AppendChunk(data, "zzzz", []byte("future"))
		data, _ = AppendEntry(data, tu.Entry(2))

		snap, err := Scan(data, reg, 1)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if snap.Len() != 2 {
			t.Errorf("expected 2 entries, got %d", snap.Len())
		}
	})

	t.Run("unknown chunk inside entry", func(t *testing.T) {
		inner := chunk.AppendChunk(nil, "note", []byte("cue"))
		payload, _ := EncodeEntry(tu.Entry(1))
		inner = chunk.AppendChunk(inner, TagData, payload)
		data := chunk.AppendChunk(buildLog(t), TagEntry, inner)

		snap, err := Scan(data, reg, 1)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if snap.Len() != 1 || snap.Entries[0].Incomplete {
			t.Errorf("expected one complete entry, got %+v", snap.Entries)
		}
	})

	t.Run("partial trailing write", func(t *testing.T) {
		data := buildLog(t, tu.Entries(2)...)
		_, err := Scan(data[:len(data)-3], reg, 1)
		if !errors.Is(err, shared.ErrTruncatedChunk) {
			t.Errorf("expected ErrTruncatedChunk, got %v", err)
		}
		if !shared.IsRecoverable(err) {
			t.Error("truncated scan should be recoverable")
		}
	})

	t.Run("empty entry container", func(t *testing.T) {
		data := chunk.AppendChunk(buildLog(t), TagEntry, nil)
		if _, err := Scan(data, reg, 1); !errors.Is(err, shared.ErrEmptyContainer) {
			t.Errorf("expected ErrEmptyContainer, got %v", err)
		}
	})

	t.Run("empty log", func(t *testing.T) {
		snap, err := Scan(nil, reg, 1)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if snap.Len() != 0 || snap.Size != 0 {
			t.Errorf("expected empty snapshot, got %+v", snap)
		}
	})
}

func TestVersion(t *testing.T) {
	reg := mustRegistry(t)

	data, _ := AppendVersion(nil, "2.0/test")
	v, err := Version(data, reg)
	if err != nil || v != "2.0/test" {
		t.Errorf("expected 2.0/test, got %q (%v)", v, err)
	}

	v, err = Version(nil, reg)
	if err != nil || v != "" {
		t.Errorf("expected empty version, got %q (%v)", v, err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "current.session")

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileSource(path).ReadAll(context.Background())
		if !errors.Is(err, shared.ErrLogUnavailable) {
			t.Errorf("expected ErrLogUnavailable, got %v", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected wrapped ErrNotExist, got %v", err)
		}
	})

	t.Run("reads content", func(t *testing.T) {
		data := buildLog(t, tu.Entry(1))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("failed to write log: %v", err)
		}

		scanner := NewScanner(NewFileSource(path), mustRegistry(t))
		snap, err := scanner.Scan(context.Background(), 3)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if snap.Len() != 1 || snap.Tick != 3 {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewFileSource(path).ReadAll(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestScannerMemorySource(t *testing.T) {
	reg := mustRegistry(t)
	src := tu.NewMemorySource(buildLog(t, tu.Entry(1)))
	scanner := NewScanner(src, reg)

	snap, err := scanner.Scan(context.Background(), 1)
	if err != nil || snap.Len() != 1 {
		t.Fatalf("unexpected scan result: %+v, %v", snap, err)
	}

	more, _ := AppendEntry(nil, tu.Entry(2))
	src.Append(more)

	snap, err = scanner.Scan(context.Background(), 2)
	if err != nil || snap.Len() != 2 {
		t.Fatalf("expected grown snapshot, got %+v, %v", snap, err)
	}

	src.Fail(shared.ErrLogUnavailable)
	if _, err := scanner.Scan(context.Background(), 3); !errors.Is(err, shared.ErrLogUnavailable) {
		t.Errorf("expected ErrLogUnavailable, got %v", err)
	}
}
