package chunk

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/desertthunder/decklog/internal/shared"
)

var testProgram = Program{
	{Name: "row", Kind: Uint32},
	{Name: "title_len", Kind: Uint16},
	{Name: "title", Kind: Text, LengthFrom: "title_len"},
	{Name: "key", Kind: Text, Width: 4},
	{Name: "deck", Kind: Uint8},
	{Name: "file", Kind: CString},
	{Name: "art_len", Kind: Uint8},
	{Name: "art", Kind: Blob, LengthFrom: "art_len"},
}

func TestUnpack(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		values := Fields{
			"row":       uint32(7),
			"title_len": uint32(5),
			"title":     "Intro",
			"key":       "11A",
			"deck":      uint32(2),
			"file":      "/music/intro.mp3",
			"art_len":   uint32(3),
			"art":       []byte{1, 2, 3},
		}

		buf, err := Pack(testProgram, values)
		if err != nil {
			t.Fatalf("Pack failed: %v", err)
		}

		got, err := Unpack(testProgram, buf)
		if err != nil {
			t.Fatalf("Unpack failed: %v", err)
		}

		if !reflect.DeepEqual(got, values) {
			t.Errorf("round trip mismatch:\n got %#v\nwant %#v", got, values)
		}
	})

	t.Run("big endian integers", func(t *testing.T) {
		p := Program{{Name: "a", Kind: Uint16}, {Name: "b", Kind: Uint32}}
		got, err := Unpack(p, []byte{0x01, 0x02, 0x00, 0x00, 0x01, 0x00})
		if err != nil {
			t.Fatalf("Unpack failed: %v", err)
		}
		if v, _ := got.Uint("a"); v != 0x0102 {
			t.Errorf("a = %#x, want 0x102", v)
		}
		if v, _ := got.Uint("b"); v != 0x100 {
			t.Errorf("b = %#x, want 0x100", v)
		}
	})

	t.Run("trailing bytes kept", func(t *testing.T) {
		p := Program{{Name: "a", Kind: Uint8}}
		got, err := Unpack(p, []byte{9, 0xAA, 0xBB})
		if err != nil {
			t.Fatalf("Unpack failed: %v", err)
		}
		trailing, ok := got.Bytes(TrailingField)
		if !ok || !bytes.Equal(trailing, []byte{0xAA, 0xBB}) {
			t.Errorf("trailing = %v, want [aa bb]", trailing)
		}
	})

	t.Run("open blob consumes the rest", func(t *testing.T) {
		p := Program{{Name: "a", Kind: Uint8}, {Name: "rest", Kind: Blob}}
		got, err := Unpack(p, []byte{1, 2, 3})
		if err != nil {
			t.Fatalf("Unpack failed: %v", err)
		}
		if rest, _ := got.Bytes("rest"); !bytes.Equal(rest, []byte{2, 3}) {
			t.Errorf("rest = %v", rest)
		}
		if _, ok := got[TrailingField]; ok {
			t.Error("no trailing field expected")
		}
	})

	tt := []struct {
		name string
		p    Program
		buf  []byte
	}{
		{name: "short integer", p: Program{{Name: "a", Kind: Uint32}}, buf: []byte{0, 1}},
		{name: "short fixed text", p: Program{{Name: "k", Kind: Text, Width: 4}}, buf: []byte("ab")},
		{name: "length prefix past end", p: Program{{Name: "n", Kind: Uint8}, {Name: "s", Kind: Text, LengthFrom: "n"}}, buf: []byte{5, 'a', 'b'}},
		{name: "unterminated cstring", p: Program{{Name: "s", Kind: CString}}, buf: []byte("abc")},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unpack(tc.p, tc.buf)
			if !errors.Is(err, shared.ErrTruncatedBuffer) {
				t.Errorf("expected ErrTruncatedBuffer, got %v", err)
			}
			if !shared.IsRecoverable(err) {
				t.Error("truncated buffer should be recoverable")
			}
		})
	}
}

func TestPack(t *testing.T) {
	t.Run("overflow", func(t *testing.T) {
		_, err := Pack(Program{{Name: "a", Kind: Uint8}}, Fields{"a": uint32(300)})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("fixed text too wide", func(t *testing.T) {
		_, err := Pack(Program{{Name: "k", Kind: Text, Width: 2}}, Fields{"k": "abc"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("length fields derived from payload", func(t *testing.T) {
		p := Program{{Name: "n", Kind: Uint16}, {Name: "s", Kind: Text, LengthFrom: "n"}}
		buf, err := Pack(p, Fields{"s": "hey"})
		if err != nil {
			t.Fatalf("Pack failed: %v", err)
		}
		if !bytes.Equal(buf, []byte{0, 3, 'h', 'e', 'y'}) {
			t.Errorf("Pack = %v", buf)
		}
	})
}
