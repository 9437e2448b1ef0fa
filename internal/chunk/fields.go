package chunk

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/desertthunder/decklog/internal/shared"
)

// TrailingField holds bytes left over after every program field has been decoded.
const TrailingField = "_trailing"

// Kind is the primitive type of a program field.
type Kind int

const (
	Uint8 Kind = iota
	Uint16
	Uint32
	Text    // length from LengthFrom or Width
	CString // NUL-terminated
	Blob    // length from LengthFrom or Width, else the rest of the payload
)

func (k Kind) String() string {
	switch k {
	case Uint8:
		return "u8"
	case Uint16:
		return "u16"
	case Uint32:
		return "u32"
	case Text:
		return "text"
	case CString:
		return "cstring"
	case Blob:
		return "blob"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field is one step of a [Program].
type Field struct {
	Name       string
	Kind       Kind
	Width      int    // fixed byte width for Text and Blob
	LengthFrom string // earlier integer field holding the byte length for Text and Blob
}

// Program is the ordered field layout of one leaf chunk type.
type Program []Field

// Fields maps field names to decoded values.
//
// Integers decode to uint32 regardless of width, Text and CString to string, Blob to []byte.
type Fields map[string]any

// Uint returns the integer field name.
func (f Fields) Uint(name string) (uint32, bool) {
	v, ok := f[name].(uint32)
	return v, ok
}

// String returns the text field name.
func (f Fields) String(name string) (string, bool) {
	v, ok := f[name].(string)
	return v, ok
}

// Bytes returns the blob field name.
func (f Fields) Bytes(name string) ([]byte, bool) {
	v, ok := f[name].([]byte)
	return v, ok
}

func intWidth(k Kind) int {
	switch k {
	case Uint8:
		return 1
	case Uint16:
		return 2
	case Uint32:
		return 4
	default:
		return 0
	}
}

// Unpack decodes buf strictly in program order.
//
// Bytes remaining after the last field are kept under [TrailingField]. Fails with
// [shared.ErrTruncatedBuffer] when a field needs more bytes than remain.
func Unpack(p Program, buf []byte) (Fields, error) {
	fields := make(Fields, len(p)+1)
	pos := 0

	need := func(f Field, n int) error {
		if n < 0 || len(buf)-pos < n {
			return fmt.Errorf("%w: field %q (%s) needs %d bytes at offset %d, %d remain",
				shared.ErrTruncatedBuffer, f.Name, f.Kind, n, pos, len(buf)-pos)
		}
		return nil
	}

	for _, f := range p {
		switch f.Kind {
		case Uint8, Uint16, Uint32:
			w := intWidth(f.Kind)
			if err := need(f, w); err != nil {
				return nil, err
			}
			fields[f.Name] = readUint(buf[pos:pos+w], w)
			pos += w

		case Text, Blob:
			n, err := fieldLength(f, fields, len(buf)-pos)
			if err != nil {
				return nil, err
			}
			if err := need(f, n); err != nil {
				return nil, err
			}
			raw := buf[pos : pos+n]
			pos += n
			if f.Kind == Text {
				fields[f.Name] = string(bytes.TrimRight(raw, "\x00"))
			} else {
				fields[f.Name] = bytes.Clone(raw)
			}

		case CString:
			end := bytes.IndexByte(buf[pos:], 0)
			if end < 0 {
				return nil, fmt.Errorf("%w: field %q has no terminator at offset %d",
					shared.ErrTruncatedBuffer, f.Name, pos)
			}
			fields[f.Name] = string(buf[pos : pos+end])
			pos += end + 1

		default:
			return nil, fmt.Errorf("%w: field %q has unknown kind %s", shared.ErrInvalidRegistry, f.Name, f.Kind)
		}
	}

	if pos < len(buf) {
		fields[TrailingField] = bytes.Clone(buf[pos:])
	}

	return fields, nil
}

// fieldLength resolves the byte length of a Text or Blob field.
func fieldLength(f Field, decoded Fields, remaining int) (int, error) {
	switch {
	case f.LengthFrom != "":
		n, ok := decoded.Uint(f.LengthFrom)
		if !ok {
			return 0, fmt.Errorf("%w: field %q length source %q not decoded", shared.ErrInvalidRegistry, f.Name, f.LengthFrom)
		}
		return int(n), nil
	case f.Width > 0:
		return f.Width, nil
	case f.Kind == Blob:
		return remaining, nil
	default:
		return 0, fmt.Errorf("%w: text field %q has no length", shared.ErrInvalidRegistry, f.Name)
	}
}

func readUint(b []byte, width int) uint32 {
	switch width {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(binary.BigEndian.Uint16(b))
	default:
		return binary.BigEndian.Uint32(b)
	}
}

// Pack encodes values with program p; the inverse of [Unpack].
//
// Length fields named by LengthFrom are written from the value they describe, so callers only
// supply the payload fields. Missing values encode as zero or empty. A [TrailingField] value is
// appended verbatim.
func Pack(p Program, values Fields) ([]byte, error) {
	lengths := make(map[string]int)
	for _, f := range p {
		if f.LengthFrom == "" {
			continue
		}
		switch v := values[f.Name].(type) {
		case string:
			lengths[f.LengthFrom] = len(v)
		case []byte:
			lengths[f.LengthFrom] = len(v)
		}
	}

	var buf bytes.Buffer
	for _, f := range p {
		switch f.Kind {
		case Uint8, Uint16, Uint32:
			v, _ := values.Uint(f.Name)
			if n, ok := lengths[f.Name]; ok {
				v = uint32(n)
			}
			w := intWidth(f.Kind)
			if limit := uint64(1)<<(8*w) - 1; uint64(v) > limit {
				return nil, fmt.Errorf("%w: field %q value %d overflows %s", shared.ErrInvalidInput, f.Name, v, f.Kind)
			}
			var tmp [4]byte
			binary.BigEndian.PutUint32(tmp[:], v)
			buf.Write(tmp[4-w:])

		case Text, Blob:
			var raw []byte
			switch v := values[f.Name].(type) {
			case string:
				raw = []byte(v)
			case []byte:
				raw = v
			}
			if f.LengthFrom == "" && f.Width > 0 {
				if len(raw) > f.Width {
					return nil, fmt.Errorf("%w: field %q longer than width %d", shared.ErrInvalidInput, f.Name, f.Width)
				}
				raw = append(bytes.Clone(raw), make([]byte, f.Width-len(raw))...)
			}
			buf.Write(raw)

		case CString:
			s, _ := values.String(f.Name)
			if bytes.IndexByte([]byte(s), 0) >= 0 {
				return nil, fmt.Errorf("%w: field %q contains NUL", shared.ErrInvalidInput, f.Name)
			}
			buf.WriteString(s)
			buf.WriteByte(0)
		}
	}

	if trailing, ok := values.Bytes(TrailingField); ok {
		buf.Write(trailing)
	}

	return buf.Bytes(), nil
}
