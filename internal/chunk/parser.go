package chunk

import (
	"encoding/binary"
	"fmt"

	"github.com/desertthunder/decklog/internal/shared"
)

// HeaderSize is the byte width of a chunk header: tag plus big-endian uint32 payload length.
const HeaderSize = TagSize + 4

// Parser reads chunks one at a time from a byte cursor bounded by end.
//
// Containers are parsed with a child Parser bounded by the container's declared payload, so no
// child can read into a sibling.
type Parser struct {
	buf []byte
	pos int
	end int
	reg *Registry
}

// NewParser returns a Parser over all of buf.
func NewParser(buf []byte, reg *Registry) *Parser {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Parser{buf: buf, end: len(buf), reg: reg}
}

// HasMore reports whether unread bytes remain before the cursor's end.
func (p *Parser) HasMore() bool {
	return p.pos < p.end
}

// Offset returns the cursor position within the underlying buffer.
func (p *Parser) Offset() int {
	return p.pos
}

// ParseNext reads the chunk at the cursor and advances past it.
//
// The cursor does not move on error.
func (p *Parser) ParseNext() (Chunk, error) {
	start := p.pos
	if p.end-start < HeaderSize {
		return Chunk{}, fmt.Errorf("%w: header at offset %d needs %d bytes, %d remain",
			shared.ErrTruncatedChunk, start, HeaderSize, p.end-start)
	}

	tag := string(p.buf[start : start+TagSize])
	length := uint64(binary.BigEndian.Uint32(p.buf[start+TagSize : start+HeaderSize]))
	payloadStart := start + HeaderSize
	if uint64(p.end-payloadStart) < length {
		return Chunk{}, fmt.Errorf("%w: %q at offset %d declares %d bytes, %d remain",
			shared.ErrTruncatedChunk, tag, start, length, p.end-payloadStart)
	}
	payloadEnd := payloadStart + int(length)

	typ, program := p.reg.Lookup(tag)
	c := Chunk{
		Tag:    tag,
		Type:   typ,
		Offset: start,
		Raw:    p.buf[payloadStart:payloadEnd:payloadEnd],
	}

	switch typ {
	case Container:
		child := &Parser{buf: p.buf, pos: payloadStart, end: payloadEnd, reg: p.reg}
		for child.HasMore() {
			next, err := child.ParseNext()
			if err != nil {
				return Chunk{}, fmt.Errorf("in %q at offset %d: %w", tag, start, err)
			}
			c.Children = append(c.Children, next)
		}
	case Leaf:
		fields, err := Unpack(program, c.Raw)
		if err != nil {
			return Chunk{}, fmt.Errorf("decoding %q at offset %d: %w", tag, start, err)
		}
		c.Fields = fields
	}

	p.pos = payloadEnd
	return c, nil
}

// ParseAll reads every chunk until the cursor is exhausted.
func (p *Parser) ParseAll() ([]Chunk, error) {
	var chunks []Chunk
	for p.HasMore() {
		c, err := p.ParseNext()
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// AppendHeader appends a chunk header for tag with the given payload length. tag must be [TagSize] bytes.
func AppendHeader(dst []byte, tag string, length int) []byte {
	dst = append(dst, tag[:TagSize]...)
	return binary.BigEndian.AppendUint32(dst, uint32(length))
}

// AppendChunk appends a complete chunk to dst.
func AppendChunk(dst []byte, tag string, payload []byte) []byte {
	dst = AppendHeader(dst, tag, len(payload))
	return append(dst, payload...)
}
