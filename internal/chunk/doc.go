// Package chunk decodes the recursive type/length/value format used by the session log.
//
// # Wire Layout
//
// Every chunk starts with an 8-byte header: a 4-character type tag followed by a big-endian
// uint32 payload length. The header is not counted in the length.
//
// # Chunk Kinds
//
// A [Registry] tells the [Parser] what each tag holds:
//   - container tags hold a sequence of child chunks filling the payload exactly
//   - leaf tags hold fields decoded by a [Program] (see [Unpack])
//   - anything else is kept as an opaque leaf with only its raw bytes
//
// Containers own their children by value. [Chunk.Record] resolves a container to its last
// descendant leaf so that repeated appends to one region read as last-write-wins.
//
// # Errors
//
// A header or payload cut short by an in-progress write fails with shared.ErrTruncatedChunk;
// a program reading past its payload fails with shared.ErrTruncatedBuffer. Both abort the
// current scan only.
package chunk
