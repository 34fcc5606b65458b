// Package persistence provides binary serialization primitives for trained
// codebooks.
//
// The stream format is little-endian throughout: fixed-width integers for
// shape metadata, followed by raw float32 payloads written without per-value
// framing. Writer and reader must agree on the payload shape out of band.
//
// An optional block container wraps a stream in LZ4 or ZSTD compression for
// storage at rest; the wire-level stream itself is never compressed.
package persistence
