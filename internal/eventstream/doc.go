// Package eventstream reads the CSV tables written by the tracing tool and
// dispatches their rows to a Handler.
//
// The dialect differs from RFC 4180: fields are separated by ',' and quoted
// with '|', so disassembly text containing commas survives. A doubled '||'
// inside a quoted field is a literal '|', and quoted fields may span lines.
//
// Tables may be stored compressed; Open picks a decoder from the file suffix:
//   - .gz:  gzip
//   - .zst: zstandard
package eventstream
