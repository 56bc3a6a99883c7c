// Package xdr provides the XDR (RFC 4506) primitives the remote filesystem
// protocol is built from.
//
// Key characteristics of XDR:
//   - Big-endian byte order for all multi-byte integers
//   - 4-byte alignment for all data types
//   - Variable-length data is preceded by a 4-byte length
//   - Strings and opaque data are padded to 4-byte boundaries
//
// Flat structures are encoded with github.com/rasky/go-xdr; the helpers here
// cover the pieces that library cannot express, chiefly discriminated unions
// and length-limited variable data.
//
// Reference: RFC 4506 - XDR: External Data Representation Standard
package xdr
