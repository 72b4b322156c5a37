// Package xdr provides the XDR (RFC 4506) primitives used by the ONC-RPC
// clients in internal/protocol.
//
// All quantities are big-endian and 4-byte aligned. Variable-length data is
// preceded by its length and padded with zeros to the next 4-byte boundary.
// Fixed-shape argument structs are marshaled with github.com/rasky/go-xdr;
// the helpers here cover replies with optional data and linked lists, which
// have to be walked by hand.
package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// MaxOpaque bounds variable-length data read from the wire.
const MaxOpaque = 1 << 20

// Marshal encodes v (a struct of XDR-representable fields) with go-xdr.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr2.Marshal(&buf, v); err != nil {
		return nil, fmt.Errorf("xdr marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a fixed-shape value from r with go-xdr.
func Unmarshal(r io.Reader, v any) error {
	if _, err := xdr2.Unmarshal(r, v); err != nil {
		return fmt.Errorf("xdr unmarshal: %w", err)
	}
	return nil
}

func pad(n uint32) uint32 {
	return (4 - n%4) % 4
}

// WriteUint32 appends v.
func WriteUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// WriteUint64 appends v as an XDR hyper.
func WriteUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// WriteBool appends v as 0 or 1.
func WriteBool(buf *bytes.Buffer, v bool) {
	if v {
		WriteUint32(buf, 1)
	} else {
		WriteUint32(buf, 0)
	}
}

// WriteOpaque appends variable-length opaque data with its padding.
func WriteOpaque(buf *bytes.Buffer, data []byte) {
	WriteUint32(buf, uint32(len(data)))
	buf.Write(data)
	buf.Write(make([]byte, pad(uint32(len(data)))))
}

// WriteString appends s like opaque data.
func WriteString(buf *bytes.Buffer, s string) {
	WriteOpaque(buf, []byte(s))
}

// DecodeUint32 reads one unsigned integer.
func DecodeUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// DecodeUint64 reads one hyper.
func DecodeUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read uint64: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// DecodeBool reads a boolean; any non-zero value is true.
func DecodeBool(r io.Reader) (bool, error) {
	v, err := DecodeUint32(r)
	return v != 0, err
}

// DecodeOpaque reads variable-length opaque data and skips its padding.
func DecodeOpaque(r io.Reader) ([]byte, error) {
	n, err := DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	if n > MaxOpaque {
		return nil, fmt.Errorf("opaque length %d exceeds maximum %d", n, MaxOpaque)
	}
	data := make([]byte, n+pad(n))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	return data[:n], nil
}

// DecodeString reads a string.
func DecodeString(r io.Reader) (string, error) {
	data, err := DecodeOpaque(r)
	return string(data), err
}

// DecodeFixed reads exactly len(dst) bytes of fixed-length opaque data plus
// padding.
func DecodeFixed(r io.Reader, dst []byte) error {
	n := uint32(len(dst))
	if _, err := io.ReadFull(r, dst); err != nil {
		return fmt.Errorf("read fixed opaque: %w", err)
	}
	if p := pad(n); p > 0 {
		var skip [3]byte
		if _, err := io.ReadFull(r, skip[:p]); err != nil {
			return fmt.Errorf("skip padding: %w", err)
		}
	}
	return nil
}

// Skip discards n bytes.
func Skip(r io.Reader, n int64) error {
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("skip %d bytes: %w", n, err)
	}
	return nil
}
