// Package binio packs and unpacks the big-endian primitives a class file is
// built from: unsigned 8/16/32-bit, signed 32/64-bit, IEEE-754 32/64-bit, and
// the length-prefixed MUTF-8 string payload used for CONSTANT_Utf8_info.
package binio

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/wader/fq/pkg/bitio"
)

// ErrTruncated is returned (wrapped) when a read requests more bytes than
// remain in the underlying stream.
var ErrTruncated = errors.New("binio: truncated")

// Reader positions reads over a byte stream. It tracks the number of bytes
// consumed so error messages can point at an offset; the stream itself is
// owned by the caller, per the single-threaded, caller-scoped resource model.
type Reader struct {
	r   io.Reader
	pos int64
}

// NewReader wraps r for primitive decoding. The stream is layered through
// bitio.NewReader so that callers supplying anything byte-addressable (a
// file, a bytes.Reader, a network connection) get the same cursor behavior;
// binio never seeks it, it only reads forward.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bitio.NewReader(r)}
}

// Pos returns the number of bytes consumed so far.
func (r *Reader) Pos() int64 { return r.pos }

func (r *Reader) readFull(buf []byte) error {
	n, err := io.ReadFull(r.r, buf)
	r.pos += int64(n)
	if err != nil {
		return errors.Wrapf(ErrTruncated, "at offset %d: %v", r.pos, err)
	}
	return nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	var buf [1]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadU16 reads a big-endian unsigned 16-bit value.
func (r *Reader) ReadU16() (uint16, error) {
	var buf [2]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// ReadU32 reads a big-endian unsigned 32-bit value.
func (r *Reader) ReadU32() (uint32, error) {
	var buf [4]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// ReadI32 reads a big-endian signed 32-bit value.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadI64 reads a big-endian signed 64-bit value.
func (r *Reader) ReadI64() (int64, error) {
	var buf [8]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// ReadF32 reads a big-endian IEEE-754 single-precision float.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64 reads a big-endian IEEE-754 double-precision float.
func (r *Reader) ReadF64() (float64, error) {
	var buf [8]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(buf[:])), nil
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if err := r.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUtf8Bytes reads a u2 length prefix followed by that many raw MUTF-8
// bytes, returning the undecoded bytes; callers pass them to DecodeMUTF8.
func (r *Reader) ReadUtf8Bytes() ([]byte, error) {
	length, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(length))
}

// Writer mirrors Reader for encoding.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for primitive encoding, layered through bitio.NewWriter
// for the same reason NewReader layers through bitio.NewReader.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bitio.NewWriter(w)}
}

func (w *Writer) write(buf []byte) error {
	_, err := w.w.Write(buf)
	return err
}

// WriteU8 writes one unsigned byte.
func (w *Writer) WriteU8(v uint8) error {
	return w.write([]byte{v})
}

// WriteU16 writes a big-endian unsigned 16-bit value.
func (w *Writer) WriteU16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return w.write(buf[:])
}

// WriteU32 writes a big-endian unsigned 32-bit value.
func (w *Writer) WriteU32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return w.write(buf[:])
}

// WriteI32 writes a big-endian signed 32-bit value.
func (w *Writer) WriteI32(v int32) error {
	return w.WriteU32(uint32(v))
}

// WriteI64 writes a big-endian signed 64-bit value.
func (w *Writer) WriteI64(v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return w.write(buf[:])
}

// WriteF32 writes a big-endian IEEE-754 single-precision float.
func (w *Writer) WriteF32(v float32) error {
	return w.WriteU32(math.Float32bits(v))
}

// WriteF64 writes a big-endian IEEE-754 double-precision float.
func (w *Writer) WriteF64(v float64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	return w.write(buf[:])
}

// WriteBytes writes raw bytes verbatim.
func (w *Writer) WriteBytes(b []byte) error {
	return w.write(b)
}

// WriteUtf8Bytes writes a u2 length prefix followed by the raw MUTF-8 bytes.
// The caller supplies already-encoded bytes (see EncodeMUTF8).
func (w *Writer) WriteUtf8Bytes(b []byte) error {
	if len(b) > math.MaxUint16 {
		return errors.Newf("binio: utf8 payload too long: %d bytes", len(b))
	}
	if err := w.WriteU16(uint16(len(b))); err != nil {
		return err
	}
	return w.WriteBytes(b)
}
