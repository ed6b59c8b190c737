package fslm

// Binary models are a sequence of blocks. Each block starts with its
// payload length and alignment as protobuf varints, followed by zero
// padding and the payload. Payloads are aligned relative to the
// beginning of the file so that a memory mapped file can be
// reinterpreted in place.

import (
	"io"
	"unsafe"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// Longest possible block header: two 64-bit varints.
	maxBlockHeaderSize = 2 * 10
	maxBlockAlign      = 4096
)

type blockWriter struct {
	w       io.Writer
	written int64
	// Bytes still expected by the current block.
	pending int64
}

func newBlockWriter(w io.Writer) *blockWriter {
	return &blockWriter{w: w}
}

func (bw *blockWriter) write(p []byte) error {
	n, err := bw.w.Write(p)
	bw.written += int64(n)
	return err
}

// NewBlock starts a block of size bytes whose payload begins at a
// multiple of align. The payload is then given with Append.
func (bw *blockWriter) NewBlock(align, size int64) error {
	if bw.pending != 0 {
		return errors.Errorf("previous block is missing %d bytes", bw.pending)
	}
	if align <= 0 {
		align = 1
	}
	if align > maxBlockAlign || size < 0 {
		return errors.Errorf("invalid block of %d bytes aligned at %d", size, align)
	}
	header := protowire.AppendVarint(nil, uint64(size))
	header = protowire.AppendVarint(header, uint64(align))
	header = append(header, make([]byte, padding(bw.written+int64(len(header)), align))...)
	if err := bw.write(header); err != nil {
		return err
	}
	bw.pending = size
	return nil
}

func (bw *blockWriter) Append(p []byte) error {
	if int64(len(p)) > bw.pending {
		return errors.Errorf("block overflow by %d bytes", int64(len(p))-bw.pending)
	}
	bw.pending -= int64(len(p))
	return bw.write(p)
}

func (bw *blockWriter) Write(p []byte, align int64) error {
	if err := bw.NewBlock(align, int64(len(p))); err != nil {
		return err
	}
	return bw.Append(p)
}

func (bw *blockWriter) WriteString(s string, align int64) error {
	return bw.Write([]byte(s), align)
}

type blockSlicer struct {
	raw []byte
	pos int
}

func newBlockSlicer(raw []byte) *blockSlicer {
	return &blockSlicer{raw: raw}
}

// Slice returns the payload of the next block without copying. Any
// input is safe: a header that does not describe a block inside raw is
// an error.
func (bs *blockSlicer) Slice() ([]byte, error) {
	rest := bs.raw[bs.pos:]
	size, n := protowire.ConsumeVarint(rest)
	if n < 0 {
		return nil, errors.Wrap(protowire.ParseError(n), "reading block size")
	}
	align, m := protowire.ConsumeVarint(rest[n:])
	if m < 0 {
		return nil, errors.Wrap(protowire.ParseError(m), "reading block alignment")
	}
	if align == 0 || align > maxBlockAlign {
		return nil, errors.Errorf("invalid block alignment %d", align)
	}
	start := bs.pos + n + m
	start += int(padding(int64(start), int64(align)))
	if start > len(bs.raw) || size > uint64(len(bs.raw)-start) {
		return nil, errors.Errorf("block of %d bytes at offset %d exceeds input of %d bytes", size, start, len(bs.raw))
	}
	end := start + int(size)
	bs.pos = end
	return bs.raw[start:end:end], nil
}

func padding(offset, align int64) int64 {
	return (align - offset%align) % align
}

// asBytes reinterprets a slice of fixed-size entries as raw bytes.
func asBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
}

// fromBytes is the inverse of asBytes. raw must be properly aligned.
func fromBytes[T any](raw []byte) ([]T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(raw)%size != 0 {
		return nil, errors.Errorf("number of bytes %d is not a multiple of %d", len(raw), size)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	if uintptr(unsafe.Pointer(&raw[0]))%unsafe.Alignof(zero) != 0 {
		return nil, errors.New("misaligned entries")
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), len(raw)/size), nil
}
