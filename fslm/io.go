package fslm

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// OpenFile opens path for reading, transparently decompressing it when
// the name ends in ".gz" or ".xz".
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var r io.Reader
	switch {
	case strings.HasSuffix(path, ".gz"):
		var z *gzip.Reader
		if z, err = gzip.NewReader(bufio.NewReader(f)); err == nil {
			return compressedFile{z, z, f}, nil
		}
	case strings.HasSuffix(path, ".xz"):
		r, err = xz.NewReader(bufio.NewReader(f))
	default:
		return f, nil
	}
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return compressedFile{r, nil, f}, nil
}

// compressedFile closes the decompressor (if it needs closing) before
// the underlying file.
type compressedFile struct {
	io.Reader
	z io.Closer
	f *os.File
}

func (c compressedFile) Close() error {
	var err1 error
	if c.z != nil {
		err1 = c.z.Close()
	}
	err2 := c.f.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// FromARPA reads an ARPA file into a Builder, which can then be dumped
// into either kind of model.
func FromARPA(in io.Reader) (*Builder, error) {
	builder := NewBuilder()
	if err := parseARPA(in, builder); err != nil {
		return nil, err
	}
	return builder, nil
}

func FromARPAFile(path string) (*Builder, error) {
	in, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	builder, err := FromARPA(in)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return builder, nil
}

// MappedFile is the memory backing a model loaded with FromBinary. The
// model must not be used after Close.
type MappedFile struct {
	file *os.File
	data mmap.MMap
}

func OpenMappedFile(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "mapping %s", path)
	}
	return &MappedFile{f, data}, nil
}

func (m *MappedFile) Close() error {
	err1 := m.data.Unmap()
	err2 := m.file.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// FromBinary loads a model written by WriteBinary. kind is
// MODEL_HASHED or MODEL_SORTED. The model is only valid until backing
// is closed.
func FromBinary(path string) (kind int, model Backend, backing io.Closer, err error) {
	m, err := OpenMappedFile(path)
	if err != nil {
		return
	}
	raw := []byte(m.data)
	switch {
	case IsHashedBinary(raw):
		var h Hashed
		err = h.UnsafeParseBinary(raw)
		kind, model = MODEL_HASHED, &h
	case IsSortedBinary(raw):
		var s Sorted
		err = s.UnsafeParseBinary(raw)
		kind, model = MODEL_SORTED, &s
	default:
		err = errors.New("not a FSLM binary file")
	}
	if err != nil {
		m.Close()
		return 0, nil, nil, errors.Wrapf(err, "loading %s", path)
	}
	return kind, model, m, nil
}

// IsBinaryFile tells whether path starts like a binary model.
func IsBinaryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, maxBlockHeaderSize+len(MAGIC_HASHED))
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	head = head[:n]
	return IsHashedBinary(head) || IsSortedBinary(head), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open loads a model from either a binary file or an ARPA file (which
// becomes a Hashed model). Close the returned io.Closer when done.
func Open(path string) (Backend, io.Closer, error) {
	binary, err := IsBinaryFile(path)
	if err != nil {
		return nil, nil, err
	}
	if binary {
		kind, model, backing, err := FromBinary(path)
		if err != nil {
			return nil, nil, err
		}
		if glog.V(1) {
			glog.Infof("loaded binary model %s (kind %d)", path, kind)
		}
		return model, backing, nil
	}
	builder, err := FromARPAFile(path)
	if err != nil {
		return nil, nil, err
	}
	return builder.DumpHashed(0), nopCloser{}, nil
}
