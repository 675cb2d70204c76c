package iso9660

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// Sink is the byte-sink contract the writer requires: random-access writes,
// random-access reads, a length query, and resizing.
type Sink interface {
	io.WriterAt
	io.ReaderAt
	// Len reports the current length of the sink's content in bytes.
	Len() (int64, error)
	// Truncate grows or shrinks the sink to exactly size bytes.
	Truncate(size int64) error
}

// FileSink adapts an *os.File to the Sink contract.
type FileSink struct {
	f *os.File
}

// NewFileSink opens (creating/truncating) path for use as a Sink.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, newErr(Io, "NewFileSink", err)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) WriteAt(p []byte, off int64) (int, error) { return s.f.WriteAt(p, off) }
func (s *FileSink) ReadAt(p []byte, off int64) (int, error)  { return s.f.ReadAt(p, off) }

func (s *FileSink) Len() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *FileSink) Truncate(size int64) error { return s.f.Truncate(size) }

// Close closes the underlying file.
func (s *FileSink) Close() error { return s.f.Close() }

// MemSink is an in-memory Sink backed by a growable byte slice, used in
// tests. The FAT32 ESP volume is not built in a MemSink; buildESP renders it
// into a plain byte slice.
type MemSink struct {
	buf []byte
}

// NewMemSink returns an empty in-memory sink.
func NewMemSink() *MemSink { return &MemSink{} }

func (s *MemSink) growTo(n int64) {
	if int64(len(s.buf)) >= n {
		return
	}
	grown := make([]byte, n)
	copy(grown, s.buf)
	s.buf = grown
}

func (s *MemSink) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, newErr(Io, "MemSink.WriteAt", io.ErrShortWrite)
	}
	s.growTo(off + int64(len(p)))
	copy(s.buf[off:], p)
	return len(p), nil
}

func (s *MemSink) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *MemSink) Len() (int64, error) { return int64(len(s.buf)), nil }

func (s *MemSink) Truncate(size int64) error {
	if size < 0 {
		return newErr(Io, "MemSink.Truncate", io.ErrShortWrite)
	}
	s.growTo(size)
	s.buf = s.buf[:size]
	return nil
}

// Bytes returns the sink's current content. The caller must not mutate the
// returned slice if the sink is still in use.
func (s *MemSink) Bytes() []byte { return s.buf }

// classifyReadErr tags a Source.ReadAt failure NotFound when it carries
// fs.ErrNotExist (the source stream could not be opened/located), and Io
// otherwise.
func classifyReadErr(op string, err error) *Error {
	if errors.Is(err, fs.ErrNotExist) {
		return newErr(NotFound, op, err)
	}
	return newErr(Io, op, err)
}

// copySourceToSink copies every byte of src to sink starting at byte offset
// dstOff, one SectorSize chunk at a time, so a file's content is never
// fully buffered in memory.
func copySourceToSink(sink Sink, src Source, dstOff int64) error {
	size := src.Size()
	buf := make([]byte, SectorSize)
	var off int64
	for off < size {
		want := int64(len(buf))
		if off+want > size {
			want = size - off
		}
		m, err := src.ReadAt(buf[:want], off)
		if err != nil && int64(m) < want {
			return classifyReadErr("copySourceToSink", err)
		}
		if m == 0 {
			break
		}
		if _, err := sink.WriteAt(buf[:m], dstOff+off); err != nil {
			return newErr(Io, "copySourceToSink", err)
		}
		off += int64(m)
	}
	return nil
}
