package bsig

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// ErrInvalid is returned for files that are not valid bsig containers.
var ErrInvalid = errors.New("bsig: invalid file")

// Smallest encodings of one signal in the header and the index table.
const (
	minHeaderEntry = 2 + 4 + 4
	minIndexEntry  = 4 + 4
)

// File is an open bsig file. It implements signal.Provider; array signals
// are returned flattened, sample by sample.
type File struct {
	r      io.ReaderAt
	size   int64
	closer io.Closer

	blockSize  uint32
	compressed bool
	version    [3]uint8

	signals []Signal
	byName  map[string]int

	mu    sync.Mutex
	cache map[string][]float64
}

// Open opens and validates the bsig file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bsig: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("bsig: stat %s: %w", path, err)
	}
	bf, err := NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	bf.closer = f
	return bf, nil
}

// NewReader parses the footer, header and index table of a bsig file of
// the given size.
func NewReader(r io.ReaderAt, size int64) (*File, error) {
	if size < footerSize {
		return nil, fmt.Errorf("%w: too small", ErrInvalid)
	}
	footer := make([]byte, footerSize)
	if _, err := r.ReadAt(footer, size-footerSize); err != nil {
		return nil, fmt.Errorf("bsig: read footer: %w", err)
	}
	le := binary.LittleEndian
	count := le.Uint32(footer[0:])
	blockSize := le.Uint32(footer[4:])
	hdrSize := int64(le.Uint32(footer[8:]))
	idxSize := int64(le.Uint32(footer[12:]))
	version := [3]uint8{footer[16], footer[17], footer[18]}
	compression := footer[19]

	if string(footer[20:24]) != signature {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalid)
	}
	if version[0] > maxMajor || (version[0] == maxMajor && version[1] > maxMinor) {
		return nil, fmt.Errorf("%w: unsupported version %d.%d.%d", ErrInvalid, version[0], version[1], version[2])
	}
	if blockSize == 0 {
		return nil, fmt.Errorf("%w: zero block size", ErrInvalid)
	}
	hdrOffset := size - footerSize - hdrSize
	idxOffset := hdrOffset - idxSize
	if hdrOffset < 0 || idxOffset < 0 {
		return nil, fmt.Errorf("%w: header or index table out of range", ErrInvalid)
	}
	if int64(count)*minHeaderEntry > hdrSize || int64(count)*minIndexEntry > idxSize {
		return nil, fmt.Errorf("%w: %d signals do not fit the header and index table", ErrInvalid, count)
	}

	f := &File{
		r:          r,
		size:       size,
		blockSize:  blockSize,
		compressed: compression != 0,
		version:    version,
		byName:     make(map[string]int, count),
		cache:      make(map[string][]float64),
	}

	hdr := make([]byte, hdrSize)
	if _, err := r.ReadAt(hdr, hdrOffset); err != nil {
		return nil, fmt.Errorf("bsig: read header: %w", err)
	}
	hc := cursor{b: hdr}
	for i := uint32(0); i < count; i++ {
		nameLen := int(hc.u16())
		name := string(hc.bytes(nameLen))
		arrayLen := hc.u32()
		typ := Type(hc.u32())
		if hc.err != nil {
			return nil, fmt.Errorf("%w: signal header %d: %v", ErrInvalid, i, hc.err)
		}
		if typ.Size() == 0 {
			return nil, fmt.Errorf("%w: signal %s has unknown type %d", ErrInvalid, name, uint32(typ))
		}
		f.byName[name] = len(f.signals)
		f.signals = append(f.signals, Signal{Name: name, Type: typ, ArrayLength: int(max(arrayLen, 1))})
	}

	idx := make([]byte, idxSize)
	if _, err := r.ReadAt(idx, idxOffset); err != nil {
		return nil, fmt.Errorf("bsig: read index table: %w", err)
	}
	ic := cursor{b: idx}
	for i := range f.signals {
		s := &f.signals[i]
		n := ic.u32()
		s.SampleCount = int(ic.u32())
		if ic.err == nil && int64(n) > int64(ic.remaining()/4) {
			return nil, fmt.Errorf("%w: index table of %s lists %d blocks past its end", ErrInvalid, s.Name, n)
		}
		offsets := make([]uint32, 0, n)
		for j := uint32(0); j < n && ic.err == nil; j++ {
			offsets = append(offsets, ic.u32())
		}
		if ic.err != nil {
			return nil, fmt.Errorf("%w: index table of %s: %v", ErrInvalid, s.Name, ic.err)
		}
		s.offsets = offsets
		if err := f.checkLength(s, idxOffset); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// checkLength rejects signals whose sample data cannot fit their blocks.
// dataSize is the number of bytes in front of the index table.
func (f *File) checkLength(s *Signal, dataSize int64) error {
	limit := uint64(len(s.offsets)) * uint64(f.blockSize)
	if !f.compressed {
		limit = min(limit, uint64(dataSize))
	}
	width := uint64(s.ArrayLength) * uint64(s.Type.Size())
	if s.SampleCount < 0 || uint64(s.SampleCount) > limit/width {
		return fmt.Errorf("%w: signal %s claims %d samples of %d bytes, blocks hold %d bytes",
			ErrInvalid, s.Name, s.SampleCount, width, limit)
	}
	return nil
}

// Close releases the underlying file when the File was created by Open.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Version returns the container version from the footer.
func (f *File) Version() (major, minor, patch uint8) {
	return f.version[0], f.version[1], f.version[2]
}

// Compressed reports whether data blocks are zlib streams.
func (f *File) Compressed() bool { return f.compressed }

// BlockSize returns the uncompressed data block size.
func (f *File) BlockSize() int { return int(f.blockSize) }

// Signals returns the signal descriptions in file order.
func (f *File) Signals() []Signal {
	return append([]Signal(nil), f.signals...)
}

// Names returns the signal names in file order.
func (f *File) Names() []string {
	out := make([]string, len(f.signals))
	for i, s := range f.signals {
		out[i] = s.Name
	}
	return out
}

// Lookup returns the decoded values of the named signal.
func (f *File) Lookup(name string) ([]float64, bool, error) {
	i, ok := f.byName[name]
	if !ok {
		return nil, false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.cache[name]; ok {
		return v, true, nil
	}
	v, err := f.decode(f.signals[i])
	if err != nil {
		return nil, false, err
	}
	f.cache[name] = v
	return v, true, nil
}

// Samples returns an array signal as one slice per sample.
func (f *File) Samples(name string) ([][]float64, error) {
	flat, ok, err := f.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("bsig: signal %s not found", name)
	}
	width := f.signals[f.byName[name]].ArrayLength
	out := make([][]float64, 0, len(flat)/width)
	for i := 0; i+width <= len(flat); i += width {
		out = append(out, flat[i:i+width])
	}
	return out, nil
}

// Raw returns the undecoded sample bytes of a signal.
func (f *File) Raw(name string) ([]byte, error) {
	i, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("bsig: signal %s not found", name)
	}
	return f.raw(f.signals[i])
}

func (f *File) raw(s Signal) ([]byte, error) {
	need := s.SampleCount * s.ArrayLength * s.Type.Size()
	buf := make([]byte, 0, need)
	for _, off := range s.offsets {
		if len(buf) >= need {
			break
		}
		block, err := f.block(int64(off))
		if err != nil {
			return nil, fmt.Errorf("bsig: signal %s: %w", s.Name, err)
		}
		buf = append(buf, block...)
	}
	if len(buf) < need {
		return nil, fmt.Errorf("%w: signal %s is truncated (%d of %d bytes)", ErrInvalid, s.Name, len(buf), need)
	}
	return buf[:need], nil
}

func (f *File) decode(s Signal) ([]float64, error) {
	data, err := f.raw(s)
	if err != nil {
		return nil, err
	}
	size := s.Type.Size()
	out := make([]float64, len(data)/size)
	for i := range out {
		out[i] = s.Type.decode(data[i*size:])
	}
	return out, nil
}

func (f *File) block(off int64) ([]byte, error) {
	if off >= f.size {
		return nil, fmt.Errorf("%w: block at %d past the end of the file", ErrInvalid, off)
	}
	if !f.compressed {
		b := make([]byte, min(int64(f.blockSize), f.size-off))
		n, err := f.r.ReadAt(b, off)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read block at %d: %w", off, err)
		}
		return b[:n], nil
	}
	var lenBuf [4]byte
	if _, err := f.r.ReadAt(lenBuf[:], off); err != nil {
		return nil, fmt.Errorf("read block length at %d: %w", off, err)
	}
	packedLen := int64(binary.LittleEndian.Uint32(lenBuf[:]))
	if off+4+packedLen > f.size {
		return nil, fmt.Errorf("%w: block at %d runs past the end of the file", ErrInvalid, off)
	}
	packed := make([]byte, packedLen)
	if _, err := f.r.ReadAt(packed, off+4); err != nil {
		return nil, fmt.Errorf("read block at %d: %w", off, err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("inflate block at %d: %w", off, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, int64(f.blockSize)))
	if err != nil {
		return nil, fmt.Errorf("inflate block at %d: %w", off, err)
	}
	return out, nil
}

// cursor reads little-endian fields and remembers the first short read.
type cursor struct {
	b   []byte
	pos int
	err error
}

func (c *cursor) bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	if c.pos+n > len(c.b) {
		c.err = io.ErrUnexpectedEOF
		return nil
	}
	out := c.b[c.pos : c.pos+n]
	c.pos += n
	return out
}

func (c *cursor) remaining() int { return len(c.b) - c.pos }

func (c *cursor) u16() uint16 {
	b := c.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *cursor) u32() uint32 {
	b := c.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}
