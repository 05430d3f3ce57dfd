package bsig

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"

	"github.com/starford/stk/internal/storage"
)

// DefaultBlockSize is the data block size used by NewWriter when none is given.
const DefaultBlockSize = 4096

type pending struct {
	Signal
	data []byte
}

// Writer assembles a bsig file in memory.
type Writer struct {
	blockSize  int
	compressed bool
	signals    []pending
	names      map[string]bool
}

// NewWriter returns a writer producing blocks of blockSize bytes
// (DefaultBlockSize when blockSize <= 0), zlib-compressed when compress is set.
func NewWriter(blockSize int, compress bool) *Writer {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Writer{blockSize: blockSize, compressed: compress, names: make(map[string]bool)}
}

// Add appends a signal. values holds arrayLength values per sample.
func (w *Writer) Add(name string, typ Type, arrayLength int, values []float64) error {
	if name == "" || len(name) > 0xffff {
		return fmt.Errorf("bsig: invalid signal name %q", name)
	}
	if w.names[name] {
		return fmt.Errorf("bsig: duplicate signal %s", name)
	}
	size := typ.Size()
	if size == 0 {
		return fmt.Errorf("bsig: signal %s: unknown type %d", name, uint32(typ))
	}
	if arrayLength <= 0 {
		arrayLength = 1
	}
	if len(values)%arrayLength != 0 {
		return fmt.Errorf("bsig: signal %s: %d values do not fill arrays of %d", name, len(values), arrayLength)
	}
	data := make([]byte, len(values)*size)
	for i, v := range values {
		typ.encode(data[i*size:], v)
	}
	return w.AddRaw(Signal{Name: name, Type: typ, ArrayLength: arrayLength, SampleCount: len(values) / arrayLength}, data)
}

// AddRaw appends a signal whose samples are already encoded.
func (w *Writer) AddRaw(s Signal, data []byte) error {
	if w.names[s.Name] {
		return fmt.Errorf("bsig: duplicate signal %s", s.Name)
	}
	if want := s.SampleCount * max(s.ArrayLength, 1) * s.Type.Size(); want != len(data) {
		return fmt.Errorf("bsig: signal %s: %d bytes, want %d", s.Name, len(data), want)
	}
	s.offsets = nil
	w.names[s.Name] = true
	w.signals = append(w.signals, pending{Signal: s, data: data})
	return nil
}

// WriteTo serializes the file: data blocks, index table, header, footer.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	var body bytes.Buffer
	le := binary.LittleEndian

	offsets := make([][]uint32, len(w.signals))
	for i, s := range w.signals {
		for start := 0; start < len(s.data); start += w.blockSize {
			chunk := s.data[start:min(start+w.blockSize, len(s.data))]
			if int64(body.Len()) > math.MaxUint32 {
				return 0, fmt.Errorf("bsig: file exceeds 4 GiB")
			}
			offsets[i] = append(offsets[i], uint32(body.Len()))
			if err := w.writeBlock(&body, chunk); err != nil {
				return 0, fmt.Errorf("bsig: signal %s: %w", s.Name, err)
			}
		}
	}

	idxStart := body.Len()
	for i, s := range w.signals {
		_ = binary.Write(&body, le, uint32(len(offsets[i])))
		_ = binary.Write(&body, le, uint32(s.SampleCount))
		_ = binary.Write(&body, le, offsets[i])
	}
	idxSize := body.Len() - idxStart

	hdrStart := body.Len()
	for _, s := range w.signals {
		_ = binary.Write(&body, le, uint16(len(s.Name)))
		body.WriteString(s.Name)
		_ = binary.Write(&body, le, uint32(max(s.ArrayLength, 1)))
		_ = binary.Write(&body, le, uint32(s.Type))
	}
	hdrSize := body.Len() - hdrStart

	_ = binary.Write(&body, le, uint32(len(w.signals)))
	_ = binary.Write(&body, le, uint32(w.blockSize))
	_ = binary.Write(&body, le, uint32(hdrSize))
	_ = binary.Write(&body, le, uint32(idxSize))
	compression := uint8(0)
	if w.compressed {
		compression = 1
	}
	body.Write([]byte{maxMajor, maxMinor, 0, compression})
	body.WriteString(signature)

	return body.WriteTo(out)
}

func (w *Writer) writeBlock(body *bytes.Buffer, chunk []byte) error {
	if !w.compressed {
		body.Write(chunk)
		if pad := w.blockSize - len(chunk); pad > 0 {
			body.Write(make([]byte, pad))
		}
		return nil
	}
	var packed bytes.Buffer
	zw := zlib.NewWriter(&packed)
	if _, err := zw.Write(chunk); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	_ = binary.Write(body, binary.LittleEndian, uint32(packed.Len()))
	body.Write(packed.Bytes())
	return nil
}

// WriteFile writes the file atomically to path.
func (w *Writer) WriteFile(path string) error {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("bsig: write %s: %w", path, err)
	}
	return nil
}
