// Package bsig reads and writes version 2 binary signal files (.bsig):
// column-oriented measurement signals stored in fixed-size, optionally
// zlib-compressed blocks, described by a header and an index table that sit
// in front of a 24-byte footer.
package bsig

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Type is the sample type code stored in the signal header.
type Type uint32

const (
	U8  Type = 8
	U16 Type = 16
	U32 Type = 32
	U64 Type = 64
	I8  Type = 32776
	I16 Type = 32784
	I32 Type = 32800
	I64 Type = 32832
	F32 Type = 36880
	F64 Type = 36896
)

const (
	footerSize = 24
	signature  = "BIN\x00"

	maxMajor = 1
	maxMinor = 1
)

// Size returns the byte size of one sample, 0 for unknown codes.
func (t Type) Size() int {
	switch t {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	}
	return 0
}

func (t Type) String() string {
	switch t {
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

func (t Type) decode(b []byte) float64 {
	le := binary.LittleEndian
	switch t {
	case U8:
		return float64(b[0])
	case I8:
		return float64(int8(b[0]))
	case U16:
		return float64(le.Uint16(b))
	case I16:
		return float64(int16(le.Uint16(b)))
	case U32:
		return float64(le.Uint32(b))
	case I32:
		return float64(int32(le.Uint32(b)))
	case U64:
		return float64(le.Uint64(b))
	case I64:
		return float64(int64(le.Uint64(b)))
	case F32:
		return float64(math.Float32frombits(le.Uint32(b)))
	case F64:
		return math.Float64frombits(le.Uint64(b))
	}
	return 0
}

func (t Type) encode(b []byte, v float64) {
	le := binary.LittleEndian
	switch t {
	case U8:
		b[0] = uint8(v)
	case I8:
		b[0] = uint8(int8(v))
	case U16:
		le.PutUint16(b, uint16(v))
	case I16:
		le.PutUint16(b, uint16(int16(v)))
	case U32:
		le.PutUint32(b, uint32(v))
	case I32:
		le.PutUint32(b, uint32(int32(v)))
	case U64:
		le.PutUint64(b, uint64(v))
	case I64:
		le.PutUint64(b, uint64(int64(v)))
	case F32:
		le.PutUint32(b, math.Float32bits(float32(v)))
	case F64:
		le.PutUint64(b, math.Float64bits(v))
	}
}

// Signal describes one signal stored in a file.
type Signal struct {
	Name        string
	Type        Type
	ArrayLength int
	SampleCount int

	offsets []uint32
}
