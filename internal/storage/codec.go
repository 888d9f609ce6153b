package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/matsen/papertools/internal/reference"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/x448/float16"
)

// Codec converts collection values to and from their stored bytes.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// RecordCodec stores literature records as msgpack.
type RecordCodec struct{}

func (RecordCodec) Encode(rec *reference.Record) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("encoding record: nil record")
	}
	return msgpack.Marshal(rec)
}

func (RecordCodec) Decode(data []byte) (*reference.Record, error) {
	var rec reference.Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptValue, err)
	}
	return &rec, nil
}

// TextCodec stores strings as their UTF-8 bytes.
type TextCodec struct{}

func (TextCodec) Encode(s string) ([]byte, error) { return []byte(s), nil }

func (TextCodec) Decode(data []byte) (string, error) { return string(data), nil }

// Supported vector element widths in bytes.
const (
	WidthFloat16 = 2
	WidthFloat32 = 4
)

// VectorCodec stores vectors as packed little-endian floats. Width 2 stores
// IEEE half precision, so values are rounded on write; Width 4 is exact.
// A non-zero Dim is enforced on both encode and decode.
type VectorCodec struct {
	Width int
	Dim   int
}

func (c VectorCodec) width() int {
	if c.Width == 0 {
		return WidthFloat16
	}
	return c.Width
}

func (c VectorCodec) Encode(v []float32) ([]byte, error) {
	if c.Dim > 0 && len(v) != c.Dim {
		return nil, fmt.Errorf("encoding vector: got %d dimensions, want %d", len(v), c.Dim)
	}
	w := c.width()
	buf := make([]byte, len(v)*w)
	switch w {
	case WidthFloat16:
		for i, f := range v {
			binary.LittleEndian.PutUint16(buf[i*w:], float16.Fromfloat32(f).Bits())
		}
	case WidthFloat32:
		for i, f := range v {
			binary.LittleEndian.PutUint32(buf[i*w:], math.Float32bits(f))
		}
	default:
		return nil, fmt.Errorf("encoding vector: unsupported width %d", w)
	}
	return buf, nil
}

func (c VectorCodec) Decode(data []byte) ([]float32, error) {
	w := c.width()
	if w != WidthFloat16 && w != WidthFloat32 {
		return nil, fmt.Errorf("decoding vector: unsupported width %d", w)
	}
	if len(data)%w != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of width %d", ErrCorruptValue, len(data), w)
	}
	n := len(data) / w
	if c.Dim > 0 && n != c.Dim {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrCorruptValue, n, c.Dim)
	}

	v := make([]float32, n)
	switch w {
	case WidthFloat16:
		for i := range v {
			v[i] = float16.Frombits(binary.LittleEndian.Uint16(data[i*w:])).Float32()
		}
	case WidthFloat32:
		for i := range v {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*w:]))
		}
	}
	return v, nil
}
