package storage

import (
	"errors"
	"reflect"
	"testing"
)

func TestTextCodec_RoundTrip(t *testing.T) {
	for _, s := range []string{"", "@article{A,\n}", "Schrödinger – ψ"} {
		data, err := TextCodec{}.Encode(s)
		if err != nil {
			t.Fatal(err)
		}
		got, err := TextCodec{}.Decode(data)
		if err != nil || got != s {
			t.Errorf("round trip of %q = %q, %v", s, got, err)
		}
	}
}

func TestVectorCodec_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codec VectorCodec
		in    []float32
		want  []float32
		size  int
	}{
		{
			name:  "float16 exact values",
			codec: VectorCodec{Width: WidthFloat16, Dim: 4},
			in:    []float32{0.5, -1.25, 0, 1024},
			want:  []float32{0.5, -1.25, 0, 1024},
			size:  8,
		},
		{
			name:  "float16 rounds",
			codec: VectorCodec{Width: WidthFloat16},
			in:    []float32{0.1},
			want:  []float32{0.099975586},
			size:  2,
		},
		{
			name:  "float32 exact",
			codec: VectorCodec{Width: WidthFloat32, Dim: 2},
			in:    []float32{0.1, -3.14159},
			want:  []float32{0.1, -3.14159},
			size:  8,
		},
		{
			name:  "zero width means float16",
			codec: VectorCodec{},
			in:    []float32{2},
			want:  []float32{2},
			size:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.codec.Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if len(data) != tt.size {
				t.Errorf("encoded %d bytes, want %d", len(data), tt.size)
			}
			got, err := tt.codec.Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVectorCodec_Errors(t *testing.T) {
	c := VectorCodec{Width: WidthFloat16, Dim: 3}

	if _, err := c.Encode([]float32{1, 2}); err == nil {
		t.Error("Encode() with wrong dimension should fail")
	}
	if _, err := c.Decode([]byte{1, 2, 3}); !errors.Is(err, ErrCorruptValue) {
		t.Errorf("Decode() odd length error = %v, want ErrCorruptValue", err)
	}
	if _, err := c.Decode([]byte{0, 0, 0, 0}); !errors.Is(err, ErrCorruptValue) {
		t.Errorf("Decode() wrong dim error = %v, want ErrCorruptValue", err)
	}
	if _, err := (VectorCodec{Width: 8}).Encode([]float32{1}); err == nil {
		t.Error("Encode() with unsupported width should fail")
	}
}

func TestRecordCodec_Corrupt(t *testing.T) {
	if _, err := (RecordCodec{}).Decode([]byte{0xc1}); !errors.Is(err, ErrCorruptValue) {
		t.Errorf("Decode() error = %v, want ErrCorruptValue", err)
	}
	if _, err := (RecordCodec{}).Encode(nil); err == nil {
		t.Error("Encode(nil) should fail")
	}
}
