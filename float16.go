package poserender

import "github.com/x448/float16"

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// Float16ToFloat32 converts raw float16 values to float32, reusing dst when
// it has the capacity
func Float16ToFloat32(dst []float32, src []uint16) []float32 {

	if cap(dst) < len(src) {
		dst = make([]float32, len(src))
	}

	dst = dst[:len(src)]

	for i, v := range src {
		dst[i] = f16LookupTable[v]
	}

	return dst
}

// Float16HeatMaps is a HeatMapSource over float16 network output, as
// produced by NPUs that run the network at half precision
type Float16HeatMaps struct {
	buf []float32
}

// NewFloat16HeatMaps returns an empty float16 heatmap source
func NewFloat16HeatMaps() *Float16HeatMaps {
	return &Float16HeatMaps{}
}

// Set converts the raw float16 output of the current frame
func (f *Float16HeatMaps) Set(raw []uint16) {
	f.buf = Float16ToFloat32(f.buf, raw)
}

// HeatMaps returns the converted heatmap data
func (f *Float16HeatMaps) HeatMaps() []float32 {
	if f == nil {
		return nil
	}

	return f.buf
}
