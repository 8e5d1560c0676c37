package render

import (
	"errors"
	"fmt"
	"image"

	"github.com/swdee/go-poserender/device"
	"gocv.io/x/gocv"
)

var (
	// ErrFrame is returned when the device frame can not be drawn on
	ErrFrame = errors.New("invalid device frame")
	// ErrHeatMaps is returned when the heatmap data is too short for the
	// requested channels
	ErrHeatMaps = errors.New("heatmap data too short")
	// ErrKeypoints is returned when the keypoint buffer is too short for the
	// number of people
	ErrKeypoints = errors.New("keypoint buffer too short")
)

// Params defines the drawing parameters of the render kernels
type Params struct {
	// RenderThreshold is the minimum score a body part must have to be drawn
	RenderThreshold float32
	// ThicknessCircleRatio is the joint circle thickness relative to the
	// square root of the frame area
	ThicknessCircleRatio float32
	// ThicknessLineRatio is the limb thickness relative to the joint circle
	ThicknessLineRatio float32
	// GooglyEyeRatio is the eye radius relative to the joint radius when
	// googly eyes are drawn
	GooglyEyeRatio float32
	// Colormap applied to heatmaps
	Colormap gocv.ColormapTypes
	// NormalizeHeatMaps stretches each heatmap over its own min/max range
	// rather than treating values as confidences in [0,1]
	NormalizeHeatMaps bool
}

// DefaultParams returns the default drawing parameters
func DefaultParams() Params {
	return Params{
		RenderThreshold:      0.05,
		ThicknessCircleRatio: 1.0 / 75.0,
		ThicknessLineRatio:   0.75,
		GooglyEyeRatio:       3,
		Colormap:             gocv.ColormapJet,
		NormalizeHeatMaps:    false,
	}
}

// Kernels draws pose layers into device frames backed by gocv Mats
type Kernels struct {
	// Params are the drawing parameters
	Params Params
	// floatPool holds scratch buffers for heatmap arithmetic
	floatPool *bufferPool[float64]
	// bytePool holds scratch buffers for 8 bit maps
	bytePool *bufferPool[uint8]
}

const (
	poolChannel = "channel"
	poolAccX    = "accX"
	poolAccY    = "accY"
	poolMap     = "map"
)

// New returns the render kernels with the given parameters
func New(p Params) *Kernels {
	return &Kernels{
		Params:    p,
		floatPool: newBufferPool[float64](),
		bytePool:  newBufferPool[uint8](),
	}
}

// frameMat returns the frame Mat of the device buffer after checking it is a
// BGR image of outputSize
func frameMat(img *device.Buffer, outputSize image.Point) (*gocv.Mat, error) {

	if img.Freed() {
		return nil, fmt.Errorf("%w: %w", ErrFrame, device.ErrFreed)
	}

	mat := img.Mat()

	if mat.Empty() || mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("%w: frame must be a non empty BGR image", ErrFrame)
	}

	if mat.Cols() != outputSize.X || mat.Rows() != outputSize.Y {
		return nil, fmt.Errorf("%w: frame is %dx%d, output size %dx%d", ErrFrame,
			mat.Cols(), mat.Rows(), outputSize.X, outputSize.Y)
	}

	return mat, nil
}

// blendOver draws overlay on top of the frame with the given alpha
func blendOver(frame *gocv.Mat, overlay gocv.Mat, alpha float32) {

	if alpha >= 1 {
		overlay.CopyTo(frame)
		return
	}

	if alpha <= 0 {
		return
	}

	gocv.AddWeighted(overlay, float64(alpha), *frame, float64(1-alpha), 0, frame)
}
