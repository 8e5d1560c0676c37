package poserender

import (
	"fmt"
	"image"
	"math"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/swdee/go-poserender/device"
	"gocv.io/x/gocv"
)

// Default alpha blending weights
const (
	DefaultAlphaKeypoint float32 = 0.6
	DefaultAlphaHeatMap  float32 = 0.7
)

// Frame is the device image shared by all rendering stages of a pipeline.
// The host frame is uploaded once per frame by the first stage needing it
// and downloaded by the last stage.  A Frame must only be used from the
// rendering goroutine.
type Frame struct {
	dev      device.Device
	size     image.Point
	buf      *device.Buffer
	uploaded bool
}

// NewFrame returns a Frame for BGR images of the given size, device memory
// is allocated on Init or first upload
func NewFrame(dev device.Device, size image.Point) *Frame {
	if dev == nil {
		dev = device.Host()
	}

	return &Frame{dev: dev, size: size}
}

// Size returns the frame dimensions
func (f *Frame) Size() image.Point {
	return f.size
}

// Init allocates the device image, calling it again is a no-op
func (f *Frame) Init() error {

	if f.buf != nil {
		return nil
	}

	buf, err := f.dev.Alloc(f.size.Y, f.size.X, gocv.MatTypeCV8UC3)

	if err != nil {
		return fmt.Errorf("error allocating %dx%d frame on %s device: %w",
			f.size.X, f.size.Y, f.dev.Name(), err)
	}

	f.buf = buf
	return nil
}

// Buffer returns the device image, nil until allocated
func (f *Frame) Buffer() *device.Buffer {
	return f.buf
}

// Uploaded reports whether the current frame is on the device
func (f *Frame) Uploaded() bool {
	return f.uploaded
}

// upload copies the host frame to the device unless it was already copied
// for this frame
func (f *Frame) upload(host gocv.Mat) error {

	if f.uploaded {
		return nil
	}

	if err := f.Init(); err != nil {
		return err
	}

	if err := f.buf.Upload(host); err != nil {
		return fmt.Errorf("error copying frame to device: %w", err)
	}

	f.uploaded = true
	return nil
}

// download copies the device image to the host and ends the frame
func (f *Frame) download(host *gocv.Mat) error {

	if !f.uploaded {
		return nil
	}

	f.uploaded = false

	if err := f.buf.Download(host); err != nil {
		return fmt.Errorf("error copying frame to host: %w", err)
	}

	return nil
}

// discard drops the device copy of the current frame so the next frame
// is uploaded again
func (f *Frame) discard() {
	f.uploaded = false
}

// Close frees the device image
func (f *Frame) Close() error {
	buf := f.buf
	f.buf = nil
	f.uploaded = false
	return buf.Close()
}

// Renderer holds the state shared by rendering stages, the element selector,
// blending weights and the stage's position in the pipeline
type Renderer struct {
	frame    *Frame
	selector *Selector
	// alpha weights stored as float32 bits so they can be changed from a
	// control goroutine
	alphaKeypoint atomic.Uint32
	alphaHeatMap  atomic.Uint32
	isLast        bool
}

// NewRenderer returns a rendering stage drawing into frame.  isLast marks
// the stage that copies the rendered frame back to the host.
func NewRenderer(frame *Frame, selector *Selector, alphaKeypoint, alphaHeatMap float32,
	isLast bool) *Renderer {

	r := &Renderer{
		frame:    frame,
		selector: selector,
		isLast:   isLast,
	}

	r.SetAlphaKeypoint(alphaKeypoint)
	r.SetAlphaHeatMap(alphaHeatMap)

	return r
}

// Frame returns the shared device frame
func (r *Renderer) Frame() *Frame {
	return r.frame
}

// Selector returns the element selector
func (r *Renderer) Selector() *Selector {
	return r.selector
}

// IsLastRenderer reports whether this stage downloads the frame to the host
func (r *Renderer) IsLastRenderer() bool {
	return r.isLast
}

// AlphaKeypoint returns the blending weight of rendered keypoints
func (r *Renderer) AlphaKeypoint() float32 {
	return math.Float32frombits(r.alphaKeypoint.Load())
}

// SetAlphaKeypoint sets the blending weight of rendered keypoints
func (r *Renderer) SetAlphaKeypoint(alpha float32) {
	r.alphaKeypoint.Store(math.Float32bits(clampAlpha(alpha)))
}

// AlphaHeatMap returns the blending weight of rendered heatmaps
func (r *Renderer) AlphaHeatMap() float32 {
	return math.Float32frombits(r.alphaHeatMap.Load())
}

// SetAlphaHeatMap sets the blending weight of rendered heatmaps
func (r *Renderer) SetAlphaHeatMap(alpha float32) {
	r.alphaHeatMap.Store(math.Float32bits(clampAlpha(alpha)))
}

// UploadIfNeeded copies the host frame to the device if no earlier stage
// has done so for this frame
func (r *Renderer) UploadIfNeeded(host gocv.Mat) error {
	return r.frame.upload(host)
}

// DownloadIfLast copies the rendered device frame back to the host when
// this is the last stage of the pipeline
func (r *Renderer) DownloadIfLast(host *gocv.Mat) error {

	if !r.isLast {
		return nil
	}

	return r.frame.download(host)
}

// clampAlpha limits an alpha weight to [0,1]
func clampAlpha(alpha float32) float32 {
	switch {
	case math32.IsNaN(alpha):
		return 0
	case alpha < 0:
		return 0
	case alpha > 1:
		return 1
	}

	return alpha
}
