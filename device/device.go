/*
Package device manages the device resident memory used by the pose
renderer.  Memory is held in gocv Mats, the default Host device allocates
them in OpenCV managed memory and other allocators, such as a GPU backed
one, can be plugged in by implementing Device.
*/
package device

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

var (
	// ErrAllocation is returned when the device fails to allocate memory
	ErrAllocation = errors.New("device memory allocation failed")
	// ErrCapacity is returned when data does not fit in the buffer
	ErrCapacity = errors.New("data exceeds device buffer capacity")
	// ErrShape is returned when data does not have the layout of the buffer
	ErrShape = errors.New("data does not match device buffer layout")
	// ErrFreed is returned when using a buffer that has been freed
	ErrFreed = errors.New("device buffer has been freed")
	// ErrType is returned when the buffer element type does not match
	ErrType = errors.New("device buffer type mismatch")
)

// Device allocates device memory
type Device interface {
	// Name returns the device name, eg: "host"
	Name() string
	// Alloc allocates a rows x cols buffer of the given Mat type
	Alloc(rows, cols int, mt gocv.MatType) (*Buffer, error)
}

// hostDevice allocates buffers in OpenCV managed memory
type hostDevice struct{}

// Host returns the device that allocates buffers in OpenCV managed memory
func Host() Device {
	return hostDevice{}
}

// Name returns the device name
func (hostDevice) Name() string {
	return "host"
}

// Alloc allocates a rows x cols buffer of the given Mat type
func (hostDevice) Alloc(rows, cols int, mt gocv.MatType) (*Buffer, error) {

	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrAllocation, rows, cols)
	}

	mat := gocv.NewMatWithSize(rows, cols, mt)

	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: %dx%d type %d", ErrAllocation, rows, cols, mt)
	}

	return NewBuffer(mat), nil
}

// Buffer is a block of device memory backed by a gocv Mat
type Buffer struct {
	mat   gocv.Mat
	freed bool
}

// NewBuffer wraps the Mat as device memory, the Buffer takes ownership of
// the Mat and closes it when freed
func NewBuffer(mat gocv.Mat) *Buffer {
	return &Buffer{mat: mat}
}

// Mat returns the Mat holding the buffer memory
func (b *Buffer) Mat() *gocv.Mat {
	return &b.mat
}

// Len returns the number of elements (all channels) the buffer holds
func (b *Buffer) Len() int {
	if b == nil || b.freed {
		return 0
	}

	return b.mat.Total() * b.mat.Channels()
}

// Freed reports whether the buffer memory has been released
func (b *Buffer) Freed() bool {
	return b == nil || b.freed
}

// Floats returns the buffer memory as a float32 slice, the buffer must be
// of a 32 bit float type
func (b *Buffer) Floats() ([]float32, error) {

	if b.Freed() {
		return nil, ErrFreed
	}

	if b.mat.Type()&0x7 != gocv.MatTypeCV32F {
		return nil, fmt.Errorf("%w: buffer is type %d, not float32", ErrType, b.mat.Type())
	}

	data, err := b.mat.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error accessing buffer data: %w", err)
	}

	return data, nil
}

// UploadFloats copies host floats to the start of the buffer
func (b *Buffer) UploadFloats(src []float32) error {

	data, err := b.Floats()

	if err != nil {
		return err
	}

	if len(src) > len(data) {
		return fmt.Errorf("%w: %d floats into buffer of %d", ErrCapacity, len(src), len(data))
	}

	copy(data, src)
	return nil
}

// Upload copies the host Mat into the buffer, sizes and types must match
func (b *Buffer) Upload(src gocv.Mat) error {

	if b.Freed() {
		return ErrFreed
	}

	if src.Rows() != b.mat.Rows() || src.Cols() != b.mat.Cols() {
		return fmt.Errorf("%w: host %dx%d, device %dx%d", ErrCapacity,
			src.Cols(), src.Rows(), b.mat.Cols(), b.mat.Rows())
	}

	if src.Type() != b.mat.Type() {
		return fmt.Errorf("%w: host type %d, device type %d", ErrType, src.Type(), b.mat.Type())
	}

	src.CopyTo(&b.mat)
	return nil
}

// Download copies the buffer into the host Mat
func (b *Buffer) Download(dst *gocv.Mat) error {

	if b.Freed() {
		return ErrFreed
	}

	b.mat.CopyTo(dst)
	return nil
}

// Close frees the buffer memory.  Closing a nil or already freed buffer is
// a no-op.
func (b *Buffer) Close() error {

	if b == nil || b.freed {
		return nil
	}

	b.freed = true
	return b.mat.Close()
}
