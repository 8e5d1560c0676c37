package device

import (
	"fmt"

	"github.com/swdee/go-poserender/pose"
	"gocv.io/x/gocv"
)

// KeypointBuffer owns the device buffer that keypoints are uploaded to for
// skeleton rendering.  It is sized for pose.MaxPeople people of the
// topology's body parts, allocated once and reused every frame.
type KeypointBuffer struct {
	dev    Device
	parts  int
	buf    *Buffer
	people int
	closed bool
}

// NewKeypointBuffer returns a KeypointBuffer for the given number of body
// parts.  Memory is not allocated until Init or the first Upload.
func NewKeypointBuffer(dev Device, numberBodyParts int) *KeypointBuffer {
	if dev == nil {
		dev = Host()
	}

	return &KeypointBuffer{
		dev:   dev,
		parts: numberBodyParts,
	}
}

// Capacity returns the number of floats the buffer holds once allocated
func (k *KeypointBuffer) Capacity() int {
	return pose.MaxPeople * k.parts * 3
}

// SizeBytes returns the size of the buffer in bytes once allocated
func (k *KeypointBuffer) SizeBytes() int {
	return k.Capacity() * 4
}

// Allocated reports whether the device memory has been allocated
func (k *KeypointBuffer) Allocated() bool {
	return k.buf != nil
}

// Init allocates the device memory, calling it again after the buffer has
// been allocated is a no-op
func (k *KeypointBuffer) Init() error {

	if k.closed {
		return ErrFreed
	}

	if k.buf != nil {
		return nil
	}

	if k.parts <= 0 {
		return fmt.Errorf("%w: keypoint buffer for %d body parts", ErrAllocation, k.parts)
	}

	buf, err := k.dev.Alloc(pose.MaxPeople*k.parts, 3, gocv.MatTypeCV32F)

	if err != nil {
		return fmt.Errorf("error allocating %d byte keypoint buffer on %s device: %w",
			k.SizeBytes(), k.dev.Name(), err)
	}

	k.buf = buf
	return nil
}

// Upload copies the keypoints of all people to the device.  The buffer is
// allocated on first use.
func (k *KeypointBuffer) Upload(set pose.KeypointSet) error {

	if set.Parts != k.parts && !set.Empty() {
		return fmt.Errorf("%w: keypoint set has %d parts, buffer is for %d", ErrShape,
			set.Parts, k.parts)
	}

	if set.People > pose.MaxPeople {
		return fmt.Errorf("%w: %d people, maximum is %d", ErrCapacity, set.People, pose.MaxPeople)
	}

	if err := k.Init(); err != nil {
		return err
	}

	n := set.People * k.parts * 3

	if len(set.Data) < n {
		return fmt.Errorf("%w: keypoint set holds %d floats, expected %d", ErrShape,
			len(set.Data), n)
	}

	if err := k.buf.UploadFloats(set.Data[:n]); err != nil {
		return fmt.Errorf("error copying keypoints to device: %w", err)
	}

	k.people = set.People
	return nil
}

// People returns the number of people in the last upload
func (k *KeypointBuffer) People() int {
	return k.people
}

// Buffer returns the device buffer, nil if not yet allocated
func (k *KeypointBuffer) Buffer() *Buffer {
	return k.buf
}

// Close frees the device memory.  It must only be called once rendering
// that references the buffer has finished.  Closing an unallocated or
// already closed buffer is a no-op.
func (k *KeypointBuffer) Close() error {

	if k.closed {
		return nil
	}

	k.closed = true
	buf := k.buf
	k.buf = nil

	return buf.Close()
}
