package poserender

import (
	"image"

	"github.com/swdee/go-poserender/device"
	"github.com/swdee/go-poserender/pose"
)

// Kernels draws the selectable render layers into the device frame.  The
// render package provides the gocv implementation.
type Kernels interface {
	// RenderPose draws the skeleton of numberPeople people from the device
	// keypoint buffer
	RenderPose(img *device.Buffer, top *pose.Topology, numberPeople int,
		outputSize image.Point, keypoints *device.Buffer, googlyEyes, blend bool,
		alpha float32) error

	// RenderBodyPart draws the heatmap of a single channel
	RenderBodyPart(img *device.Buffer, top *pose.Topology, outputSize image.Point,
		heatMaps []float32, heatMapsSize image.Point, scale float32, part int,
		alpha float32) error

	// RenderBodyParts draws the heatmaps of all body parts combined
	RenderBodyParts(img *device.Buffer, top *pose.Topology, outputSize image.Point,
		heatMaps []float32, heatMapsSize image.Point, scale float32,
		alpha float32) error

	// RenderPartAffinityFields draws the affinity fields of all limbs combined
	RenderPartAffinityFields(img *device.Buffer, top *pose.Topology,
		outputSize image.Point, heatMaps []float32, heatMapsSize image.Point,
		scale float32, alpha float32) error

	// RenderPartAffinityField draws the affinity field of the limb whose X
	// component is channel part
	RenderPartAffinityField(img *device.Buffer, top *pose.Topology,
		outputSize image.Point, heatMaps []float32, heatMapsSize image.Point,
		scale float32, part int, alpha float32) error
}

// HeatMapSource provides the network heatmaps and affinity fields of the
// current frame, laid out channel by channel in network output order
type HeatMapSource interface {
	HeatMaps() []float32
}

// Float32HeatMaps is a HeatMapSource over float32 network output
type Float32HeatMaps []float32

// HeatMaps returns the heatmap data
func (h Float32HeatMaps) HeatMaps() []float32 {
	return h
}
