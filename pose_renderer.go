package poserender

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/swdee/go-poserender/device"
	"github.com/swdee/go-poserender/pose"
	"gocv.io/x/gocv"
)

// InvalidScale is the scaleNetToOutput value passed when no network output
// scale is available, eg: when only keypoints are being rendered
const InvalidScale float32 = -1

// Labels of the combined layers
const (
	HeatMapsLabel = "Heatmaps"
	PAFsLabel     = "PAFs (Part Affinity Fields)"
)

// LayerKind is the kind of layer selected for rendering
type LayerKind int

const (
	// SkeletonLayer draws the keypoints and limbs of every person
	SkeletonLayer LayerKind = iota
	// BodyPartLayer draws the heatmap of one body part or the background
	BodyPartLayer
	// BodyPartsLayer draws all body part heatmaps combined
	BodyPartsLayer
	// PartAffinityFieldsLayer draws all affinity fields combined
	PartAffinityFieldsLayer
	// PartAffinityFieldLayer draws the affinity field of one limb
	PartAffinityFieldLayer
)

// String returns the layer kind name
func (k LayerKind) String() string {
	switch k {
	case SkeletonLayer:
		return "skeleton"
	case BodyPartLayer:
		return "body part"
	case BodyPartsLayer:
		return "body parts"
	case PartAffinityFieldsLayer:
		return "part affinity fields"
	case PartAffinityFieldLayer:
		return "part affinity field"
	default:
		return fmt.Sprintf("LayerKind(%d)", int(k))
	}
}

// Layer is the resolved meaning of a selected element
type Layer struct {
	// Element is the selected element number
	Element int
	Kind    LayerKind
	// Channel is the network output channel rendered for BodyPartLayer and
	// the X component channel for PartAffinityFieldLayer
	Channel int
	// Label is the human readable name of the layer, empty for the skeleton
	Label string
}

// PoseRendererParams defines the configuration of a PoseRenderer
type PoseRendererParams struct {
	// HeatMapsSize is the width and height of each network output channel
	HeatMapsSize image.Point
	// OutputSize is the width and height of the rendered frame
	OutputSize image.Point
	// BlendOriginalFrame draws layers over the original frame, otherwise
	// layers are drawn on their own
	BlendOriginalFrame bool
	// AlphaKeypoint is the blending weight of the skeleton
	AlphaKeypoint float32
	// AlphaHeatMap is the blending weight of heatmaps and affinity fields
	AlphaHeatMap float32
	// ElementToRender is the initially selected element
	ElementToRender int
	// GooglyEyes enables the novelty googly eyes on the skeleton
	GooglyEyes bool
}

// PoseRendererDefaultParams returns params for the given frame and network
// output sizes with blending enabled, default alpha weights and the
// skeleton selected
func PoseRendererDefaultParams(outputSize, heatMapsSize image.Point) PoseRendererParams {
	return PoseRendererParams{
		HeatMapsSize:       heatMapsSize,
		OutputSize:         outputSize,
		BlendOriginalFrame: true,
		AlphaKeypoint:      DefaultAlphaKeypoint,
		AlphaHeatMap:       DefaultAlphaHeatMap,
	}
}

// Option configures a PoseRenderer during creation
type Option func(*options)

// options holds the optional collaborators of a PoseRenderer
type options struct {
	dev      device.Device
	frame    *Frame
	isLast   bool
	selector *Selector
	heatMaps HeatMapSource
}

// WithDevice sets the device keypoint and frame memory is allocated on
func WithDevice(dev device.Device) Option {
	return func(o *options) {
		o.dev = dev
	}
}

// WithFrame shares a device frame with other rendering stages.  isLast
// marks this renderer as the stage that copies the frame back to the host.
// The caller owns the frame and must close it.
func WithFrame(frame *Frame, isLast bool) Option {
	return func(o *options) {
		o.frame = frame
		o.isLast = isLast
	}
}

// WithSelector uses an externally owned element selector, eg: one shared
// with a control server
func WithSelector(s *Selector) Option {
	return func(o *options) {
		o.selector = s
	}
}

// WithHeatMaps sets the source of network heatmaps
func WithHeatMaps(src HeatMapSource) Option {
	return func(o *options) {
		o.heatMaps = src
	}
}

// PoseRenderer renders one selectable layer of pose estimation output per
// frame: the skeleton, a body part heatmap, the combined heatmaps, the
// combined Part Affinity Fields or the affinity field of a single limb.
// Rendering methods must be called from a single goroutine, the toggles
// and the selector may be changed from any goroutine.
type PoseRenderer struct {
	*Renderer
	params    PoseRendererParams
	top       *pose.Topology
	labels    LabelTable
	kernels   Kernels
	heatMaps  HeatMapSource
	keypoints *device.KeypointBuffer
	ownFrame  bool
	blend     atomic.Bool
	googly    atomic.Bool
}

// NewPoseRenderer returns a renderer for the given topology.  A malformed
// topology returns a ConfigurationError.
func NewPoseRenderer(top *pose.Topology, params PoseRendererParams, kernels Kernels,
	opts ...Option) (*PoseRenderer, error) {

	const op = "NewPoseRenderer"

	if top == nil {
		return nil, errorf(ConfigurationError, op, "nil topology")
	}

	if err := top.Validate(); err != nil {
		return nil, newError(ConfigurationError, op, err)
	}

	if kernels == nil {
		return nil, errorf(ConfigurationError, op, "nil render kernels")
	}

	if params.OutputSize.X <= 0 || params.OutputSize.Y <= 0 {
		return nil, errorf(ConfigurationError, op, "invalid output size %dx%d",
			params.OutputSize.X, params.OutputSize.Y)
	}

	labels, err := BuildLabels(top)

	if err != nil {
		return nil, err
	}

	o := options{isLast: true}

	for _, opt := range opts {
		opt(&o)
	}

	if o.dev == nil {
		o.dev = device.Host()
	}

	ownFrame := false

	if o.frame == nil {
		o.frame = NewFrame(o.dev, params.OutputSize)
		ownFrame = true
	} else if o.frame.Size() != params.OutputSize {
		return nil, errorf(ConfigurationError, op, "shared frame is %v, output size is %v",
			o.frame.Size(), params.OutputSize)
	}

	if o.selector == nil {
		o.selector = NewSelector(params.ElementToRender, top.NumberElementsToRender())
	}

	r := &PoseRenderer{
		Renderer: NewRenderer(o.frame, o.selector, params.AlphaKeypoint,
			params.AlphaHeatMap, o.isLast),
		params:    params,
		top:       top,
		labels:    labels,
		kernels:   kernels,
		heatMaps:  o.heatMaps,
		keypoints: device.NewKeypointBuffer(o.dev, top.NumberBodyParts),
		ownFrame:  ownFrame,
	}

	r.blend.Store(params.BlendOriginalFrame)
	r.googly.Store(params.GooglyEyes)

	return r, nil
}

// Topology returns the topology being rendered
func (r *PoseRenderer) Topology() *pose.Topology {
	return r.top
}

// Labels returns the label table of the topology
func (r *PoseRenderer) Labels() LabelTable {
	return r.labels
}

// NumberElementsToRender returns the number of selectable elements
func (r *PoseRenderer) NumberElementsToRender() int {
	return r.top.NumberElementsToRender()
}

// BlendOriginalFrame reports whether layers are blended over the frame
func (r *PoseRenderer) BlendOriginalFrame() bool {
	return r.blend.Load()
}

// SetBlendOriginalFrame sets whether layers are blended over the frame,
// effective from the next frame
func (r *PoseRenderer) SetBlendOriginalFrame(blend bool) {
	r.blend.Store(blend)
}

// ShowGooglyEyes reports whether googly eyes are drawn
func (r *PoseRenderer) ShowGooglyEyes() bool {
	return r.googly.Load()
}

// SetShowGooglyEyes sets whether googly eyes are drawn, effective from the
// next frame
func (r *PoseRenderer) SetShowGooglyEyes(show bool) {
	r.googly.Store(show)
}

// SetHeatMapSource replaces the heatmap source, it must be called from the
// rendering goroutine
func (r *PoseRenderer) SetHeatMapSource(src HeatMapSource) {
	r.heatMaps = src
}

// InitializationOnThread allocates device memory, it is called once on the
// rendering goroutine before the first frame
func (r *PoseRenderer) InitializationOnThread() error {

	const op = "PoseRenderer.InitializationOnThread"

	Logger().Debug("Starting initialization on thread.")

	if err := r.frame.Init(); err != nil {
		return newError(ResourceError, op, err)
	}

	if err := r.keypoints.Init(); err != nil {
		return newError(ResourceError, op, err)
	}

	Logger().Debug("Finished initialization on thread.",
		"keypointBufferBytes", r.keypoints.SizeBytes(),
		"model", r.top.Name,
	)

	return nil
}

// Close frees device memory.  It must be called after the rendering
// goroutine has stopped.
func (r *PoseRenderer) Close() error {

	err := r.keypoints.Close()

	if r.ownFrame {
		if ferr := r.frame.Close(); ferr != nil && err == nil {
			err = ferr
		}
	}

	if err != nil {
		Logger().Warn("Error freeing device memory", "error", err)
		return newError(ResourceError, "PoseRenderer.Close", err)
	}

	return nil
}

// Layer resolves the given element number to the layer it selects
func (r *PoseRenderer) Layer(element int) (Layer, error) {

	const op = "PoseRenderer.Layer"

	// channel boundary, the body parts plus background
	numberBodyPartsPlusBkg := r.top.NumberBodyParts + 1

	switch {
	case element < 0:
		return Layer{}, errorf(PreconditionViolation, op, "negative element %d", element)

	case element == 0:
		return Layer{Element: element, Kind: SkeletonLayer}, nil

	case element <= numberBodyPartsPlusBkg:
		channel := element - 1
		label, ok := r.labels.Label(channel)

		if !ok {
			return Layer{}, errorf(PreconditionViolation, op, "no label for channel %d", channel)
		}

		return Layer{Element: element, Kind: BodyPartLayer, Channel: channel, Label: label}, nil

	case element == numberBodyPartsPlusBkg+1:
		return Layer{Element: element, Kind: BodyPartsLayer, Label: HeatMapsLabel}, nil

	case element == numberBodyPartsPlusBkg+2:
		return Layer{Element: element, Kind: PartAffinityFieldsLayer, Label: PAFsLabel}, nil

	default:
		limb := element - numberBodyPartsPlusBkg - 3

		if limb >= len(r.top.MapIdx) {
			return Layer{}, errorf(PreconditionViolation, op,
				"element %d selects limb %d, topology %s has %d limbs",
				element, limb, r.top.Name, len(r.top.MapIdx))
		}

		channel := r.top.MapIdx[limb].A
		label, ok := r.labels.Label(channel)

		if !ok {
			return Layer{}, errorf(PreconditionViolation, op, "no label for channel %d", channel)
		}

		return Layer{Element: element, Kind: PartAffinityFieldLayer, Channel: channel,
			Label: limbName(label)}, nil
	}
}

// RenderPose renders the selected layer into outputData and returns the
// selected element and its label.  On failure the error is logged and
// (-1, "") is returned, outputData is then left as it was.
func (r *PoseRenderer) RenderPose(outputData *gocv.Mat, poseKeypoints pose.KeypointSet,
	scaleNetToOutput float32) (int, string) {

	element, label, err := r.Render(outputData, poseKeypoints, scaleNetToOutput)

	if err != nil {
		logError(err)
		return -1, ""
	}

	return element, label
}

// Render renders the selected layer into outputData and returns the selected
// element and its label, or an *Error describing why nothing was rendered
func (r *PoseRenderer) Render(outputData *gocv.Mat, poseKeypoints pose.KeypointSet,
	scaleNetToOutput float32) (int, string, error) {

	const op = "PoseRenderer.Render"

	if outputData == nil || outputData.Empty() {
		return -1, "", errorf(PreconditionViolation, op, "empty outputData")
	}

	if outputData.Cols() != r.params.OutputSize.X || outputData.Rows() != r.params.OutputSize.Y ||
		outputData.Type() != gocv.MatTypeCV8UC3 {
		return -1, "", errorf(PreconditionViolation, op,
			"outputData is %dx%d type %d, expected %dx%d BGR", outputData.Cols(),
			outputData.Rows(), outputData.Type(), r.params.OutputSize.X, r.params.OutputSize.Y)
	}

	element := r.selector.Load()
	numberPeople := poseKeypoints.People
	blend := r.blend.Load()

	layer, err := r.Layer(element)

	if err != nil {
		return -1, "", err
	}

	// nothing to draw over the original frame
	if numberPeople > 0 || element != 0 || !blend {

		if layer.Kind == SkeletonLayer && numberPeople > pose.MaxPeople {
			return -1, "", errorf(PreconditionViolation, op, "%d people, maximum is %d",
				numberPeople, pose.MaxPeople)
		}

		if layer.Kind == SkeletonLayer && !poseKeypoints.Empty() &&
			poseKeypoints.Parts != r.top.NumberBodyParts {
			return -1, "", errorf(PreconditionViolation, op,
				"keypoints have %d parts, topology %s has %d", poseKeypoints.Parts, r.top.Name,
				r.top.NumberBodyParts)
		}

		if layer.Kind != SkeletonLayer {
			if !validScale(scaleNetToOutput) {
				return -1, "", errorf(PreconditionViolation, op,
					"non valid scaleNetToOutput %v", scaleNetToOutput)
			}

			if r.heatMaps == nil || len(r.heatMaps.HeatMaps()) == 0 {
				return -1, "", errorf(PreconditionViolation, op, "no heatmaps to render %s",
					layer.Kind)
			}
		}

		if err := r.UploadIfNeeded(*outputData); err != nil {
			return -1, "", newError(ResourceError, op, err)
		}

		if err := r.dispatch(layer, poseKeypoints, scaleNetToOutput, blend); err != nil {
			r.frame.discard()
			return -1, "", err
		}
	}

	if err := r.DownloadIfLast(outputData); err != nil {
		return -1, "", newError(ResourceError, op, err)
	}

	return element, layer.Label, nil
}

// dispatch invokes the kernel drawing the layer
func (r *PoseRenderer) dispatch(layer Layer, poseKeypoints pose.KeypointSet,
	scaleNetToOutput float32, blend bool) error {

	const op = "PoseRenderer.dispatch"

	img := r.frame.Buffer()
	outputSize := r.params.OutputSize
	var err error

	if layer.Kind == SkeletonLayer {
		if !poseKeypoints.Empty() {
			if err := r.keypoints.Upload(poseKeypoints); err != nil {
				if errors.Is(err, device.ErrShape) || errors.Is(err, device.ErrCapacity) {
					return newError(PreconditionViolation, op, err)
				}

				return newError(ResourceError, op, err)
			}
		} else if err := r.keypoints.Init(); err != nil {
			return newError(ResourceError, op, err)
		}

		err = r.kernels.RenderPose(img, r.top, poseKeypoints.People, outputSize,
			r.keypoints.Buffer(), r.googly.Load(), blend, r.AlphaKeypoint())

		if err != nil {
			return newError(ResourceError, op, fmt.Errorf("error rendering skeleton: %w", err))
		}

		return nil
	}

	alpha := float32(1)

	if blend {
		alpha = r.AlphaHeatMap()
	}

	heatMaps := r.heatMaps.HeatMaps()
	heatMapsSize := r.params.HeatMapsSize

	switch layer.Kind {
	case BodyPartLayer:
		err = r.kernels.RenderBodyPart(img, r.top, outputSize, heatMaps, heatMapsSize,
			scaleNetToOutput, layer.Channel, alpha)

	case BodyPartsLayer:
		err = r.kernels.RenderBodyParts(img, r.top, outputSize, heatMaps, heatMapsSize,
			scaleNetToOutput, alpha)

	case PartAffinityFieldsLayer:
		err = r.kernels.RenderPartAffinityFields(img, r.top, outputSize, heatMaps,
			heatMapsSize, scaleNetToOutput, alpha)

	case PartAffinityFieldLayer:
		err = r.kernels.RenderPartAffinityField(img, r.top, outputSize, heatMaps,
			heatMapsSize, scaleNetToOutput, layer.Channel, alpha)
	}

	if err != nil {
		return newError(ResourceError, op, fmt.Errorf("error rendering %s: %w", layer.Kind, err))
	}

	return nil
}

// validScale reports whether the net to output scale can be used
func validScale(scale float32) bool {
	return scale != InvalidScale && !math32.IsNaN(scale) && !math32.IsInf(scale, 0) && scale > 0
}
