package poserender

import (
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-poserender/device"
	"github.com/swdee/go-poserender/pose"
	"gocv.io/x/gocv"
)

var (
	testOutputSize   = image.Pt(64, 48)
	testHeatMapsSize = image.Pt(16, 12)
)

// kernelCall records a single kernel invocation
type kernelCall struct {
	kernel       string
	numberPeople int
	part         int
	scale        float32
	alpha        float32
	googly       bool
	blend        bool
	keypoints    []float32
}

// fakeKernels records kernel invocations and paints the frame so downloads
// can be observed
type fakeKernels struct {
	calls []kernelCall
	fail  bool
}

func (f *fakeKernels) record(img *device.Buffer, call kernelCall) error {
	if f.fail {
		return errors.New("kernel launch failed")
	}

	f.calls = append(f.calls, call)
	img.Mat().SetTo(gocv.NewScalar(1, 2, 3, 0))
	return nil
}

func (f *fakeKernels) RenderPose(img *device.Buffer, top *pose.Topology, numberPeople int,
	outputSize image.Point, keypoints *device.Buffer, googlyEyes, blend bool, alpha float32) error {

	data, err := keypoints.Floats()
	if err != nil {
		return err
	}

	kp := append([]float32(nil), data[:numberPeople*top.NumberBodyParts*3]...)

	return f.record(img, kernelCall{kernel: "pose", numberPeople: numberPeople,
		googly: googlyEyes, blend: blend, alpha: alpha, keypoints: kp})
}

func (f *fakeKernels) RenderBodyPart(img *device.Buffer, top *pose.Topology, outputSize image.Point,
	heatMaps []float32, heatMapsSize image.Point, scale float32, part int, alpha float32) error {
	return f.record(img, kernelCall{kernel: "bodypart", part: part, scale: scale, alpha: alpha})
}

func (f *fakeKernels) RenderBodyParts(img *device.Buffer, top *pose.Topology, outputSize image.Point,
	heatMaps []float32, heatMapsSize image.Point, scale float32, alpha float32) error {
	return f.record(img, kernelCall{kernel: "bodyparts", scale: scale, alpha: alpha})
}

func (f *fakeKernels) RenderPartAffinityFields(img *device.Buffer, top *pose.Topology,
	outputSize image.Point, heatMaps []float32, heatMapsSize image.Point, scale float32,
	alpha float32) error {
	return f.record(img, kernelCall{kernel: "pafs", scale: scale, alpha: alpha})
}

func (f *fakeKernels) RenderPartAffinityField(img *device.Buffer, top *pose.Topology,
	outputSize image.Point, heatMaps []float32, heatMapsSize image.Point, scale float32,
	part int, alpha float32) error {
	return f.record(img, kernelCall{kernel: "paf", part: part, scale: scale, alpha: alpha})
}

// newTestRenderer returns a renderer for the topology with fake kernels and
// heatmaps covering every channel
func newTestRenderer(t *testing.T, top *pose.Topology, opts ...Option) (*PoseRenderer, *fakeKernels) {
	t.Helper()

	kernels := &fakeKernels{}
	heatMaps := make(Float32HeatMaps, top.NumberChannels()*testHeatMapsSize.X*testHeatMapsSize.Y)

	opts = append([]Option{WithHeatMaps(heatMaps)}, opts...)

	r, err := NewPoseRenderer(top, PoseRendererDefaultParams(testOutputSize, testHeatMapsSize),
		kernels, opts...)
	require.NoError(t, err)
	require.NoError(t, r.InitializationOnThread())

	t.Cleanup(func() { r.Close() })

	return r, kernels
}

// newOutput returns a BGR frame of the test output size
func newOutput(t *testing.T) *gocv.Mat {
	t.Helper()

	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(100, 100, 100, 0),
		testOutputSize.Y, testOutputSize.X, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })

	return &m
}

// people returns a keypoint set of n people with increasing values
func people(t *testing.T, n, parts int) pose.KeypointSet {
	t.Helper()

	data := make([]float32, n*parts*3)
	for i := range data {
		data[i] = float32(i + 1)
	}

	set, err := pose.NewKeypointSet(data, n, parts)
	require.NoError(t, err)

	return set
}

func TestRenderSkeleton(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.COCO.Topology())
	out := newOutput(t)
	set := people(t, 2, 18)

	element, label, err := r.Render(out, set, InvalidScale)
	require.NoError(t, err)
	assert.Equal(t, 0, element)
	assert.Empty(t, label)

	require.Len(t, kernels.calls, 1)
	call := kernels.calls[0]
	assert.Equal(t, "pose", call.kernel)
	assert.Equal(t, 2, call.numberPeople)
	assert.Equal(t, set.Data, call.keypoints)
	assert.True(t, call.blend)
	assert.InDelta(t, DefaultAlphaKeypoint, call.alpha, 1e-6)
	assert.Equal(t, 2, r.keypoints.People())

	// rendered frame downloaded to host
	assert.Equal(t, []uint8{1, 2, 3}, []uint8(out.GetVecbAt(0, 0)))
	assert.False(t, r.Frame().Uploaded())
}

func TestRenderSkeletonUploadsOnlyNonEmptyKeypoints(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.COCO.Topology())
	r.SetBlendOriginalFrame(false)
	r.SetShowGooglyEyes(true)

	_, _, err := r.Render(newOutput(t), people(t, 1, 18), InvalidScale)
	require.NoError(t, err)
	assert.Equal(t, 1, r.keypoints.People())

	element, label, err := r.Render(newOutput(t), pose.KeypointSet{}, InvalidScale)
	require.NoError(t, err)
	assert.Equal(t, 0, element)
	assert.Empty(t, label)

	require.Len(t, kernels.calls, 2)
	assert.Equal(t, 0, kernels.calls[1].numberPeople)
	assert.True(t, kernels.calls[1].googly)
	assert.False(t, kernels.calls[1].blend)
	// no upload happened for the empty set
	assert.Equal(t, 1, r.keypoints.People())
}

func TestRenderSkipsEmptyBlendedSkeleton(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.COCO.Topology())
	out := newOutput(t)

	element, label, err := r.Render(out, pose.KeypointSet{}, InvalidScale)
	require.NoError(t, err)
	assert.Equal(t, 0, element)
	assert.Empty(t, label)
	assert.Empty(t, kernels.calls)

	// original frame untouched
	assert.Equal(t, []uint8{100, 100, 100}, []uint8(out.GetVecbAt(0, 0)))
}

func TestRenderBodyPartLabels(t *testing.T) {

	top := pose.COCO.Topology()
	r, kernels := newTestRenderer(t, top)

	for element := 1; element <= top.NumberBodyParts+1; element++ {
		r.Selector().Set(element)

		got, label, err := r.Render(newOutput(t), pose.KeypointSet{}, 2)
		require.NoError(t, err)
		assert.Equal(t, element, got)
		assert.Equal(t, r.Labels()[element-1], label)

		call := kernels.calls[len(kernels.calls)-1]
		assert.Equal(t, "bodypart", call.kernel)
		assert.Equal(t, element-1, call.part)
		assert.Equal(t, float32(2), call.scale)
		assert.InDelta(t, DefaultAlphaHeatMap, call.alpha, 1e-6)
	}

	assert.Equal(t, "Background", r.Labels()[top.NumberBodyParts])
}

func TestRenderCombinedLayers(t *testing.T) {

	top := pose.MPI.Topology()
	r, kernels := newTestRenderer(t, top)
	r.SetBlendOriginalFrame(false)

	r.Selector().Set(top.NumberBodyParts + 2)
	_, label, err := r.Render(newOutput(t), pose.KeypointSet{}, 1.5)
	require.NoError(t, err)
	assert.Equal(t, HeatMapsLabel, label)
	assert.Equal(t, "bodyparts", kernels.calls[0].kernel)
	assert.Equal(t, float32(1), kernels.calls[0].alpha)

	r.Selector().Set(top.NumberBodyParts + 3)
	_, label, err = r.Render(newOutput(t), pose.KeypointSet{}, 1.5)
	require.NoError(t, err)
	assert.Equal(t, PAFsLabel, label)
	assert.Equal(t, "pafs", kernels.calls[1].kernel)
}

func TestRenderPartAffinityFieldLabels(t *testing.T) {

	for _, m := range pose.Models() {
		t.Run(m.String(), func(t *testing.T) {

			top := m.Topology()
			r, kernels := newTestRenderer(t, top)

			for limb := range top.LimbPairs {
				element := top.NumberBodyParts + 4 + limb
				r.Selector().Set(element)

				got, label, err := r.Render(newOutput(t), pose.KeypointSet{}, 1)
				require.NoError(t, err)
				assert.Equal(t, element, got)
				assert.False(t, strings.Contains(label, "("), label)

				pair := top.LimbPairs[limb]
				assert.Equal(t, top.PartNames[pair.A]+"->"+top.PartNames[pair.B], label)

				call := kernels.calls[len(kernels.calls)-1]
				assert.Equal(t, "paf", call.kernel)
				assert.Equal(t, top.MapIdx[limb].A, call.part)
			}
		})
	}
}

func TestRenderFivePartTopology(t *testing.T) {

	top, err := pose.NewTopology("five", 5, []string{"nose", "neck", "a", "b", "c"},
		[]pose.Pair{{0, 1}}, []pose.Pair{{5, 6}}, nil, nil)
	require.NoError(t, err)

	r, kernels := newTestRenderer(t, top)

	// element 6 is the heatmap channel 5, labelled by the limb's X channel
	r.Selector().Set(6)
	_, label, err := r.Render(newOutput(t), pose.KeypointSet{}, 1)
	require.NoError(t, err)
	assert.Equal(t, "nose->neck(X)", label)
	assert.Equal(t, "nose->neck(X)", r.Labels()[5])

	// element 9 is the first limb's affinity field
	r.Selector().Set(9)
	_, label, err = r.Render(newOutput(t), pose.KeypointSet{}, 1)
	require.NoError(t, err)
	assert.Equal(t, "nose->neck", label)
	assert.Equal(t, 5, kernels.calls[1].part)

	// the selector wraps after the last element
	assert.Equal(t, 10, r.NumberElementsToRender())
	r.Selector().Set(10)
	assert.Equal(t, 0, r.Selector().Load())
}

func TestRenderEmptyOutput(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.COCO.Topology())
	empty := gocv.NewMat()
	defer empty.Close()

	element, label, err := r.Render(&empty, people(t, 1, 18), InvalidScale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.Equal(t, -1, element)
	assert.Empty(t, label)
	assert.Empty(t, kernels.calls)
	assert.Equal(t, 0, r.keypoints.People())
	assert.False(t, r.Frame().Uploaded())

	element, label = r.RenderPose(nil, pose.KeypointSet{}, InvalidScale)
	assert.Equal(t, -1, element)
	assert.Empty(t, label)
}

func TestRenderWrongOutputSize(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.COCO.Topology())
	out := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer out.Close()

	_, _, err := r.Render(&out, pose.KeypointSet{}, 1)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.Empty(t, kernels.calls)
}

func TestRenderInvalidScale(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.COCO.Topology())
	r.Selector().Set(1)

	for _, scale := range []float32{InvalidScale, 0, -3} {
		element, label := r.RenderPose(newOutput(t), pose.KeypointSet{}, scale)
		assert.Equal(t, -1, element)
		assert.Empty(t, label)
	}

	_, _, err := r.Render(newOutput(t), pose.KeypointSet{}, InvalidScale)
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, PreconditionViolation, rerr.Kind)
	assert.Equal(t, "pose_renderer.go", rerr.File)
	assert.NotZero(t, rerr.Line)

	assert.Empty(t, kernels.calls)
	assert.False(t, r.Frame().Uploaded())
}

func TestRenderWithoutHeatMaps(t *testing.T) {

	kernels := &fakeKernels{}
	r, err := NewPoseRenderer(pose.COCO.Topology(),
		PoseRendererDefaultParams(testOutputSize, testHeatMapsSize), kernels)
	require.NoError(t, err)
	defer r.Close()

	r.Selector().Set(3)
	_, _, err = r.Render(newOutput(t), pose.KeypointSet{}, 1)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.Empty(t, kernels.calls)
}

func TestRenderTooManyPeople(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.COCO.Topology())

	_, _, err := r.Render(newOutput(t), people(t, pose.MaxPeople+1, 18), InvalidScale)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.Empty(t, kernels.calls)
	assert.Equal(t, 0, r.keypoints.People())
	assert.False(t, r.Frame().Uploaded())
}

func TestRenderKeypointsWrongParts(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.COCO.Topology())

	_, _, err := r.Render(newOutput(t), people(t, 1, 15), InvalidScale)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.False(t, errors.Is(err, ErrResource))
	assert.Empty(t, kernels.calls)
	assert.False(t, r.Frame().Uploaded())
}

func TestRenderNilFloat16HeatMaps(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.COCO.Topology(),
		WithHeatMaps((*Float16HeatMaps)(nil)))
	r.Selector().Set(1)

	_, _, err := r.Render(newOutput(t), pose.KeypointSet{}, 1)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.Empty(t, kernels.calls)
}

func TestRenderElementOutOfRange(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.MPI.Topology(), WithSelector(NewSelector(500, 0)))

	element, label := r.RenderPose(newOutput(t), pose.KeypointSet{}, 1)
	assert.Equal(t, -1, element)
	assert.Empty(t, label)
	assert.Empty(t, kernels.calls)
}

func TestRenderKernelFailure(t *testing.T) {

	r, kernels := newTestRenderer(t, pose.COCO.Topology())
	kernels.fail = true

	_, _, err := r.Render(newOutput(t), people(t, 1, 18), InvalidScale)
	assert.True(t, errors.Is(err, ErrResource))
	assert.False(t, r.Frame().Uploaded())
}

func TestRenderIdempotentWithSharedFrame(t *testing.T) {

	frame := NewFrame(device.Host(), testOutputSize)
	defer frame.Close()

	r, kernels := newTestRenderer(t, pose.COCO.Topology(), WithFrame(frame, false))
	r.Selector().Set(2)
	out := newOutput(t)

	element1, label1, err := r.Render(out, pose.KeypointSet{}, 1)
	require.NoError(t, err)
	assert.True(t, frame.Uploaded())

	// host frame changes are not uploaded again within the same frame
	out.SetTo(gocv.NewScalar(200, 200, 200, 0))

	element2, label2, err := r.Render(out, pose.KeypointSet{}, 1)
	require.NoError(t, err)

	assert.Equal(t, element1, element2)
	assert.Equal(t, label1, label2)
	assert.Equal(t, "Neck", label2)
	assert.Len(t, kernels.calls, 2)
	assert.Equal(t, kernels.calls[0], kernels.calls[1])

	// not the last stage so the host frame is left alone
	assert.Equal(t, []uint8{200, 200, 200}, []uint8(out.GetVecbAt(0, 0)))

	// a last stage sharing the frame completes it
	last, _ := newTestRenderer(t, pose.COCO.Topology(), WithFrame(frame, true))
	last.SetBlendOriginalFrame(false)

	_, _, err = last.Render(out, pose.KeypointSet{}, InvalidScale)
	require.NoError(t, err)
	assert.False(t, frame.Uploaded())
	assert.Equal(t, []uint8{1, 2, 3}, []uint8(out.GetVecbAt(0, 0)))
}

func TestNewPoseRendererConfigurationErrors(t *testing.T) {

	params := PoseRendererDefaultParams(testOutputSize, testHeatMapsSize)

	_, err := NewPoseRenderer(nil, params, &fakeKernels{})
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = NewPoseRenderer(pose.COCO.Topology(), params, nil)
	assert.True(t, errors.Is(err, ErrConfiguration))

	bad := &pose.Topology{Name: "bad", NumberBodyParts: 2, PartNames: []string{"a", "b"},
		LimbPairs: []pose.Pair{{0, 1}}}
	_, err = NewPoseRenderer(bad, params, &fakeKernels{})
	assert.True(t, errors.Is(err, ErrConfiguration))

	// render pairs and eyes outside the body parts
	badEyes := &pose.Topology{Name: "badeyes", NumberBodyParts: 2, PartNames: []string{"a", "b"},
		LimbPairs: []pose.Pair{{0, 1}}, MapIdx: []pose.Pair{{2, 3}},
		RenderPairs: []pose.Pair{{0, 5}}, Eyes: []int{7}}
	_, err = NewPoseRenderer(badEyes, params, &fakeKernels{})
	assert.True(t, errors.Is(err, ErrConfiguration))

	frame := NewFrame(nil, image.Pt(1, 1))
	_, err = NewPoseRenderer(pose.COCO.Topology(), params, &fakeKernels{}, WithFrame(frame, true))
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestLayer(t *testing.T) {

	r, _ := newTestRenderer(t, pose.COCO.Topology())

	tests := []struct {
		element int
		kind    LayerKind
		channel int
		label   string
	}{
		{0, SkeletonLayer, 0, ""},
		{1, BodyPartLayer, 0, "Nose"},
		{19, BodyPartLayer, 18, "Background"},
		{20, BodyPartsLayer, 0, HeatMapsLabel},
		{21, PartAffinityFieldsLayer, 0, PAFsLabel},
		{22, PartAffinityFieldLayer, 31, "Neck->RShoulder"},
		{28, PartAffinityFieldLayer, 19, "Neck->RHip"},
		{40, PartAffinityFieldLayer, 45, "LShoulder->LEar"},
	}

	for _, tc := range tests {
		layer, err := r.Layer(tc.element)
		require.NoError(t, err)
		assert.Equal(t, tc.kind, layer.Kind, "element %d", tc.element)
		assert.Equal(t, tc.channel, layer.Channel, "element %d", tc.element)
		assert.Equal(t, tc.label, layer.Label, "element %d", tc.element)
	}

	_, err := r.Layer(41)
	assert.True(t, errors.Is(err, ErrPrecondition))

	_, err = r.Layer(-1)
	assert.True(t, errors.Is(err, ErrPrecondition))
}

func TestToggles(t *testing.T) {

	r, _ := newTestRenderer(t, pose.COCO.Topology())

	assert.True(t, r.BlendOriginalFrame())
	assert.False(t, r.ShowGooglyEyes())

	r.SetBlendOriginalFrame(false)
	r.SetShowGooglyEyes(true)
	assert.False(t, r.BlendOriginalFrame())
	assert.True(t, r.ShowGooglyEyes())

	r.SetAlphaHeatMap(2)
	assert.Equal(t, float32(1), r.AlphaHeatMap())
	r.SetAlphaKeypoint(-1)
	assert.Equal(t, float32(0), r.AlphaKeypoint())
}

func TestCloseIsIdempotent(t *testing.T) {

	r, err := NewPoseRenderer(pose.COCO.Topology(),
		PoseRendererDefaultParams(testOutputSize, testHeatMapsSize), &fakeKernels{})
	require.NoError(t, err)

	// never initialized
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}
