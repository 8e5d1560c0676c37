package render

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/swdee/go-poserender/device"
	"github.com/swdee/go-poserender/pose"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
)

// RenderBodyPart draws the heatmap of channel part scaled onto the frame
func (k *Kernels) RenderBodyPart(img *device.Buffer, top *pose.Topology, outputSize image.Point,
	heatMaps []float32, heatMapsSize image.Point, scale float32, part int,
	alpha float32) error {

	frame, err := frameMat(img, outputSize)

	if err != nil {
		return err
	}

	if err := checkChannels(heatMaps, heatMapsSize, part); err != nil {
		return err
	}

	plane := heatMapsSize.X * heatMapsSize.Y
	values := k.getFloats(poolChannel, plane)
	defer k.floatPool.Put(poolChannel, values)

	copyChannel(values, heatMaps, plane, part)

	return k.drawHeatMap(frame, values, heatMapsSize, outputSize, scale, alpha)
}

// RenderBodyParts draws the per pixel maximum of all body part heatmaps,
// the background channel is excluded
func (k *Kernels) RenderBodyParts(img *device.Buffer, top *pose.Topology, outputSize image.Point,
	heatMaps []float32, heatMapsSize image.Point, scale float32,
	alpha float32) error {

	frame, err := frameMat(img, outputSize)

	if err != nil {
		return err
	}

	if err := checkChannels(heatMaps, heatMapsSize, top.NumberBodyParts-1); err != nil {
		return err
	}

	plane := heatMapsSize.X * heatMapsSize.Y
	values := k.getFloats(poolAccX, plane)
	defer k.floatPool.Put(poolAccX, values)

	copyChannel(values, heatMaps, plane, 0)

	for part := 1; part < top.NumberBodyParts; part++ {
		channel := heatMaps[part*plane : (part+1)*plane]

		for i, v := range channel {
			if f := float64(v); f > values[i] {
				values[i] = f
			}
		}
	}

	return k.drawHeatMap(frame, values, heatMapsSize, outputSize, scale, alpha)
}

// RenderPartAffinityField draws the affinity field of the limb whose X
// component is channel part, hue shows direction and brightness magnitude
func (k *Kernels) RenderPartAffinityField(img *device.Buffer, top *pose.Topology,
	outputSize image.Point, heatMaps []float32, heatMapsSize image.Point,
	scale float32, part int, alpha float32) error {

	frame, err := frameMat(img, outputSize)

	if err != nil {
		return err
	}

	pair, ok := top.AffinityPairFor(part)

	if !ok {
		return fmt.Errorf("channel %d is not the X component of a %s affinity field",
			part, top.Name)
	}

	if err := checkChannels(heatMaps, heatMapsSize, max(pair.A, pair.B)); err != nil {
		return err
	}

	plane := heatMapsSize.X * heatMapsSize.Y

	fieldX := k.getFloats(poolAccX, plane)
	defer k.floatPool.Put(poolAccX, fieldX)
	fieldY := k.getFloats(poolAccY, plane)
	defer k.floatPool.Put(poolAccY, fieldY)

	copyChannel(fieldX, heatMaps, plane, pair.A)
	copyChannel(fieldY, heatMaps, plane, pair.B)

	return k.drawField(frame, fieldX, fieldY, heatMapsSize, outputSize, scale, alpha)
}

// RenderPartAffinityFields draws the sum of the affinity fields of all limbs
func (k *Kernels) RenderPartAffinityFields(img *device.Buffer, top *pose.Topology,
	outputSize image.Point, heatMaps []float32, heatMapsSize image.Point,
	scale float32, alpha float32) error {

	frame, err := frameMat(img, outputSize)

	if err != nil {
		return err
	}

	if err := checkChannels(heatMaps, heatMapsSize, top.NumberChannels()-1); err != nil {
		return err
	}

	plane := heatMapsSize.X * heatMapsSize.Y

	fieldX := k.getFloats(poolAccX, plane)
	defer k.floatPool.Put(poolAccX, fieldX)
	fieldY := k.getFloats(poolAccY, plane)
	defer k.floatPool.Put(poolAccY, fieldY)
	channel := k.getFloats(poolChannel, plane)
	defer k.floatPool.Put(poolChannel, channel)

	for _, idx := range top.MapIdx {
		copyChannel(channel, heatMaps, plane, idx.A)
		floats.Add(fieldX, channel)

		copyChannel(channel, heatMaps, plane, idx.B)
		floats.Add(fieldY, channel)
	}

	return k.drawField(frame, fieldX, fieldY, heatMapsSize, outputSize, scale, alpha)
}

// getFloats returns a zeroed scratch buffer of size floats
func (k *Kernels) getFloats(name string, size int) []float64 {
	k.floatPool.Create(name, size)
	return k.floatPool.Get(name, size)
}

// checkChannels checks the heatmaps hold channel lastChannel
func checkChannels(heatMaps []float32, size image.Point, lastChannel int) error {

	if lastChannel < 0 {
		return fmt.Errorf("%w: invalid channel %d", ErrHeatMaps, lastChannel)
	}

	plane := size.X * size.Y

	if plane <= 0 {
		return fmt.Errorf("%w: invalid heatmap size %dx%d", ErrHeatMaps, size.X, size.Y)
	}

	if need := (lastChannel + 1) * plane; len(heatMaps) < need {
		return fmt.Errorf("%w: need %d floats for channel %d, have %d", ErrHeatMaps,
			need, lastChannel, len(heatMaps))
	}

	return nil
}

// copyChannel widens channel c of the heatmaps into dst
func copyChannel(dst []float64, heatMaps []float32, plane, c int) {
	for i, v := range heatMaps[c*plane : (c+1)*plane] {
		dst[i] = float64(v)
	}
}

// drawHeatMap colors the heatmap values and blends them over the frame
func (k *Kernels) drawHeatMap(frame *gocv.Mat, values []float64, size, outputSize image.Point,
	scale, alpha float32) error {

	if k.Params.NormalizeHeatMaps {
		normalize(values)
	}

	scaled, err := scaleToOutput(values, size, outputSize, scale)

	if err != nil {
		return err
	}

	defer scaled.Close()

	gray := gocv.NewMat()
	defer gray.Close()

	// confidences in [0,1] saturate to [0,255]
	scaled.ConvertToWithParams(&gray, gocv.MatTypeCV8U, 255, 0)

	colored := gocv.NewMat()
	defer colored.Close()

	gocv.ApplyColorMap(gray, &colored, k.Params.Colormap)

	blendOver(frame, colored, alpha)

	return nil
}

// drawField colors the vector field by direction and magnitude and blends it
// over the frame
func (k *Kernels) drawField(frame *gocv.Mat, fieldX, fieldY []float64, size, outputSize image.Point,
	scale, alpha float32) error {

	scaledX, err := scaleToOutput(fieldX, size, outputSize, scale)

	if err != nil {
		return err
	}

	defer scaledX.Close()

	scaledY, err := scaleToOutput(fieldY, size, outputSize, scale)

	if err != nil {
		return err
	}

	defer scaledY.Close()

	xs, err := scaledX.DataPtrFloat32()

	if err != nil {
		return fmt.Errorf("error accessing field data: %w", err)
	}

	ys, err := scaledY.DataPtrFloat32()

	if err != nil {
		return fmt.Errorf("error accessing field data: %w", err)
	}

	total := outputSize.X * outputSize.Y
	k.bytePool.Create(poolMap, total*3)
	hsv := k.bytePool.Get(poolMap, total*3)
	defer k.bytePool.Put(poolMap, hsv)

	for i := 0; i < total; i++ {
		h, s, v := fieldColor(xs[i], ys[i])
		hsv[i*3+0] = h
		hsv[i*3+1] = s
		hsv[i*3+2] = v
	}

	hsvMat, err := gocv.NewMatFromBytes(outputSize.Y, outputSize.X, gocv.MatTypeCV8UC3, hsv)

	if err != nil {
		return fmt.Errorf("error creating field Mat: %w", err)
	}

	defer hsvMat.Close()

	colored := gocv.NewMat()
	defer colored.Close()

	gocv.CvtColor(hsvMat, &colored, gocv.ColorHSVToBGR)

	blendOver(frame, colored, alpha)

	return nil
}

// fieldColor returns the 8 bit HSV color of a field vector, hue is the
// direction and value the magnitude clamped to 1
func fieldColor(x, y float32) (h, s, v uint8) {

	magnitude := math32.Hypot(x, y)

	if math32.IsNaN(magnitude) || magnitude <= 0 {
		return 0, 0, 0
	}

	// opencv 8 bit hue runs 0..180
	degrees := math32.Atan2(y, x) * 180 / math32.Pi

	if degrees < 0 {
		degrees += 360
	}

	h = uint8(math32.Mod(math32.Round(degrees/2), 180))
	v = uint8(math32.Min(magnitude, 1) * 255)

	return h, 255, v
}

// normalize stretches values over [0,1] using their min/max range, a constant
// map becomes all zeros
func normalize(values []float64) {

	lo := floats.Min(values)
	hi := floats.Max(values)
	den := hi - lo

	if den <= 0 || den != den {
		for i := range values {
			values[i] = 0
		}
		return
	}

	floats.AddConst(-lo, values)
	floats.Scale(1/den, values)
}

// scaleToOutput returns the values as a float Mat scaled onto the output
// frame
func scaleToOutput(values []float64, size, outputSize image.Point, scale float32) (gocv.Mat, error) {

	src := gocv.NewMatWithSize(size.Y, size.X, gocv.MatTypeCV32F)
	defer src.Close()

	data, err := src.DataPtrFloat32()

	if err != nil {
		return gocv.NewMat(), fmt.Errorf("error accessing map data: %w", err)
	}

	for i, v := range values {
		data[i] = float32(v)
	}

	resizer := NewResizer(size, outputSize, scale)
	defer resizer.Close()

	dest := gocv.NewMat()
	resizer.Resize(src, &dest)

	return dest, nil
}
