package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	clipper "github.com/ctessum/go.clipper"
	"github.com/swdee/go-poserender/device"
	"github.com/swdee/go-poserender/pose"
	"gocv.io/x/gocv"
)

const (
	// subPixelShift is the number of fractional bits of limb outline points
	subPixelShift = 4
	subPixel      = 1 << subPixelShift
)

// RenderPose draws the skeletons of numberPeople people.  When blend is false
// the skeletons are drawn over a black frame.
func (k *Kernels) RenderPose(img *device.Buffer, top *pose.Topology, numberPeople int,
	outputSize image.Point, keypoints *device.Buffer, googlyEyes, blend bool,
	alpha float32) error {

	frame, err := frameMat(img, outputSize)

	if err != nil {
		return err
	}

	if !blend {
		frame.SetTo(gocv.NewScalar(0, 0, 0, 0))
		alpha = 1
	}

	if numberPeople <= 0 {
		return nil
	}

	data, err := keypoints.Floats()

	if err != nil {
		return fmt.Errorf("error reading keypoints: %w", err)
	}

	parts := top.NumberBodyParts

	if len(data) < numberPeople*parts*3 {
		return fmt.Errorf("%w: %d floats for %d people of %d parts", ErrKeypoints,
			len(data), numberPeople, parts)
	}

	set := pose.KeypointSet{Data: data[:numberPeople*parts*3], People: numberPeople, Parts: parts}

	overlay := frame.Clone()
	defer overlay.Close()

	circle, line := k.thickness(outputSize)
	palette := PartColors(top)

	for person := 0; person < numberPeople; person++ {
		k.drawPerson(&overlay, top, set, person, palette, circle, line, googlyEyes)
	}

	blendOver(frame, overlay, alpha)

	return nil
}

// thickness returns the joint circle and limb line thickness for the frame
func (k *Kernels) thickness(outputSize image.Point) (circle, line int) {

	area := float64(outputSize.X * outputSize.Y)

	circle = max(int(math.Round(math.Sqrt(area)*float64(k.Params.ThicknessCircleRatio))), 2)
	line = max(int(math.Round(float64(circle)*float64(k.Params.ThicknessLineRatio))), 1)

	return circle, line
}

// drawPerson draws the limbs then joints of a single person
func (k *Kernels) drawPerson(img *gocv.Mat, top *pose.Topology, set pose.KeypointSet,
	person int, palette []color.RGBA, circle, line int, googlyEyes bool) {

	threshold := k.Params.RenderThreshold
	radius := max(circle/2, 1)

	for _, limb := range top.RenderPairs {
		a := set.At(person, limb.A)
		b := set.At(person, limb.B)

		if a.Score <= threshold || b.Score <= threshold {
			continue
		}

		drawLimb(img, a, b, float64(line)/2, partColor(palette, limb.B))
	}

	for part := 0; part < set.Parts; part++ {
		kp := set.At(person, part)

		if kp.Score <= threshold {
			continue
		}

		gocv.Circle(img, keyPointPt(kp), radius, partColor(palette, part), -1)
	}

	if !googlyEyes {
		return
	}

	eyeRadius := max(int(math.Round(float64(radius)*float64(k.Params.GooglyEyeRatio))), 2)

	for _, eye := range top.Eyes {
		kp := set.At(person, eye)

		if kp.Score <= threshold {
			continue
		}

		center := keyPointPt(kp)
		gocv.Circle(img, center, eyeRadius, White, -1)
		gocv.Circle(img, center, eyeRadius, Black, max(eyeRadius/6, 1))

		// pupil rests at the bottom of the eye
		pupil := image.Pt(center.X, center.Y+eyeRadius/2)
		gocv.Circle(img, pupil, max(eyeRadius/2, 1), Black, -1)
	}
}

// drawLimb fills the round capped outline of the segment between two body
// parts
func drawLimb(img *gocv.Mat, a, b pose.KeyPoint, halfWidth float64, clr color.RGBA) {

	outline := limbOutline(a, b, halfWidth)

	if len(outline) < 3 {
		return
	}

	pts := gocv.NewPointsVectorFromPoints([][]image.Point{outline})
	defer pts.Close()

	gocv.FillPolyWithParams(img, pts, clr, gocv.LineAA, subPixelShift, image.Point{})
}

// limbOutline offsets the segment between two body parts into a polygon
// with rounded ends, points are in fixed point with subPixelShift bits
func limbOutline(a, b pose.KeyPoint, halfWidth float64) []image.Point {

	path := clipper.Path{
		&clipper.IntPoint{X: clipper.CInt(a.X * subPixel), Y: clipper.CInt(a.Y * subPixel)},
		&clipper.IntPoint{X: clipper.CInt(b.X * subPixel), Y: clipper.CInt(b.Y * subPixel)},
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtOpenRound)

	solution := co.Execute(halfWidth * subPixel)

	var points []image.Point

	for _, sol := range solution {
		for _, pt := range sol {
			points = append(points, image.Pt(int(pt.X), int(pt.Y)))
		}
	}

	return points
}

// keyPointPt returns the pixel location of the keypoint
func keyPointPt(kp pose.KeyPoint) image.Point {
	return image.Pt(int(math.Round(float64(kp.X))), int(math.Round(float64(kp.Y))))
}
