package render

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Resizer scales network sized maps to the output frame.  The map is scaled
// by a fixed factor anchored at the top left corner, then cropped or padded
// with zeros on the right and bottom to the output dimensions.
type Resizer struct {
	// srcWidth is the width of the source map
	srcWidth int
	// srcHeight is the height of the source map
	srcHeight int
	// destWidth is the width of the output frame
	destWidth int
	// destHeight is the height of the output frame
	destHeight int
	// scale from source to output
	scale float32
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// padMat holds the scaled map when padding is needed
	padMat gocv.Mat
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer used for scaling a map of srcSize by scale
// onto a frame of destSize
func NewResizer(srcSize, destSize image.Point, scale float32) *Resizer {
	r := &Resizer{
		srcWidth:   srcSize.X,
		srcHeight:  srcSize.Y,
		destWidth:  destSize.X,
		destHeight: destSize.Y,
		scale:      scale,
		tempMat:    gocv.NewMat(),
		padMat:     gocv.NewMat(),
	}

	// precalculate scaling dimensions
	r.preCalc()

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	r.padMat.Close()
	return r.tempMat.Close()
}

// preCalc the scaled dimensions of the source map
func (r *Resizer) preCalc() {
	r.resizeW = int(math.Round(float64(float32(r.srcWidth) * r.scale)))
	r.resizeH = int(math.Round(float64(float32(r.srcHeight) * r.scale)))

	if r.resizeW < 1 {
		r.resizeW = 1
	}
	if r.resizeH < 1 {
		r.resizeH = 1
	}
}

// Resize scales src into dest which ends up the size of the output frame
func (r *Resizer) Resize(src gocv.Mat, dest *gocv.Mat) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationLinear)

	padX := max(r.destWidth-r.resizeW, 0)
	padY := max(r.destHeight-r.resizeH, 0)

	src = r.tempMat

	if padX > 0 || padY > 0 {
		gocv.CopyMakeBorder(r.tempMat, &r.padMat, 0, padY, 0, padX,
			gocv.BorderConstant, Black)
		src = r.padMat
	}

	region := src.Region(image.Rect(0, 0, r.destWidth, r.destHeight))
	defer region.Close()

	region.CopyTo(dest)
}

// ScaleFactor returns the scale from source map to output frame
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// ResizedSize returns the dimensions of the scaled map before cropping or
// padding
func (r *Resizer) ResizedSize() image.Point {
	return image.Pt(r.resizeW, r.resizeH)
}

// SrcWidth returns the width of the source map
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source map
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}
