package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// DrawLabel writes the name of the rendered element in a box along the top
// edge of the frame.  An empty text draws nothing.
func DrawLabel(img *gocv.Mat, text string, f Font) error {

	if text == "" {
		return nil
	}

	if img.Empty() {
		return fmt.Errorf("can not draw label on empty image")
	}

	textSize := labelSize(text, f)

	// calculate the alignment of text label
	var left int

	switch f.Alignment {
	case Center:
		left = (img.Cols() - textSize.X) / 2

	case Right:
		left = img.Cols() - textSize.X - f.RightPad

	case Left:
		fallthrough
	default:
		left = f.LeftPad
	}

	top := f.TopPad
	baseline := top + textSize.Y

	// create box for placing text on
	bRect := image.Rect(left-f.LeftPad, 0, left+textSize.X+f.RightPad,
		baseline+f.BottomPad)

	gocv.Rectangle(img, bRect, f.Background, -1)

	if f.Bitmap != nil {
		return putBitmapText(img, text, f.Bitmap, f.Color, left, baseline)
	}

	gocv.PutTextWithParams(img, text, image.Pt(left, baseline),
		f.Face, f.Scale, f.Color, f.Thickness, f.LineType, false)

	return nil
}

// labelSize returns the pixel dimensions of the text above its baseline
func labelSize(text string, f Font) image.Point {

	if f.Bitmap != nil {
		width := font.MeasureString(f.Bitmap, text).Ceil()
		return image.Pt(width, f.Bitmap.Metrics().Ascent.Ceil())
	}

	return gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)
}

// putBitmapText draws the text on a transparent layer with the bitmap face
// and adds it onto the image
func putBitmapText(img *gocv.Mat, text string, face font.Face, clr color.RGBA,
	x, y int) error {

	// create image with text writing
	rgba := image.NewRGBA(image.Rect(0, 0, img.Cols(), img.Rows()))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 0}), image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	dr.DrawString(text)

	// convert image.RGBA to gocv.Mat
	imgRGBA, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(), gocv.MatTypeCV8UC4, rgba.Pix)

	if imgRGBA.Empty() || err != nil {
		return fmt.Errorf("error creating Mat from RGBA")
	}

	defer imgRGBA.Close()

	gocv.CvtColor(imgRGBA, &imgRGBA, gocv.ColorRGBAToBGR)
	gocv.AddWeighted(*img, 1.0, imgRGBA, 1.0, 0, img)

	return nil
}
