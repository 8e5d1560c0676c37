package render

import (
	"image/color"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Background color of the box the text is drawn on
	Background color.RGBA
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the label along the top edge of the frame
	Alignment Alignment
	// Bitmap draws the text with the bitmap face rather than the Hershey
	// font, it is sharper at small sizes
	Bitmap font.Face
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:       gocv.FontHersheySimplex,
		Scale:      0.5,
		Color:      White,
		Thickness:  1,
		LineType:   gocv.LineAA,
		Background: Black,
		LeftPad:    4,
		RightPad:   4,
		TopPad:     4,
		BottomPad:  6,
		Alignment:  Left,
	}
}

// BitmapFont returns font settings drawing with the 7x13 bitmap face
func BitmapFont() Font {
	f := DefaultFont()
	f.Bitmap = basicfont.Face7x13
	return f
}
