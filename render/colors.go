package render

import (
	"image/color"

	"github.com/swdee/go-poserender/pose"
)

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}

	// cocoColors are the body part colors of the COCO skeleton, limbs take
	// the color of their second body part
	cocoColors = []color.RGBA{
		{R: 255, G: 0, B: 85, A: 255},
		{R: 255, G: 0, B: 0, A: 255},
		{R: 255, G: 85, B: 0, A: 255},
		{R: 255, G: 170, B: 0, A: 255},
		{R: 255, G: 255, B: 0, A: 255},
		{R: 170, G: 255, B: 0, A: 255},
		{R: 85, G: 255, B: 0, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 0, G: 255, B: 85, A: 255},
		{R: 0, G: 255, B: 170, A: 255},
		{R: 0, G: 255, B: 255, A: 255},
		{R: 0, G: 170, B: 255, A: 255},
		{R: 0, G: 85, B: 255, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
		{R: 255, G: 0, B: 170, A: 255},
		{R: 170, G: 0, B: 255, A: 255},
		{R: 255, G: 0, B: 255, A: 255},
		{R: 85, G: 0, B: 255, A: 255},
	}

	// mpiColors are the body part colors of the MPI skeletons
	mpiColors = []color.RGBA{
		{R: 255, G: 0, B: 85, A: 255},
		{R: 255, G: 0, B: 0, A: 255},
		{R: 255, G: 85, B: 0, A: 255},
		{R: 255, G: 170, B: 0, A: 255},
		{R: 255, G: 255, B: 0, A: 255},
		{R: 170, G: 255, B: 0, A: 255},
		{R: 85, G: 255, B: 0, A: 255},
		{R: 43, G: 255, B: 0, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 0, G: 255, B: 85, A: 255},
		{R: 0, G: 255, B: 170, A: 255},
		{R: 0, G: 255, B: 255, A: 255},
		{R: 0, G: 170, B: 255, A: 255},
		{R: 0, G: 85, B: 255, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
	}

	// posePalette is used for topologies without a palette of their own
	posePalette = []color.RGBA{
		{R: 255, G: 128, B: 0, A: 255},
		{R: 255, G: 153, B: 51, A: 255},
		{R: 255, G: 178, B: 102, A: 255},
		{R: 230, G: 230, B: 0, A: 255},
		{R: 255, G: 153, B: 255, A: 255},
		{R: 153, G: 204, B: 255, A: 255},
		{R: 255, G: 102, B: 255, A: 255},
		{R: 255, G: 51, B: 255, A: 255},
		{R: 102, G: 178, B: 255, A: 255},
		{R: 51, G: 153, B: 255, A: 255},
		{R: 255, G: 153, B: 153, A: 255},
		{R: 255, G: 102, B: 102, A: 255},
		{R: 255, G: 51, B: 51, A: 255},
		{R: 153, G: 255, B: 153, A: 255},
		{R: 102, G: 255, B: 102, A: 255},
		{R: 51, G: 255, B: 51, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
		{R: 255, G: 0, B: 0, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}
)

// PartColors returns the palette used to draw the body parts of the topology
func PartColors(top *pose.Topology) []color.RGBA {

	switch top.Name {
	case pose.COCO.String():
		return cocoColors
	case pose.MPI.String(), pose.MPI4Layers.String():
		return mpiColors
	}

	return posePalette
}

// partColor returns the color of body part i, wrapping around the palette
func partColor(palette []color.RGBA, i int) color.RGBA {
	return palette[i%len(palette)]
}
