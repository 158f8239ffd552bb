// Package annotate - draws detection overlays onto frame copies.
package annotate

import "image/color"

// DefaultColor is used for detections without a displayed track identity.
var DefaultColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// Palette is the fixed track-color cycle. Identities pick a color by
// trackID mod len(Palette), so an identity keeps its color for as long as
// it lives.
var Palette = []color.RGBA{
	{R: 0, G: 0, B: 255, A: 0},
	{R: 0, G: 255, B: 0, A: 0},
	{R: 255, G: 0, B: 0, A: 0},
	{R: 0, G: 255, B: 255, A: 0},
	{R: 255, G: 0, B: 255, A: 0},
	{R: 255, G: 255, B: 0, A: 0},
	{R: 255, G: 0, B: 128, A: 0},
	{R: 0, G: 128, B: 255, A: 0},
	{R: 255, G: 128, B: 0, A: 0},
	{R: 0, G: 255, B: 128, A: 0},
	{R: 128, G: 0, B: 255, A: 0},
	{R: 128, G: 255, B: 0, A: 0},
}

// ColorFor returns the palette color of a track identity. Negative IDs
// (no identity) fall back to the default color.
func ColorFor(trackID int) color.RGBA {
	if trackID < 0 {
		return DefaultColor
	}
	return Palette[trackID%len(Palette)]
}
