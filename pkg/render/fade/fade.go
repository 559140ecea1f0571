// Package fade generates the top and bottom border fades of a poster.
//
// Each band is an alpha ramp over a single color: fully opaque at the
// poster edge and fully transparent where the band meets the map. The
// bands depend only on the canvas size and the color, never on map data.
package fade

import (
	"image"
	"image/color"
	"math"
)

// DefaultFraction is the band height as a fraction of the canvas height.
const DefaultFraction = 0.25

// Overlays holds the two fade bands. Top is drawn at y=0 and Bottom at
// y=canvasHeight-Bottom.Bounds().Dy().
type Overlays struct {
	Top    *image.NRGBA
	Bottom *image.NRGBA
}

// Empty reports whether both bands have zero height.
func (o Overlays) Empty() bool {
	return o.Top == nil || o.Top.Bounds().Empty()
}

// BandHeight returns the band height in pixels for a canvas height.
func BandHeight(height int, fraction float64) int {
	if height <= 0 || !(fraction > 0) {
		return 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return int(math.Round(float64(height) * fraction))
}

// Generate builds the fade bands for a width x height canvas.
func Generate(width, height int, fraction float64, c color.Color) Overlays {
	band := BandHeight(height, fraction)
	if width <= 0 || band <= 0 {
		empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
		return Overlays{Top: empty, Bottom: empty}
	}

	base := color.NRGBAModel.Convert(c).(color.NRGBA)
	top := image.NewNRGBA(image.Rect(0, 0, width, band))
	bottom := image.NewNRGBA(image.Rect(0, 0, width, band))

	for i := 0; i < band; i++ {
		px := base
		px.A = Alpha(i, band)
		fillRow(top, i, px)
		fillRow(bottom, band-1-i, px)
	}
	return Overlays{Top: top, Bottom: bottom}
}

// Alpha returns the opacity of row i counted inward from the outer edge of
// a band of the given height.
func Alpha(i, band int) uint8 {
	if band <= 1 {
		return 255
	}
	if i <= 0 {
		return 255
	}
	if i >= band-1 {
		return 0
	}
	return uint8(math.Round(255 * float64(band-1-i) / float64(band-1)))
}

func fillRow(img *image.NRGBA, y int, c color.NRGBA) {
	row := img.Pix[y*img.Stride : y*img.Stride+img.Rect.Dx()*4]
	for x := 0; x < len(row); x += 4 {
		row[x], row[x+1], row[x+2], row[x+3] = c.R, c.G, c.B, c.A
	}
}
