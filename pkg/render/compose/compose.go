package compose

import (
	"image"
	"math"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"

	"github.com/matzehuels/cityposter/pkg/classify"
	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/fonts"
	"github.com/matzehuels/cityposter/pkg/geo"
	"github.com/matzehuels/cityposter/pkg/render/canvas"
	"github.com/matzehuels/cityposter/pkg/render/caption"
	"github.com/matzehuels/cityposter/pkg/render/fade"
	"github.com/matzehuels/cityposter/pkg/theme"
)

// Input is everything needed to draw one poster. All fields are read-only.
type Input struct {
	Theme       theme.Theme
	Features    geo.FeatureSet
	Roads       []StyledRoad
	Fade        fade.Overlays
	Captions    []caption.Block
	Canvas      canvas.Size
	Viewport    geo.Viewport
	Fonts       *fonts.Set
	Transparent bool
}

// Output is a composed poster.
type Output struct {
	Image *image.RGBA

	// Layers lists the layers that were drawn, in drawing order.
	Layers []Layer

	// CaptionRegions bounds every drawn caption element in pixels.
	CaptionRegions []image.Rectangle
}

type composer struct {
	in   Input
	dc   *gg.Context
	proj geo.Projector
	out  *Output
}

// Compose draws in onto a new canvas.
func Compose(in Input) (*Output, error) {
	if in.Canvas.Width <= 0 || in.Canvas.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "canvas has no pixels: %s", in.Canvas)
	}
	if in.Fonts == nil && len(in.Captions) > 0 {
		set, err := fonts.Embedded()
		if err != nil {
			return nil, err
		}
		in.Fonts = set
	}

	c := &composer{
		in:   in,
		dc:   gg.NewContext(in.Canvas.Width, in.Canvas.Height),
		proj: in.Viewport.Projector(in.Canvas.Width, in.Canvas.Height),
		out:  &Output{},
	}

	for _, layer := range ZOrder {
		if c.draw(layer) {
			c.out.Layers = append(c.out.Layers, layer)
		}
	}

	img, ok := c.dc.Image().(*image.RGBA)
	if !ok {
		return nil, errors.New(errors.ErrCodeInternal, "unexpected canvas type %T", c.dc.Image())
	}
	c.out.Image = img
	return c.out, nil
}

// draw renders one layer and reports whether anything was drawn.
func (c *composer) draw(layer Layer) bool {
	switch layer {
	case LayerBackground:
		return c.background()
	case LayerWater:
		return c.polygons(c.in.Features.WaterPolygons(), c.in.Theme.Water)
	case LayerParks:
		return c.polygons(c.in.Features.ParkPolygons(), c.in.Theme.Parks)
	case LayerRoads:
		return c.roads()
	case LayerFade:
		return c.fade()
	case LayerCaptions:
		return c.captions()
	}
	return false
}

func (c *composer) background() bool {
	if c.in.Transparent {
		return false
	}
	c.dc.SetColor(c.in.Theme.Background.NRGBA())
	c.dc.Clear()
	return true
}

func (c *composer) polygons(mp orb.MultiPolygon, col theme.Color) bool {
	if len(mp) == 0 {
		return false
	}

	// Even-odd applies within one polygon so inner rings cut holes.
	// Polygons are filled one by one; overlapping ones must not cancel.
	c.dc.SetFillRule(gg.FillRuleEvenOdd)
	c.dc.SetColor(col.NRGBA())

	drawn := false
	for _, poly := range mp {
		if len(poly) == 0 || len(poly[0]) < 3 {
			continue
		}
		for _, ring := range poly {
			if len(ring) < 3 {
				continue
			}
			c.dc.NewSubPath()
			for i, pt := range ring {
				x, y := c.proj.Point(pt)
				if i == 0 {
					c.dc.MoveTo(x, y)
				} else {
					c.dc.LineTo(x, y)
				}
			}
			c.dc.ClosePath()
		}
		c.dc.Fill()
		drawn = true
	}
	return drawn
}

func (c *composer) roads() bool {
	if len(c.in.Roads) == 0 {
		return false
	}

	c.dc.SetLineCapRound()
	c.dc.SetLineJoinRound()

	// Roads arrive sorted by rank; stroke each tier as one path.
	start := 0
	for start < len(c.in.Roads) {
		tier := c.in.Roads[start].Tier
		end := start
		for end < len(c.in.Roads) && c.in.Roads[end].Tier == tier {
			c.addLine(c.in.Roads[end].Line)
			end++
		}
		c.stroke(tier)
		start = end
	}
	return true
}

func (c *composer) addLine(line orb.LineString) {
	for i, pt := range line {
		x, y := c.proj.Point(pt)
		if i == 0 {
			c.dc.MoveTo(x, y)
		} else {
			c.dc.LineTo(x, y)
		}
	}
}

func (c *composer) stroke(tier classify.Tier) {
	c.dc.SetColor(c.in.Theme.RoadColor(tier).NRGBA())
	c.dc.SetLineWidth(c.in.Canvas.PointsToPixels(tier.Width()))
	c.dc.Stroke()
}

func (c *composer) fade() bool {
	if c.in.Fade.Empty() {
		return false
	}
	c.dc.DrawImage(c.in.Fade.Top, 0, 0)
	c.dc.DrawImage(c.in.Fade.Bottom, 0, c.in.Canvas.Height-c.in.Fade.Bottom.Bounds().Dy())
	return true
}

func (c *composer) captions() bool {
	if len(c.in.Captions) == 0 {
		return false
	}
	for _, b := range c.in.Captions {
		var r image.Rectangle
		if b.Kind == caption.KindDivider {
			r = c.divider(b)
		} else {
			r = c.text(b)
		}
		if !r.Empty() {
			c.out.CaptionRegions = append(c.out.CaptionRegions, r)
		}
	}
	return true
}

// regionPad covers anti-aliasing outside the measured text box.
const regionPad = 2

func (c *composer) text(b caption.Block) image.Rectangle {
	if b.Text == "" || b.Size <= 0 {
		return image.Rectangle{}
	}
	w, h := float64(c.in.Canvas.Width), float64(c.in.Canvas.Height)
	px, py := b.X*w, (1-b.Y)*h

	c.dc.SetFontFace(c.in.Fonts.Face(b.Weight, b.Size, c.in.Canvas.DPI))
	c.dc.SetColor(c.in.Theme.Text.WithAlpha(b.Alpha))
	c.dc.DrawStringAnchored(b.Text, px, py, b.AnchorX, b.AnchorY)

	tw, th := c.dc.MeasureString(b.Text)
	left := px - b.AnchorX*tw
	baseline := py + b.AnchorY*th
	return c.clip(left-regionPad, baseline-1.25*th-regionPad, left+tw+regionPad, baseline+0.5*th+regionPad)
}

func (c *composer) divider(b caption.Block) image.Rectangle {
	if b.HalfLength <= 0 {
		return image.Rectangle{}
	}
	w, h := float64(c.in.Canvas.Width), float64(c.in.Canvas.Height)
	x0, x1 := (b.X-b.HalfLength)*w, (b.X+b.HalfLength)*w
	y := (1 - b.Y) * h
	lw := c.in.Canvas.PointsToPixels(b.LineWidth)

	c.dc.SetLineCapButt()
	c.dc.SetColor(c.in.Theme.Text.WithAlpha(b.Alpha))
	c.dc.SetLineWidth(lw)
	c.dc.DrawLine(x0, y, x1, y)
	c.dc.Stroke()

	return c.clip(x0-regionPad, y-lw/2-regionPad, x1+regionPad, y+lw/2+regionPad)
}

func (c *composer) clip(x0, y0, x1, y1 float64) image.Rectangle {
	r := image.Rect(int(math.Floor(x0)), int(math.Floor(y0)), int(math.Ceil(x1)), int(math.Ceil(y1)))
	return r.Intersect(image.Rect(0, 0, c.in.Canvas.Width, c.in.Canvas.Height))
}
