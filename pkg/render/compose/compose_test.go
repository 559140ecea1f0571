package compose

import (
	"image"
	"image/color"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/cityposter/pkg/classify"
	"github.com/matzehuels/cityposter/pkg/geo"
	"github.com/matzehuels/cityposter/pkg/render/canvas"
	"github.com/matzehuels/cityposter/pkg/render/caption"
	"github.com/matzehuels/cityposter/pkg/render/fade"
	"github.com/matzehuels/cityposter/pkg/theme"
)

// A 100x100 px canvas at 300 dpi centered on (0, 0). One degree of
// longitude at the equator is about 111 km, so 0.02 degrees spans the whole
// 2 km viewport.
func testSize() canvas.Size {
	return canvas.Size{Width: 100, Height: 100, DPI: 300, WidthInches: 1.0 / 3, HeightInches: 1.0 / 3}
}

func testViewport() geo.Viewport {
	return geo.NewViewport(orb.Point{0, 0}, 1000, 1)
}

func square(half float64) orb.Polygon {
	return orb.Polygon{{{-half, -half}, {half, -half}, {half, half}, {-half, half}, {-half, -half}}}
}

func testTheme() theme.Theme {
	th := theme.Default()
	th.Background = theme.MustColor("#FF0000")
	th.Water = theme.MustColor("#0000FF")
	th.Parks = theme.MustColor("#00FF00")
	th.RoadMotorway = theme.MustColor("#000000")
	th.Gradient = theme.MustColor("#FFFF00")
	th.Text = theme.MustColor("#FFFFFF")
	return th
}

type layers struct {
	water, parks, roads, fade, captions bool
}

func testInput(l layers) Input {
	in := Input{
		Theme:    testTheme(),
		Canvas:   testSize(),
		Viewport: testViewport(),
	}
	if l.water {
		in.Features.Water = geo.Some(orb.MultiPolygon{square(0.05)})
	}
	if l.parks {
		in.Features.Parks = geo.Some(orb.MultiPolygon{square(0.002)})
	}
	if l.roads {
		in.Roads = ClassifyRoads([]geo.Road{{
			Highway: []string{"motorway"},
			Line:    orb.LineString{{-0.05, 0}, {0.05, 0}},
		}})
	}
	if l.fade {
		in.Fade = fade.Generate(100, 100, fade.DefaultFraction, in.Theme.Gradient)
	}
	if l.captions {
		p := orb.Point{0, 0}
		in.Captions = caption.Layout(caption.Input{City: "Test", Country: "Nowhere", Coords: &p, Scale: in.Canvas.FontScale()})
	}
	return in
}

func near(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	d := func(x, y uint32) bool {
		if x > y {
			return x-y <= 0x0202
		}
		return y-x <= 0x0202
	}
	return d(ar, br) && d(ag, bg) && d(ab, bb) && d(aa, ba)
}

func TestZOrderTopmostLayerWins(t *testing.T) {
	th := testTheme()
	tests := []struct {
		name   string
		layers layers
		want   color.Color
	}{
		{"all", layers{water: true, parks: true, roads: true}, th.RoadMotorway.NRGBA()},
		{"no roads", layers{water: true, parks: true}, th.Parks.NRGBA()},
		{"no parks", layers{water: true, roads: true}, th.RoadMotorway.NRGBA()},
		{"no water", layers{parks: true, roads: true}, th.RoadMotorway.NRGBA()},
		{"water only", layers{water: true}, th.Water.NRGBA()},
		{"parks over water", layers{water: true, parks: true, fade: true}, th.Parks.NRGBA()},
		{"nothing", layers{}, th.Background.NRGBA()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compose(testInput(tt.layers))
			if err != nil {
				t.Fatalf("Compose() error: %v", err)
			}
			if got := out.Image.At(50, 50); !near(got, tt.want) {
				t.Errorf("center pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestZOrderFadeAboveFeatures(t *testing.T) {
	out, err := Compose(testInput(layers{water: true, parks: true, roads: true, fade: true}))
	if err != nil {
		t.Fatal(err)
	}
	want := testTheme().Gradient.NRGBA()
	if got := out.Image.At(50, 0); !near(got, want) {
		t.Errorf("top edge pixel = %v, want fade color %v", got, want)
	}
	if got := out.Image.At(10, 99); !near(got, want) {
		t.Errorf("bottom edge pixel = %v, want fade color %v", got, want)
	}
}

func TestLayersStayInOrder(t *testing.T) {
	all := layers{water: true, parks: true, roads: true, fade: true, captions: true}
	variants := []layers{
		all,
		{parks: true, roads: true, fade: true, captions: true},
		{water: true, roads: true, fade: true, captions: true},
		{water: true, parks: true, fade: true, captions: true},
		{water: true, parks: true, roads: true, captions: true},
		{water: true, parks: true, roads: true, fade: true},
	}

	for _, v := range variants {
		out, err := Compose(testInput(v))
		if err != nil {
			t.Fatal(err)
		}
		if out.Layers[0] != LayerBackground {
			t.Errorf("%+v: first layer = %v, want background", v, out.Layers[0])
		}
		for i := 1; i < len(out.Layers); i++ {
			if out.Layers[i] <= out.Layers[i-1] {
				t.Errorf("%+v: layers out of order: %v", v, out.Layers)
			}
		}
		want := 1
		for _, on := range []bool{v.water, v.parks, v.roads, v.fade, v.captions} {
			if on {
				want++
			}
		}
		if len(out.Layers) != want {
			t.Errorf("%+v: drew %d layers, want %d", v, len(out.Layers), want)
		}
	}
}

func TestEmptyLayersSkipped(t *testing.T) {
	in := testInput(layers{roads: true})
	in.Features.Water = geo.Some(orb.MultiPolygon{})
	in.Features.Parks = geo.None[orb.MultiPolygon]()

	out, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	want := []Layer{LayerBackground, LayerRoads}
	if len(out.Layers) != len(want) || out.Layers[0] != want[0] || out.Layers[1] != want[1] {
		t.Errorf("Layers = %v, want %v", out.Layers, want)
	}
}

func TestNoWaterPixelsWithoutWater(t *testing.T) {
	in := testInput(layers{parks: true, roads: true, fade: true})
	out, err := Compose(in)
	if err != nil {
		t.Fatal(err)
	}
	water := in.Theme.Water.NRGBA()
	b := out.Image.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if near(out.Image.At(x, y), water) {
				t.Fatalf("water-colored pixel at (%d, %d)", x, y)
			}
		}
	}
}

func TestOverlappingPolygonsStayFilled(t *testing.T) {
	tests := []struct {
		name  string
		parks orb.MultiPolygon
	}{
		{"nested", orb.MultiPolygon{square(0.005), square(0.002)}},
		{"duplicate", orb.MultiPolygon{square(0.003), square(0.003)}},
		{"three deep", orb.MultiPolygon{square(0.006), square(0.004), square(0.002)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput(layers{})
			in.Features.Parks = geo.Some(tt.parks)
			out, err := Compose(in)
			if err != nil {
				t.Fatalf("Compose() error: %v", err)
			}
			if got, want := out.Image.At(50, 50), in.Theme.Parks.NRGBA(); !near(got, want) {
				t.Errorf("center pixel = %v, want parks color %v", got, want)
			}
		})
	}
}

func TestPolygonHoleShowsBackground(t *testing.T) {
	outer := square(0.005)[0]
	inner := square(0.002)[0]
	in := testInput(layers{})
	in.Features.Water = geo.Some(orb.MultiPolygon{{outer, inner}})

	out, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if got, want := out.Image.At(50, 50), in.Theme.Background.NRGBA(); !near(got, want) {
		t.Errorf("hole pixel = %v, want background %v", got, want)
	}
	// Between the rings: 20 px below center, inner ring ends near 11 px and
	// the outer near 28 px.
	if got, want := out.Image.At(50, 70), in.Theme.Water.NRGBA(); !near(got, want) {
		t.Errorf("ring pixel = %v, want water %v", got, want)
	}
}

func TestTransparentBackground(t *testing.T) {
	in := testInput(layers{})
	in.Transparent = true
	out, err := Compose(in)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := out.Image.At(50, 50).RGBA(); a != 0 {
		t.Errorf("alpha = %d, want 0", a)
	}
	if len(out.Layers) != 0 {
		t.Errorf("Layers = %v, want none", out.Layers)
	}
}

func TestCleanMatchesOutsideCaptions(t *testing.T) {
	base := layers{water: true, parks: true, roads: true, fade: true}

	clean, err := Compose(testInput(base))
	if err != nil {
		t.Fatal(err)
	}
	withCaptions := base
	withCaptions.captions = true
	full, err := Compose(testInput(withCaptions))
	if err != nil {
		t.Fatal(err)
	}

	if len(clean.CaptionRegions) != 0 {
		t.Errorf("clean output has %d caption regions", len(clean.CaptionRegions))
	}
	if len(full.CaptionRegions) == 0 {
		t.Fatal("captioned output has no caption regions")
	}

	inCaption := func(x, y int) bool {
		pt := image.Pt(x, y)
		for _, r := range full.CaptionRegions {
			if pt.In(r) {
				return true
			}
		}
		return false
	}

	differs := false
	b := clean.Image.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			same := clean.Image.RGBAAt(x, y) == full.Image.RGBAAt(x, y)
			if !inCaption(x, y) && !same {
				t.Fatalf("pixel (%d, %d) differs outside caption regions", x, y)
			}
			if inCaption(x, y) && !same {
				differs = true
			}
		}
	}
	if !differs {
		t.Error("captions drew nothing inside their regions")
	}
}

func TestClassifyRoads(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 1}}
	roads := ClassifyRoads([]geo.Road{
		{Highway: []string{"motorway"}, Line: line},
		{Highway: []string{"residential"}, Line: line},
		{Highway: []string{"unknown"}, Line: line},
		{Highway: []string{"primary"}, Line: line},
		{Highway: []string{"primary"}, Line: orb.LineString{{0, 0}}},
	})

	want := []classify.Tier{classify.Default, classify.Residential, classify.TrunkPrimary, classify.Motorway}
	if len(roads) != len(want) {
		t.Fatalf("got %d roads, want %d", len(roads), len(want))
	}
	for i, r := range roads {
		if r.Tier != want[i] {
			t.Errorf("roads[%d].Tier = %v, want %v", i, r.Tier, want[i])
		}
	}

	counts := TierCounts(roads)
	if counts[classify.Motorway] != 1 || counts[classify.Secondary] != 0 {
		t.Errorf("TierCounts() = %v", counts)
	}
}

func TestComposeRejectsEmptyCanvas(t *testing.T) {
	in := testInput(layers{})
	in.Canvas = canvas.Size{}
	if _, err := Compose(in); err == nil {
		t.Error("Compose() with empty canvas should fail")
	}
}
