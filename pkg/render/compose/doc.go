// Package compose rasterizes a poster from its styled inputs.
//
// # Z-order
//
// Layers are drawn in a fixed order, lowest first:
//
//	background < water < parks < roads < fade < captions
//
// A layer whose input is absent or empty is skipped; the remaining layers
// keep their relative order. The background is also skipped for
// transparent posters.
//
// # Roads
//
// Roads are classified with package classify and stroked one tier at a
// time in ascending rank, so motorways are drawn last and stay on top where
// tiers overlap. Stroke widths are points converted at the canvas DPI.
//
// # Rendering
//
// Drawing uses github.com/fogleman/gg. Geometry is projected through the
// poster's [geo.Viewport]; captions are placed from their normalized axis
// positions and sized with faces from package fonts at the canvas DPI.
package compose
