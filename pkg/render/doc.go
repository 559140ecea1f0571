// Package render groups the poster drawing packages.
//
// # Overview
//
// A poster is drawn in fixed layers on one raster canvas:
//
//   - [canvas]: physical size and dpi to pixels
//   - [fade]: top and bottom gradient masks
//   - [caption]: city, country and coordinate text placement
//   - [compose]: z-ordered layer drawing with fogleman/gg
//   - [sink]: PNG and JPEG encoding, decoding and previews
//
// Drawing is pure: the same inputs always produce the same pixels, so
// several themes can be composed concurrently from one fetch.
//
// [canvas]: github.com/matzehuels/cityposter/pkg/render/canvas
// [fade]: github.com/matzehuels/cityposter/pkg/render/fade
// [caption]: github.com/matzehuels/cityposter/pkg/render/caption
// [compose]: github.com/matzehuels/cityposter/pkg/render/compose
// [sink]: github.com/matzehuels/cityposter/pkg/render/sink
package render
