// Package caption lays out the poster's text block in normalized axis space.
//
// Positions are fractions of the poster in both dimensions, measured from
// the bottom-left corner, so a layout holds for any pixel or physical size.
// The stack, top to bottom, is:
//
//	city        y=0.14   bold, uppercased, letter-spaced
//	divider     y=0.125  (0.105 without a country)
//	country     y=0.10   light, uppercased, omitted when empty
//	coordinates y=0.07   (0.10 without a country)
//
// The attribution line sits independently at the bottom right. Font sizes
// are points at the poster's [Input.Scale]; the renderer converts them to
// pixels. A clean layout is empty.
package caption
