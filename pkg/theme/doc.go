// Package theme resolves named color palettes for posters.
//
// A [Theme] is an explicit record: eleven required colors (background,
// text, fade gradient, water, parks and one per road tier) plus optional
// extension colors such as "railway". Theme files live in a themes
// directory as JSON or YAML documents using the keys:
//
//	bg, text, gradient_color, water, parks,
//	road_motorway, road_primary, road_secondary,
//	road_tertiary, road_residential, road_default
//
// plus the optional metadata keys "name" and "description".
//
// # Resolution
//
// [Resolver.Resolve] starts from the resolver's default palette (normally
// [Default]), overlays the named file and then any caller overrides. A key
// missing from the file keeps its default value, so every resolved theme is
// complete. Resolution fails with a THEME_LOAD error only when a named theme
// cannot be located or its content cannot be parsed. The built-in name
// [DefaultName] always resolves, with or without a file.
package theme
