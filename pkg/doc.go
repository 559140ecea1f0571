// Package pkg provides the core libraries for cityposter map posters.
//
// # Overview
//
// Cityposter turns the streets, water and parks around a city into a
// styled, print-ready poster. The pkg directory is organized into four
// areas:
//
//  1. Domain logic: [classify], [theme], [geo] and the [render] packages
//  2. Infrastructure: [cache], [storage], [jobs], [config], [observability]
//  3. [integrations]: Nominatim and Overpass clients
//  4. [pipeline] and [server]: orchestration and the web API
//
// # Architecture
//
// The data flow of one poster:
//
//	city, country
//	     ↓
//	[integrations/nominatim] (geocode)
//	     ↓
//	[integrations/overpass] (roads, water, parks)
//	     ↓
//	[classify] (road tiers)
//	     ↓
//	[render/compose] (layers, fade, captions)
//	     ↓
//	[render/sink] + [storage] (PNG/JPEG)
//
// # Quick Start
//
//	runner := pipeline.NewRunner(
//	    nominatim.NewClient(backend, "", "", 0),
//	    overpass.NewClient(backend, "", overpass.NetworkDrive, 0, 0),
//	    theme.NewResolver("themes"),
//	    storage.NewFileStore("posters"),
//	    logger,
//	)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    City:    "Paris",
//	    Country: "France",
//	    Theme:   "noir",
//	})
//
// [classify]: github.com/matzehuels/cityposter/pkg/classify
// [theme]: github.com/matzehuels/cityposter/pkg/theme
// [geo]: github.com/matzehuels/cityposter/pkg/geo
// [render]: github.com/matzehuels/cityposter/pkg/render
// [cache]: github.com/matzehuels/cityposter/pkg/cache
// [storage]: github.com/matzehuels/cityposter/pkg/storage
// [jobs]: github.com/matzehuels/cityposter/pkg/jobs
// [config]: github.com/matzehuels/cityposter/pkg/config
// [observability]: github.com/matzehuels/cityposter/pkg/observability
// [integrations]: github.com/matzehuels/cityposter/pkg/integrations
// [integrations/nominatim]: github.com/matzehuels/cityposter/pkg/integrations/nominatim
// [integrations/overpass]: github.com/matzehuels/cityposter/pkg/integrations/overpass
// [render/compose]: github.com/matzehuels/cityposter/pkg/render/compose
// [render/sink]: github.com/matzehuels/cityposter/pkg/render/sink
// [pipeline]: github.com/matzehuels/cityposter/pkg/pipeline
// [server]: github.com/matzehuels/cityposter/pkg/server
package pkg
