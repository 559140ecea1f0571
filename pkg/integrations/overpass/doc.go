// Package overpass fetches road, water and park geometry from the Overpass
// API.
//
// Queries request XML output with every referenced way and node, which
// [decode] turns into road polylines and area polygons. Multipolygon
// relations are assembled by joining their member ways into closed rings.
//
// Road queries honour a [Network] filter: [NetworkDrive] keeps roads open to
// cars, [NetworkAll] keeps every highway.
package overpass
