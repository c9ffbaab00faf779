// Package tile defines quadtree tile addresses and per-tile outcomes.
//
// An [Address] is a slippy-map coordinate (z, x, y) where each zoom level
// splits the world into a 2^z by 2^z grid. [Enumerate] yields every address
// for zoom levels 0 through a maximum, and [Key] and [URL] derive the
// storage key and the remote URL for one address.
//
// # Outcomes
//
// Running one tile task produces exactly one [Outcome]:
//
//	tile.Fetched(n)              // downloaded and stored n bytes
//	tile.AlreadyPresent()        // found in the store, nothing fetched
//	tile.Failed(kind, err)       // fetch or write failed
package tile
