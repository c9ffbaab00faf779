package tile

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level the enumerator accepts. Beyond it the
// per-level tile count no longer fits comfortably in an int64 total.
const MaxZoom = 30

// Address is a quadtree tile coordinate. X and Y are always in [0, 2^Z).
type Address = maptile.Tile

// New returns the address for (z, x, y).
func New(z, x, y uint32) Address {
	return maptile.New(x, y, maptile.Zoom(z))
}

// Count returns the number of addresses Enumerate yields for maxZoom.
func Count(maxZoom int) int64 {
	var total int64
	for z := 0; z <= maxZoom; z++ {
		total += int64(1) << (2 * uint(z))
	}
	return total
}

// Enumerate yields every address for zoom levels 0 through maxZoom, exactly
// once each. Order is z, then x, then y, ascending.
func Enumerate(maxZoom int) iter.Seq[Address] {
	return func(yield func(Address) bool) {
		for z := 0; z <= maxZoom; z++ {
			n := uint32(1) << uint(z)
			for x := uint32(0); x < n; x++ {
				for y := uint32(0); y < n; y++ {
					if !yield(New(uint32(z), x, y)) {
						return
					}
				}
			}
		}
	}
}

// inGrid reports whether a's x and y lie inside the grid for its zoom.
func inGrid(a Address) bool {
	if a.Z > MaxZoom {
		return false
	}
	n := uint32(1) << uint32(a.Z)
	return a.X < n && a.Y < n
}

// Key returns the store key for a: "{z}/{x}/{y}.png".
func Key(a Address) string {
	return fmt.Sprintf("%d/%d/%d.png", a.Z, a.X, a.Y)
}

// ParseKey is the inverse of Key. It rejects coordinates outside the grid
// for their zoom.
func ParseKey(key string) (Address, error) {
	parts := strings.Split(strings.TrimSuffix(key, ".png"), "/")
	if len(parts) != 3 || !strings.HasSuffix(key, ".png") {
		return Address{}, fmt.Errorf("tile: invalid key %q", key)
	}

	var nums [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Address{}, fmt.Errorf("tile: invalid key %q: %w", key, err)
		}
		nums[i] = uint32(n)
	}

	if nums[0] > MaxZoom {
		return Address{}, fmt.Errorf("tile: zoom %d out of range in key %q", nums[0], key)
	}
	a := New(nums[0], nums[1], nums[2])
	if !inGrid(a) {
		return Address{}, fmt.Errorf("tile: coordinates out of range in key %q", key)
	}
	return a, nil
}

// URL expands template for a. Templates may use {z}, {x} and {y}
// placeholders; a template without any is treated as a base URL and
// "/{z}/{x}/{y}.png" is appended.
func URL(template string, a Address) string {
	if !strings.Contains(template, "{z}") {
		return fmt.Sprintf("%s/%d/%d/%d.png", strings.TrimRight(template, "/"), a.Z, a.X, a.Y)
	}
	r := strings.NewReplacer(
		"{z}", strconv.FormatUint(uint64(a.Z), 10),
		"{x}", strconv.FormatUint(uint64(a.X), 10),
		"{y}", strconv.FormatUint(uint64(a.Y), 10),
	)
	return r.Replace(template)
}
