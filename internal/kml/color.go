package kml

import (
	"fmt"
	"hash/fnv"
)

// Color derives a stable line color from an ICAO address. FNV-1a over the
// address bytes keeps the color identical across runs and process restarts,
// so the same aircraft always renders the same way. The result is a KML
// aabbggrr color with full opacity.
func Color(icao string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(icao))
	sum := h.Sum32()

	r := (sum >> 16) & 0xFF
	g := (sum >> 8) & 0xFF
	b := sum & 0xFF

	return fmt.Sprintf("ff%02x%02x%02x", b, g, r)
}
