package domain

import (
	"math"

	h3 "github.com/uber/h3-go/v4"
)

const (
	earthRadiusKM = 6371.0

	// KMPerDegree is the approximate surface distance of one degree of
	// latitude. Longitude degrees shrink with cos(lat); the clustering
	// feature space applies that correction per point.
	KMPerDegree = 111.32

	// DefaultCellResolution is the H3 resolution used for coarse spatial
	// bucketing. Resolution 5 cells are roughly tens of kilometers wide,
	// wide enough that the cell is only ever a prefilter, never the sole
	// matching criterion.
	DefaultCellResolution = 5
)

// CellOf maps a coordinate to its hexagonal cell index at the given
// resolution. Deterministic; behavior is undefined for out-of-range
// coordinates, which callers must validate beforehand.
func CellOf(lat, lon float64, resolution int) string {
	return h3.LatLngToCell(h3.NewLatLng(lat, lon), resolution).String()
}

// DistanceKM returns the great-circle distance in kilometers between two
// coordinates, using the haversine formula on a 6371 km sphere.
func DistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	radLat1 := lat1 * math.Pi / 180
	radLat2 := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(radLat1)*math.Cos(radLat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}
