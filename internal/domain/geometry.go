package domain

import "time"

// Geography is the derived spatial state of an event.
type Geography struct {
	Centroid *Coordinate
	BBox     *BoundingBox
	Cell     string
}

// ComputeGeography derives centroid, bounding box, and spatial cell from a
// member snapshot. The centroid is the unweighted mean over members with
// coordinates; members without coordinates are skipped. A full recompute on
// every call avoids accumulated floating-point drift from incremental
// updates. Returns zero-value Geography when no member has coordinates.
func ComputeGeography(members []Report, resolution int) Geography {
	var (
		sumLat, sumLon float64
		n              int
		bbox           *BoundingBox
	)
	for i := range members {
		if !members[i].HasLocation() {
			continue
		}
		loc := members[i].Location
		sumLat += loc.Lat
		sumLon += loc.Lon
		n++
		if bbox == nil {
			bbox = &BoundingBox{MinLon: loc.Lon, MinLat: loc.Lat, MaxLon: loc.Lon, MaxLat: loc.Lat}
			continue
		}
		if loc.Lon < bbox.MinLon {
			bbox.MinLon = loc.Lon
		}
		if loc.Lat < bbox.MinLat {
			bbox.MinLat = loc.Lat
		}
		if loc.Lon > bbox.MaxLon {
			bbox.MaxLon = loc.Lon
		}
		if loc.Lat > bbox.MaxLat {
			bbox.MaxLat = loc.Lat
		}
	}
	if n == 0 {
		return Geography{}
	}
	centroid := &Coordinate{Lat: sumLat / float64(n), Lon: sumLon / float64(n)}
	return Geography{
		Centroid: centroid,
		BBox:     bbox,
		Cell:     CellOf(centroid.Lat, centroid.Lon, resolution),
	}
}

// TimeBounds returns the min and max created_at over the member snapshot.
// Zero times for an empty snapshot.
func TimeBounds(members []Report) (start, end time.Time) {
	for i := range members {
		t := members[i].CreatedAt
		if start.IsZero() || t.Before(start) {
			start = t
		}
		if end.IsZero() || t.After(end) {
			end = t
		}
	}
	return start, end
}

// DistinctSources counts distinct source tags in the member snapshot.
func DistinctSources(members []Report) int {
	seen := make(map[string]struct{}, len(members))
	for i := range members {
		seen[members[i].Source] = struct{}{}
	}
	return len(seen)
}
