// Package cluster implements density-based spatiotemporal grouping of
// unclustered reports into candidate events.
package cluster

import (
	"math"

	"github.com/sahaayak/disasterhub/internal/domain"
)

// Params controls the density clustering pass.
type Params struct {
	// EpsKM is the neighborhood radius. It applies as a single Euclidean
	// radius over all three feature dimensions (lat km, lon km, time
	// hours), so by default it simultaneously bounds spatial kilometers
	// and temporal hours.
	EpsKM float64

	// MinSamples is the minimum neighborhood size for a core point.
	MinSamples int

	// MinClusterSize is the minimum number of reports with coordinates
	// required before clustering is attempted at all.
	MinClusterSize int

	// TemporalEpsHours optionally decouples the temporal bound from
	// EpsKM: when positive, the time axis is rescaled so that this many
	// hours correspond to EpsKM in feature space. Zero keeps the
	// historical conflated metric.
	TemporalEpsHours float64
}

// DefaultParams returns the standard clustering parameters.
func DefaultParams() Params {
	return Params{
		EpsKM:          10.0,
		MinSamples:     2,
		MinClusterSize: 2,
	}
}

// point is a report projected into the (km, km, hours) feature space.
type point struct {
	x, y, t float64
	idx     int // index into the input slice
}

const (
	labelUndefined = 0
	labelNoise     = -1
)

// Partition groups reports into density-based clusters. Reports without
// coordinates can never be clustered and are excluded upfront; noise
// points are dropped and stay unclustered for a future sweep. Clusters are
// emitted in discovery order, each preserving input order of its members.
// Deterministic for a fixed input and Params.
func Partition(reports []domain.Report, p Params) [][]domain.Report {
	pts := project(reports, p)
	if len(pts) < p.MinClusterSize {
		return nil
	}

	// Classic DBSCAN over the projected points. O(n²) neighbor queries
	// are acceptable at typical sweep sizes; callers run large backlogs
	// as background jobs.
	labels := make([]int, len(pts))
	cluster := 0
	for i := range pts {
		if labels[i] != labelUndefined {
			continue
		}
		neighbors := neighborsOf(pts, i, p.EpsKM)
		if len(neighbors) < p.MinSamples {
			labels[i] = labelNoise
			continue
		}
		cluster++
		labels[i] = cluster
		expand(pts, labels, neighbors, cluster, p)
	}

	if cluster == 0 {
		return nil
	}
	out := make([][]domain.Report, cluster)
	for i, pt := range pts {
		if labels[i] == labelNoise {
			continue
		}
		out[labels[i]-1] = append(out[labels[i]-1], reports[pt.idx])
	}
	return out
}

// expand grows a cluster from a core point's seed set.
func expand(pts []point, labels []int, seeds []int, cluster int, p Params) {
	for k := 0; k < len(seeds); k++ {
		j := seeds[k]
		if labels[j] == labelNoise {
			labels[j] = cluster // border point
			continue
		}
		if labels[j] != labelUndefined {
			continue
		}
		labels[j] = cluster
		more := neighborsOf(pts, j, p.EpsKM)
		if len(more) >= p.MinSamples {
			seeds = append(seeds, more...)
		}
	}
}

// neighborsOf returns indexes of all points within eps of pts[i],
// including i itself.
func neighborsOf(pts []point, i int, eps float64) []int {
	var out []int
	for j := range pts {
		if dist(pts[i], pts[j]) <= eps {
			out = append(out, j)
		}
	}
	return out
}

func dist(a, b point) float64 {
	dx := a.x - b.x
	dy := a.y - b.y
	dt := a.t - b.t
	return math.Sqrt(dx*dx + dy*dy + dt*dt)
}

// project converts reports with coordinates into the clustering feature
// space: degrees become approximate kilometers via the local
// equirectangular factor, timestamps become hours.
func project(reports []domain.Report, p Params) []point {
	timeScale := 1.0
	if p.TemporalEpsHours > 0 {
		timeScale = p.EpsKM / p.TemporalEpsHours
	}
	pts := make([]point, 0, len(reports))
	for i := range reports {
		if !reports[i].HasLocation() {
			continue
		}
		loc := reports[i].Location
		pts = append(pts, point{
			x:   loc.Lat * domain.KMPerDegree,
			y:   loc.Lon * domain.KMPerDegree * math.Cos(loc.Lat*math.Pi/180),
			t:   float64(reports[i].CreatedAt.Unix()) / 3600 * timeScale,
			idx: i,
		})
	}
	return pts
}
