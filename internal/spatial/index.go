// Package spatial finds candidate close pairs of tracks without comparing
// every pair.
//
// Tracks are placed on a sphere of radius geo.EarthRadiusM as Cartesian
// vectors and stored in a k-d tree. The straight-line chord between two
// surface points is never longer than the great-circle arc between them, so
// a chord query of radius r returns every track whose haversine distance is
// at most r. The index therefore has no false negatives; it does return
// some pairs that are slightly farther apart, which the classifier rejects.
package spatial

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/kkgkaundal/sas/internal/geo"
	"github.com/kkgkaundal/sas/internal/track"
)

// slackM widens every query to absorb floating-point error in the chord
// computation.
const slackM = 1.0

// Pair is an unordered candidate pair. For SelfPairs both indexes refer to
// the same slice and I < J. For CrossPairs I indexes the first slice and J
// the second.
type Pair struct {
	I, J int
}

// SelfPairs returns the candidate pairs among tracks that may lie within
// radiusM of each other. Returns nil when fewer than two tracks are given.
func SelfPairs(tracks []track.Track, radiusM float64) []Pair {
	if len(tracks) < 2 || radiusM <= 0 {
		return nil
	}

	query := toPoints(tracks)
	tree := kdtree.New(append(points(nil), query...), false)
	r2 := squaredRadius(radiusM)

	var pairs []Pair
	for _, q := range query {
		for _, j := range within(tree, q, r2) {
			if j > q.idx {
				pairs = append(pairs, Pair{I: q.idx, J: j})
			}
		}
	}
	sortPairs(pairs)
	return pairs
}

// CrossPairs returns the candidate pairs (a[i], b[j]) that may lie within
// radiusM of each other. The tree is built over b. Returns nil when either
// side is empty.
func CrossPairs(a, b []track.Track, radiusM float64) []Pair {
	if len(a) == 0 || len(b) == 0 || radiusM <= 0 {
		return nil
	}

	tree := kdtree.New(toPoints(b), false)
	r2 := squaredRadius(radiusM)

	var pairs []Pair
	for _, q := range toPoints(a) {
		for _, j := range within(tree, q, r2) {
			pairs = append(pairs, Pair{I: q.idx, J: j})
		}
	}
	sortPairs(pairs)
	return pairs
}

func squaredRadius(r float64) float64 {
	r += slackM
	return r * r
}

// within returns the indexes of every tree point whose squared chord
// distance to q is at most r2, including q itself when it is in the tree.
func within(tree *kdtree.Tree, q point, r2 float64) []int {
	keep := kdtree.NewDistKeeper(r2)
	tree.NearestSet(keep, q)

	out := make([]int, 0, keep.Len())
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		out = append(out, c.Comparable.(point).idx)
	}
	return out
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(x, y int) bool {
		if pairs[x].I != pairs[y].I {
			return pairs[x].I < pairs[y].I
		}
		return pairs[x].J < pairs[y].J
	})
}

func toPoints(tracks []track.Track) points {
	pts := make(points, len(tracks))
	for i, t := range tracks {
		pts[i] = point{v: geo.SurfaceVector(t.Lat, t.Lon), idx: i}
	}
	return pts
}
