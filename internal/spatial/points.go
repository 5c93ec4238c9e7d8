package spatial

import "gonum.org/v1/gonum/spatial/kdtree"

// point is a surface vector tagged with the index of its track.
type point struct {
	v   [3]float64
	idx int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	return p.v[d] - q.v[d]
}

func (p point) Dims() int { return 3 }

// Distance is the squared chord length, as kdtree expects.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dx := p.v[0] - q.v[0]
	dy := p.v[1] - q.v[1]
	dz := p.v[2] - q.v[2]
	return dx*dx + dy*dy + dz*dz
}

// points satisfies kdtree.Interface. New reorders it in place.
type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Pivot(d kdtree.Dim) int                { return plane{Dim: d, points: p}.Pivot() }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts points along one axis for median selection.
type plane struct {
	kdtree.Dim
	points
}

func (p plane) Less(i, j int) bool { return p.points[i].v[p.Dim] < p.points[j].v[p.Dim] }
func (p plane) Swap(i, j int)      { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
