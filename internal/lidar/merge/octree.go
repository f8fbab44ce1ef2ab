package merge

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lodexport/internal/lidar/geometry"
)

// MaxDepth caps subdivision for very small merge distances.
const MaxDepth = 21

const noChild int32 = -1

type node struct {
	box      geometry.Box
	children [8]int32
	items    []int
	depth    int
}

// Index is a sparse octree of caller-supplied integer handles.
type Index struct {
	nodes    []node
	leafSize float64
	depth    int
}

// NewIndex creates an index whose cubic root encloses bounds expanded by
// mergeDistance. Nodes stop subdividing once their edge is <= mergeDistance.
func NewIndex(bounds geometry.Box, mergeDistance float64) *Index {
	center := r3.Vec{}
	half := 1.0
	if !bounds.IsEmpty() {
		center = bounds.Center()
		size := bounds.Size()
		half = math.Max(size.X, math.Max(size.Y, size.Z))/2 + math.Max(mergeDistance, 0)
		if half <= 0 {
			half = 1
		}
	}
	ext := r3.Vec{X: half, Y: half, Z: half}
	idx := &Index{leafSize: mergeDistance}
	idx.nodes = append(idx.nodes, newNode(geometry.Box{Min: r3.Sub(center, ext), Max: r3.Add(center, ext)}, 0))
	return idx
}

func newNode(b geometry.Box, depth int) node {
	n := node{box: b, depth: depth}
	for i := range n.children {
		n.children[i] = noChild
	}
	return n
}

// Insert stores handle at position p. It returns false if p lies outside
// the root box.
func (x *Index) Insert(p r3.Vec, handle int) bool {
	if !x.nodes[0].box.Contains(p) {
		return false
	}
	cur := int32(0)
	for {
		n := &x.nodes[cur]
		if n.depth >= MaxDepth || n.box.Max.X-n.box.Min.X <= x.leafSize {
			n.items = append(n.items, handle)
			if n.depth > x.depth {
				x.depth = n.depth
			}
			return true
		}
		oct, childBox := octant(n.box, p)
		child := n.children[oct]
		if child == noChild {
			child = int32(len(x.nodes))
			depth := n.depth + 1
			// n is invalidated by the append below.
			x.nodes[cur].children[oct] = child
			x.nodes = append(x.nodes, newNode(childBox, depth))
		}
		cur = child
	}
}

func octant(b geometry.Box, p r3.Vec) (int, geometry.Box) {
	c := b.Center()
	child := b
	oct := 0
	if p.X >= c.X {
		oct |= 1
		child.Min.X = c.X
	} else {
		child.Max.X = c.X
	}
	if p.Y >= c.Y {
		oct |= 2
		child.Min.Y = c.Y
	} else {
		child.Max.Y = c.Y
	}
	if p.Z >= c.Z {
		oct |= 4
		child.Min.Z = c.Z
	} else {
		child.Max.Z = c.Z
	}
	return oct, child
}

// Query calls fn for every handle stored in a node whose box intersects the
// sphere. Handles farther than radius may be reported; none within radius
// are missed. Returning false from fn stops the walk.
func (x *Index) Query(center r3.Vec, radius float64, fn func(handle int) bool) {
	stack := []int32{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &x.nodes[i]
		if !n.box.IntersectsSphere(center, radius) {
			continue
		}
		for _, h := range n.items {
			if !fn(h) {
				return
			}
		}
		for _, c := range n.children {
			if c != noChild {
				stack = append(stack, c)
			}
		}
	}
}

// Candidates collects the handles Query would report.
func (x *Index) Candidates(center r3.Vec, radius float64) []int {
	var out []int
	x.Query(center, radius, func(h int) bool {
		out = append(out, h)
		return true
	})
	return out
}

// NodeCount returns the number of allocated nodes, root included.
func (x *Index) NodeCount() int { return len(x.nodes) }

// Depth returns the deepest level holding handles.
func (x *Index) Depth() int { return x.depth }
