package bvh

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/mathx"
)

// DefaultMaxTrisPerLeaf is the default leaf threshold when a caller
// doesn't specify one.
const DefaultMaxTrisPerLeaf = 4

// maxBuildDepth caps recursion so a pathological input (e.g. every
// triangle sharing one centroid) can never blow the stack; past this
// depth a node is forced into a leaf regardless of triangle count.
const maxBuildDepth = 64

type triInfo struct {
	index    uint32 // original triangle index
	bounds   mathx.AABB
	centroid mgl32.Vec3
}

// Build constructs a BLAS over the triangles named by indices (flat
// uint32 triples into positions). Deterministic: identical inputs
// produce byte-identical Nodes/TriRefs.
func Build(positions []float32, indices []uint32, maxTrisPerLeaf int) BLAS {
	if maxTrisPerLeaf <= 0 {
		maxTrisPerLeaf = DefaultMaxTrisPerLeaf
	}
	numTris := len(indices) / 3
	tris := make([]triInfo, numTris)
	for t := 0; t < numTris; t++ {
		a, b, c := indices[t*3], indices[t*3+1], indices[t*3+2]
		va, vb, vc := vertexAt(positions, a), vertexAt(positions, b), vertexAt(positions, c)
		box := mathx.EmptyAABB().ExtendPoint(va).ExtendPoint(vb).ExtendPoint(vc)
		tris[t] = triInfo{
			index:    uint32(t),
			bounds:   box,
			centroid: va.Add(vb).Add(vc).Mul(1.0 / 3.0),
		}
	}

	b := &builder{tris: tris, maxTrisPerLeaf: maxTrisPerLeaf}
	if numTris == 0 {
		b.nodes = append(b.nodes, Node{Min: mgl32.Vec3{}, Max: mgl32.Vec3{}, Left: -1, Right: -1, TriOffset: 0, TriCount: 0})
		return BLAS{Nodes: b.nodes, TriRefs: nil}
	}

	order := make([]int, numTris)
	for i := range order {
		order[i] = i
	}
	b.order = order
	b.recurse(0, numTris, 0)

	triRefs := make([]uint32, numTris)
	for i, oi := range b.order {
		triRefs[i] = tris[oi].index
	}
	return BLAS{Nodes: b.nodes, TriRefs: triRefs}
}

func vertexAt(positions []float32, i uint32) mgl32.Vec3 {
	o := i * 3
	return mgl32.Vec3{positions[o], positions[o+1], positions[o+2]}
}

type builder struct {
	tris           []triInfo
	order          []int // permutation of tris, reordered in place during the build
	maxTrisPerLeaf int
	nodes          []Node
}

// recurse builds the subtree over order[start:end] and returns its node
// index. Matches the teacher's TLASBuilder.recursiveBuild shape:
// reserve a node slot, compute bounds, decide leaf vs. split.
func (b *builder) recurse(start, end, depth int) int32 {
	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{})

	bounds := mathx.EmptyAABB()
	for i := start; i < end; i++ {
		bounds = bounds.Union(b.tris[b.order[i]].bounds)
	}

	count := end - start
	if count <= b.maxTrisPerLeaf || depth >= maxBuildDepth {
		b.nodes[idx] = Node{
			Min: bounds.Min, Max: bounds.Max,
			Left: -1, Right: -1,
			TriOffset: uint32(start), TriCount: uint32(count),
		}
		return idx
	}

	centroidBounds := mathx.EmptyAABB()
	for i := start; i < end; i++ {
		centroidBounds = centroidBounds.ExtendPoint(b.tris[b.order[i]].centroid)
	}
	extent := centroidBounds.Max.Sub(centroidBounds.Min)
	axis := 0
	if extent.Y() > extent.X() {
		axis = 1
	}
	if extent.Z() > centroidComponent(extent, axis) {
		axis = 2
	}

	slice := b.order[start:end]
	sort.SliceStable(slice, func(i, j int) bool {
		ci := centroidComponent(b.tris[slice[i]].centroid, axis)
		cj := centroidComponent(b.tris[slice[j]].centroid, axis)
		if ci != cj {
			return ci < cj
		}
		return b.tris[slice[i]].index < b.tris[slice[j]].index
	})

	mid := start + count/2
	left := b.recurse(start, mid, depth+1)
	right := b.recurse(mid, end, depth+1)

	b.nodes[idx] = Node{
		Min: bounds.Min, Max: bounds.Max,
		Left: left, Right: right,
		TriOffset: 0, TriCount: 0,
	}
	return idx
}

func centroidComponent(v mgl32.Vec3, axis int) float32 {
	switch axis {
	case 0:
		return v.X()
	case 1:
		return v.Y()
	default:
		return v.Z()
	}
}
