package decimate

import (
	"container/heap"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// sliverNormal marks a previewed face as collapsed to a sliver; such
	// faces are skipped by the flip screen since the executor removes them.
	sliverNormal = 1e-12
	// normalFlipTol admits slight rotations in nearly flat neighborhoods
	// that a strict sign test would spuriously reject.
	normalFlipTol = -0.001
)

// validPair screens the collapse of (vA, vB) to target. It rejects
// out-of-range or removed endpoints, collapses that would create
// non-manifold geometry, and collapses that invert a face normal.
func (m *Mesh) validPair(vA, vB int, target r3.Vec) bool {
	if vA < 0 || vB < 0 || vA >= len(m.Vertices) || vB >= len(m.Vertices) {
		return false
	}
	if m.Vertices[vA].Removed || m.Vertices[vB].Removed {
		return false
	}

	// Manifold screen. On a closed orientable 2-manifold an interior edge
	// has exactly two opposite vertices and a boundary edge has one; more
	// shared neighbors means the collapse would pinch or fold the surface.
	na, nb := m.neighbors[vA], m.neighbors[vB]
	if len(nb) < len(na) {
		na, nb = nb, na
	}
	common := 0
	for n := range na {
		if _, ok := nb[n]; ok {
			common++
		}
	}
	if common > 2 {
		return false
	}

	// Normal-flip screen over every active face touching either endpoint.
	for i := range m.Faces {
		f := &m.Faces[i]
		if f.Removed {
			continue
		}
		if f.V[0] != vA && f.V[1] != vA && f.V[2] != vA &&
			f.V[0] != vB && f.V[1] != vB && f.V[2] != vB {
			continue
		}
		p0 := m.Vertices[f.V[0]].Pos
		p1 := m.Vertices[f.V[1]].Pos
		p2 := m.Vertices[f.V[2]].Pos
		oldN := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))

		// Preview the face with the collapse applied.
		q0, q1, q2 := p0, p1, p2
		if f.V[0] == vA || f.V[0] == vB {
			q0 = target
		}
		if f.V[1] == vA || f.V[1] == vB {
			q1 = target
		}
		if f.V[2] == vA || f.V[2] == vB {
			q2 = target
		}
		newN := r3.Cross(r3.Sub(q1, q0), r3.Sub(q2, q0))
		if r3.Norm(newN) < sliverNormal {
			continue
		}
		if r3.Dot(oldN, newN) < normalFlipTol {
			return false
		}
	}
	return true
}

// collapse applies an accepted edge collapse. vA survives at the target
// position and absorbs vB's quadric; vB is removed; faces referencing vB
// are relabeled to vA and dropped when that makes two corners coincide;
// the adjacency of vB migrates to vA; finally every edge on vA's new
// 1-ring is re-costed and pushed. Returns the number of faces removed.
// Precondition: validPair reported true for (vA, vB, target).
func (m *Mesh) collapse(e Edge, h *edgeHeap) int {
	vA, vB := e.V0, e.V1
	m.Vertices[vA].Pos = e.Target
	qa := m.Vertices[vA].quadric
	qa.AddSym(qa, m.Vertices[vB].quadric)
	m.Vertices[vB].Removed = true

	removed := 0
	for i := range m.Faces {
		f := &m.Faces[i]
		if f.Removed {
			continue
		}
		changed := false
		for j := 0; j < 3; j++ {
			if f.V[j] == vB {
				f.V[j] = vA
				changed = true
			}
		}
		if changed && (f.V[0] == f.V[1] || f.V[1] == f.V[2] || f.V[2] == f.V[0]) {
			f.Removed = true
			removed++
		}
	}

	// Adjacency migration.
	for n := range m.neighbors[vB] {
		if n == vA {
			continue
		}
		delete(m.neighbors[n], vB)
		m.neighbors[n][vA] = struct{}{}
		m.neighbors[vA][n] = struct{}{}
	}
	delete(m.neighbors[vA], vB)
	m.neighbors[vB] = make(map[int]struct{})

	// Re-seed the queue from vA's surviving 1-ring. Neighbors are visited
	// in ascending index order so push order does not depend on map
	// iteration order. Stale records for affected edges stay in the heap
	// and are filtered on pop.
	for _, n := range m.Neighbors(vA) {
		c := m.contract(vA, n)
		h.push(Edge{V0: vA, V1: n, Cost: c.cost, Target: c.target})
	}
	return removed
}

// heapRecord is an Edge plus its push sequence number. Records with equal
// cost pop in push order, which keeps the collapse loop deterministic.
type heapRecord struct {
	Edge
	seq uint64
}

// edgeHeap is a lazy min-heap of collapse candidates keyed by cost. The
// same logical edge may appear several times with stale costs; staleness
// is detected on pop rather than by decrease-key, trading heap bloat for
// O(log n) pushes and no auxiliary index.
type edgeHeap struct {
	records []heapRecord
	nextSeq uint64
}

func (h *edgeHeap) Len() int { return len(h.records) }

func (h *edgeHeap) Less(i, j int) bool {
	a, b := &h.records[i], &h.records[j]
	if a.Cost != b.Cost {
		return a.Cost < b.Cost
	}
	return a.seq < b.seq
}

func (h *edgeHeap) Swap(i, j int) {
	h.records[i], h.records[j] = h.records[j], h.records[i]
}

func (h *edgeHeap) Push(x interface{}) {
	h.records = append(h.records, x.(heapRecord))
}

func (h *edgeHeap) Pop() interface{} {
	old := h.records
	n := len(old)
	x := old[n-1]
	h.records = old[:n-1]
	return x
}

// push enqueues e with the next sequence number.
func (h *edgeHeap) push(e Edge) {
	heap.Push(h, heapRecord{Edge: e, seq: h.nextSeq})
	h.nextSeq++
}

// pop dequeues the lowest-cost record.
func (h *edgeHeap) pop() Edge {
	return heap.Pop(h).(heapRecord).Edge
}

// seed fills the heap from already-costed edges without pairwise sifting.
func (h *edgeHeap) seed(edges []Edge) {
	h.records = h.records[:0]
	for _, e := range edges {
		h.records = append(h.records, heapRecord{Edge: e, seq: h.nextSeq})
		h.nextSeq++
	}
	heap.Init(h)
}
