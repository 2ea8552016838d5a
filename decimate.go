// Package decimate reduces triangle meshes with quadric error metric
// edge collapses. The simplifier repeatedly collapses the edge with the
// lowest quadric error until a target active-face count is reached,
// screening each candidate for manifold violations and normal flips.
package decimate

// Options configure a Simplify run.
type Options struct {
	// TargetFaces is the active-face count at which collapsing stops.
	TargetFaces int
	// Progress, when non-nil, is invoked every progressStride accepted
	// collapses with the current active-face count and the target.
	Progress func(active, target int)
	// RecordCosts retains the cost of every accepted collapse in
	// Result.Costs, in collapse order.
	RecordCosts bool
}

// Result reports the outcome of a Simplify run.
type Result struct {
	// Collapses is the number of accepted edge collapses.
	Collapses int
	// ActiveFaces is the face count after simplification.
	ActiveFaces int
	// TargetReached is false when the candidate queue ran dry before the
	// target face count was met. Not an error: the mesh is left at
	// whatever count remained.
	TargetReached bool
	// Costs is the per-collapse cost history, when requested.
	Costs []float64
}

const progressStride = 100

// Simplify collapses minimum-error edges of m until at most
// opt.TargetFaces active faces remain or no further collapse passes the
// validity screens. The surviving mesh is compacted: removed vertices
// and faces are discarded and face indices rewritten.
//
// The run is single-threaded and deterministic: candidates with equal
// cost are collapsed in the order they were pushed.
func Simplify(m *Mesh, opt Options) Result {
	m.rebuildTopology()
	m.accumulateQuadrics()

	seeds := make([]Edge, len(m.edges))
	for i, e := range m.edges {
		c := m.contract(e.V0, e.V1)
		seeds[i] = Edge{V0: e.V0, V1: e.V1, Cost: c.cost, Target: c.target}
	}
	h := &edgeHeap{}
	h.seed(seeds)

	active := m.ActiveFaces()
	var res Result
	for active > opt.TargetFaces && h.Len() > 0 {
		e := h.pop()
		// Staleness filter: a collapsed endpoint means the record
		// predates a collapse on its 1-ring.
		if m.Vertices[e.V0].Removed || m.Vertices[e.V1].Removed {
			continue
		}
		// Invalid candidates are dropped, not re-queued; the edge
		// reappears through re-seeding if it stays on a surviving 1-ring.
		if !m.validPair(e.V0, e.V1, e.Target) {
			continue
		}
		active -= m.collapse(e, h)
		res.Collapses++
		if opt.RecordCosts {
			res.Costs = append(res.Costs, e.Cost)
		}
		if opt.Progress != nil && res.Collapses%progressStride == 0 {
			opt.Progress(active, opt.TargetFaces)
		}
	}
	m.reindex()
	res.ActiveFaces = active
	res.TargetReached = active <= opt.TargetFaces
	return res
}
