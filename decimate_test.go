package decimate

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// simplifyChecked mirrors the Simplify loop but verifies the structural
// invariants, the face counter, and that each accepted collapse removes
// exactly the active faces incident to the collapsed edge.
func simplifyChecked(t *testing.T, m *Mesh, target int) Result {
	t.Helper()
	m.rebuildTopology()
	m.accumulateQuadrics()
	checkInvariants(t, m)

	seeds := make([]Edge, len(m.edges))
	for i, e := range m.edges {
		c := m.contract(e.V0, e.V1)
		seeds[i] = Edge{V0: e.V0, V1: e.V1, Cost: c.cost, Target: c.target}
	}
	h := &edgeHeap{}
	h.seed(seeds)

	active := m.ActiveFaces()
	var res Result
	for active > target && h.Len() > 0 {
		e := h.pop()
		if m.Vertices[e.V0].Removed || m.Vertices[e.V1].Removed {
			continue
		}
		if !m.validPair(e.V0, e.V1, e.Target) {
			continue
		}
		if e.Cost < -1e-9 {
			t.Fatalf("accepted collapse with negative cost %g", e.Cost)
		}
		// Every face incident to the collapsed edge degenerates, and no
		// other face is lost. Late in a run an edge may have no incident
		// face left (its endpoints stay adjacent after a neighbor
		// collapse); such a collapse removes no faces.
		incident := 0
		for i := range m.Faces {
			f := &m.Faces[i]
			if f.Removed {
				continue
			}
			hasA, hasB := false, false
			for _, v := range f.V {
				hasA = hasA || v == e.V0
				hasB = hasB || v == e.V1
			}
			if hasA && hasB {
				incident++
			}
		}
		removed := m.collapse(e, h)
		if removed != incident {
			t.Fatalf("collapse of (%d,%d) removed %d faces, want %d", e.V0, e.V1, removed, incident)
		}
		active -= removed
		res.Collapses++
		checkInvariants(t, m)
		if got := m.ActiveFaces(); got != active {
			t.Fatalf("face counter drifted: counted %d, scanned %d", active, got)
		}
	}
	m.reindex()
	res.ActiveFaces = active
	res.TargetReached = active <= target
	return res
}

func TestSingleTriangleNoop(t *testing.T) {
	// S1: simplifying a single triangle to one face changes nothing.
	m := NewMesh()
	m.AddVertex(r3.Vec{})
	m.AddVertex(r3.Vec{X: 1})
	m.AddVertex(r3.Vec{Y: 1})
	m.AddFace(0, 1, 2)

	res := Simplify(m, Options{TargetFaces: 1})
	if res.Collapses != 0 || res.ActiveFaces != 1 || !res.TargetReached {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(m.Vertices) != 3 || len(m.Faces) != 1 {
		t.Fatalf("mesh changed: %d vertices, %d faces", len(m.Vertices), len(m.Faces))
	}
	if m.Vertices[1].Pos != (r3.Vec{X: 1}) {
		t.Fatalf("vertex moved: %+v", m.Vertices[1].Pos)
	}
}

func TestTetrahedronToTwoFaces(t *testing.T) {
	// S2: one accepted collapse takes the tetrahedron from four faces
	// to two, and the survivor lands at the cost oracle's solution for
	// the collapsed edge.
	expected := tetraMesh()
	expected.rebuildTopology()
	expected.accumulateQuadrics()
	// Seeding order makes (0,1) the first equal-cost pop.
	want := expected.contract(0, 1)

	m := tetraMesh()
	res := Simplify(m, Options{TargetFaces: 2})
	if res.Collapses != 1 {
		t.Fatalf("took %d collapses, want 1", res.Collapses)
	}
	if res.ActiveFaces != 2 || !res.TargetReached {
		t.Fatalf("unexpected result %+v", res)
	}
	if r3.Norm(r3.Sub(m.Vertices[0].Pos, want.target)) > 1e-12 {
		t.Fatalf("survivor at %+v, want %+v", m.Vertices[0].Pos, want.target)
	}
}

func TestQuadCollapsesOnTies(t *testing.T) {
	// S4 on the documented first-pushed-first-popped tie rule: the
	// first seeded edge of the flat quad is the boundary edge (0,1),
	// whose collapse degenerates one of the two faces.
	m := quadMesh()
	res := Simplify(m, Options{TargetFaces: 1})
	if res.Collapses != 1 || res.ActiveFaces != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	// Driving the same quad to zero empties the mesh entirely.
	m = quadMesh()
	res = Simplify(m, Options{TargetFaces: 0})
	if res.ActiveFaces != 0 || !res.TargetReached {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(m.Faces) != 0 {
		t.Fatalf("%d faces survived a target of zero", len(m.Faces))
	}
}

func TestColinearFaceSurvives(t *testing.T) {
	// A colinear face contributes no quadric and previews as a sliver,
	// so it neither poisons costs nor triggers flip rejections, and it
	// is carried through to the output untouched when it survives.
	m := NewMesh()
	m.AddVertex(r3.Vec{})
	m.AddVertex(r3.Vec{X: 1})
	m.AddVertex(r3.Vec{Y: 1})
	m.AddVertex(r3.Vec{X: 2, Y: 1})
	m.AddVertex(r3.Vec{X: 3}) // colinear with vertices 0 and 1
	m.AddFace(0, 1, 2)
	m.AddFace(1, 3, 2)
	m.AddFace(0, 1, 4)

	res := Simplify(m, Options{TargetFaces: 3})
	if res.Collapses != 0 {
		t.Fatalf("simplify at target collapsed %d edges", res.Collapses)
	}
	found := false
	for i := range m.Faces {
		f := m.Faces[i]
		p0 := m.Vertices[f.V[0]].Pos
		p1 := m.Vertices[f.V[1]].Pos
		p2 := m.Vertices[f.V[2]].Pos
		n := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
		if r3.Norm(n) < 1e-9 {
			found = true
		}
	}
	if !found {
		t.Fatal("degenerate face did not survive to output")
	}
}

func TestQueueExhaustionReported(t *testing.T) {
	// Every triple of five vertices as a face makes every edge
	// non-manifold (three or more shared neighbors), so no collapse is
	// ever accepted and the queue drains before the target.
	m := NewMesh()
	pts := []r3.Vec{
		{X: 1, Y: 1, Z: 1},
		{X: 1, Y: -1, Z: -1},
		{X: -1, Y: 1, Z: -1},
		{X: -1, Y: -1, Z: 1},
		{},
	}
	for _, p := range pts {
		m.AddVertex(p)
	}
	for a := 0; a < 5; a++ {
		for b := a + 1; b < 5; b++ {
			for c := b + 1; c < 5; c++ {
				m.AddFace(a, b, c)
			}
		}
	}
	res := Simplify(m, Options{TargetFaces: 4})
	if res.Collapses != 0 {
		t.Fatalf("accepted %d collapses on a fully non-manifold mesh", res.Collapses)
	}
	if res.TargetReached {
		t.Fatal("target reported reached after queue exhaustion")
	}
	if res.ActiveFaces != 10 {
		t.Fatalf("active faces %d, want 10", res.ActiveFaces)
	}
}

func TestIdempotenceAtTarget(t *testing.T) {
	m := octaMesh()
	before := len(m.Faces)
	res := Simplify(m, Options{TargetFaces: before})
	if res.Collapses != 0 {
		t.Fatalf("simplify at target performed %d collapses", res.Collapses)
	}
	if len(m.Faces) != before || len(m.Vertices) != 6 {
		t.Fatalf("mesh changed: %d faces, %d vertices", len(m.Faces), len(m.Vertices))
	}
}

func TestSimplifyKeepsInvariants(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mesh   func() *Mesh
		target int
	}{
		{"octahedron", octaMesh, 4},
		{"closed tetra", tetraMesh, 2},
		{"open grid", func() *Mesh { return gridMesh(4) }, 8},
		{"grid to nothing", func() *Mesh { return gridMesh(2) }, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := tc.mesh()
			res := simplifyChecked(t, m, tc.target)
			checkInvariants(t, m)
			if res.ActiveFaces > tc.target && res.TargetReached {
				t.Fatalf("inconsistent result %+v", res)
			}
		})
	}
}

func TestSimplifyDeterministic(t *testing.T) {
	run := func() *Mesh {
		m := gridMesh(5)
		Simplify(m, Options{TargetFaces: 12})
		return m
	}
	a, b := run(), run()
	if len(a.Vertices) != len(b.Vertices) || len(a.Faces) != len(b.Faces) {
		t.Fatalf("runs disagree: %d/%d vertices, %d/%d faces",
			len(a.Vertices), len(b.Vertices), len(a.Faces), len(b.Faces))
	}
	for i := range a.Vertices {
		if a.Vertices[i].Pos != b.Vertices[i].Pos {
			t.Fatalf("vertex %d differs between runs: %+v vs %+v",
				i, a.Vertices[i].Pos, b.Vertices[i].Pos)
		}
	}
	for i := range a.Faces {
		if a.Faces[i].V != b.Faces[i].V {
			t.Fatalf("face %d differs between runs: %v vs %v", i, a.Faces[i].V, b.Faces[i].V)
		}
	}
}

func TestProgressCallback(t *testing.T) {
	// 288 starting faces need over 140 collapses, enough to cross the
	// progress stride at least once.
	var calls int
	m := gridMesh(12)
	Simplify(m, Options{
		TargetFaces: 2,
		Progress:    func(active, target int) { calls++ },
	})
	if calls == 0 {
		t.Fatal("progress callback never invoked on a large reduction")
	}
}

func TestRecordCosts(t *testing.T) {
	m := octaMesh()
	res := Simplify(m, Options{TargetFaces: 4, RecordCosts: true})
	if len(res.Costs) != res.Collapses {
		t.Fatalf("recorded %d costs for %d collapses", len(res.Costs), res.Collapses)
	}
	for i, c := range res.Costs {
		if c < -1e-9 {
			t.Fatalf("collapse %d recorded negative cost %g", i, c)
		}
	}
}
