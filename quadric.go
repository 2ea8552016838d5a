package decimate

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// degenerateNormal is the cross-product norm cutoff below which a
	// face is degenerate and contributes no plane quadric.
	degenerateNormal = 1e-9
	// detEpsilon gates the contraction solve. At or below it the
	// constrained system is treated as singular and the midpoint
	// fallback is taken, which avoids spike artifacts in flat or
	// symmetric neighborhoods.
	detEpsilon = 1e-4
)

// accumulateQuadrics recomputes the error quadric of every active vertex
// from the planes of its active incident faces. Q accumulates the outer
// product p*p' of each homogeneous plane p = (nx, ny, nz, -n.p0).
// Quadrics of removed vertices are left untouched. Called once at the
// start of Simplify; collapses maintain the quadrics incrementally
// afterwards.
func (m *Mesh) accumulateQuadrics() {
	for i := range m.Vertices {
		if m.Vertices[i].Removed {
			continue
		}
		m.Vertices[i].quadric = mat.NewSymDense(4, nil)
	}
	plane := mat.NewVecDense(4, nil)
	for i := range m.Faces {
		f := &m.Faces[i]
		if f.Removed {
			continue
		}
		p0 := m.Vertices[f.V[0]].Pos
		p1 := m.Vertices[f.V[1]].Pos
		p2 := m.Vertices[f.V[2]].Pos
		n := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
		if r3.Norm(n) < degenerateNormal {
			continue
		}
		n = r3.Unit(n)
		plane.SetVec(0, n.X)
		plane.SetVec(1, n.Y)
		plane.SetVec(2, n.Z)
		plane.SetVec(3, -r3.Dot(n, p0))
		for _, vi := range f.V {
			q := m.Vertices[vi].quadric
			q.SymRankOne(q, 1, plane)
		}
	}
}

// contraction is the evaluation of collapsing an edge to a single point.
type contraction struct {
	target r3.Vec
	cost   float64
	// optimal is false when the constrained system was ill-conditioned
	// and target fell back to the edge midpoint.
	optimal bool
}

// contract evaluates the collapse of (v0, v1). The combined quadric
// Qe = Q(v0) + Q(v1) is constrained by overwriting its fourth row with
// (0, 0, 0, 1); when |det| > detEpsilon the optimal position solves
// Q'*vh = (0,0,0,1), otherwise the midpoint of the endpoints is used.
// The cost is vh' * Qe * vh at the chosen position. Pure: no mesh state
// is mutated.
func (m *Mesh) contract(v0, v1 int) contraction {
	var qe mat.SymDense
	qe.AddSym(m.Vertices[v0].quadric, m.Vertices[v1].quadric)

	var qc mat.Dense
	qc.CloneFrom(&qe)
	qc.Set(3, 0, 0)
	qc.Set(3, 1, 0)
	qc.Set(3, 2, 0)
	qc.Set(3, 3, 1)

	var c contraction
	if det := mat.Det(&qc); math.Abs(det) > detEpsilon {
		rhs := mat.NewVecDense(4, []float64{0, 0, 0, 1})
		var vh mat.VecDense
		if err := vh.SolveVec(&qc, rhs); err == nil {
			c.target = r3.Vec{X: vh.AtVec(0), Y: vh.AtVec(1), Z: vh.AtVec(2)}
			c.optimal = true
		}
	}
	if !c.optimal {
		c.target = r3.Scale(0.5, r3.Add(m.Vertices[v0].Pos, m.Vertices[v1].Pos))
	}
	vh := mat.NewVecDense(4, []float64{c.target.X, c.target.Y, c.target.Z, 1})
	c.cost = mat.Inner(vh, &qe, vh)
	return c
}
