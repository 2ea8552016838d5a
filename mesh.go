package decimate

import (
	"math"
	"sort"

	"github.com/abyayabk/decimate/internal/d3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vertex is a mesh corner. A vertex is soft-deleted by setting Removed;
// storage is only compacted by the re-index pass at the end of Simplify.
type Vertex struct {
	Pos     r3.Vec
	Removed bool
	// quadric is the accumulated 4x4 error quadric. Symmetric.
	quadric *mat.SymDense
}

// Face is an index triangle into the vertex array. Winding is meaningful.
type Face struct {
	V       [3]int
	Removed bool
}

// Edge is an unordered vertex pair stored with the lower index first.
// Cost and Target are filled in when the edge is evaluated for collapse.
type Edge struct {
	V0, V1 int
	Cost   float64
	// Target is the candidate position of the surviving vertex.
	Target r3.Vec
}

// Triangle is a face resolved to its three corner positions.
type Triangle struct {
	V [3]r3.Vec
}

// Normal returns the triangle's unit normal from its winding.
func (t Triangle) Normal() r3.Vec {
	e1 := r3.Sub(t.V[1], t.V[0])
	e2 := r3.Sub(t.V[2], t.V[0])
	return r3.Unit(r3.Cross(e1, e2))
}

// Mesh is an indexed triangle mesh with soft-deletion flags and a
// dually-maintained vertex adjacency. All references between vertices and
// faces are dense non-negative indices, never pointers, so the collapse
// loop can relabel them without chasing ownership.
type Mesh struct {
	Vertices []Vertex
	Faces    []Face

	// neighbors[v] is the set of vertex indices sharing an edge with v.
	neighbors []map[int]struct{}
	// edges is the deduplicated edge list rebuilt from the face array.
	// It only seeds the collapse queue.
	edges []Edge
}

// NewMesh returns an empty mesh.
func NewMesh() *Mesh {
	return &Mesh{}
}

// AddVertex appends a vertex at p and returns its index.
func (m *Mesh) AddVertex(p r3.Vec) int {
	m.Vertices = append(m.Vertices, Vertex{Pos: p})
	return len(m.Vertices) - 1
}

// AddFace appends the triangle (a, b, c) and returns its index.
// The indices must reference vertices already added to the mesh.
func (m *Mesh) AddFace(a, b, c int) int {
	m.Faces = append(m.Faces, Face{V: [3]int{a, b, c}})
	return len(m.Faces) - 1
}

// ActiveFaces counts the faces not marked removed.
func (m *Mesh) ActiveFaces() int {
	n := 0
	for i := range m.Faces {
		if !m.Faces[i].Removed {
			n++
		}
	}
	return n
}

// ActiveVertices counts the vertices not marked removed.
func (m *Mesh) ActiveVertices() int {
	n := 0
	for i := range m.Vertices {
		if !m.Vertices[i].Removed {
			n++
		}
	}
	return n
}

// Neighbors returns the indices of vertices adjacent to v in ascending
// order. The returned slice is a copy.
func (m *Mesh) Neighbors(v int) []int {
	if m.neighbors == nil || v < 0 || v >= len(m.neighbors) {
		return nil
	}
	n := make([]int, 0, len(m.neighbors[v]))
	for i := range m.neighbors[v] {
		n = append(n, i)
	}
	sort.Ints(n)
	return n
}

// Triangles resolves every active face to its corner positions.
func (m *Mesh) Triangles() []Triangle {
	ts := make([]Triangle, 0, len(m.Faces))
	for i := range m.Faces {
		f := &m.Faces[i]
		if f.Removed {
			continue
		}
		ts = append(ts, Triangle{V: [3]r3.Vec{
			m.Vertices[f.V[0]].Pos,
			m.Vertices[f.V[1]].Pos,
			m.Vertices[f.V[2]].Pos,
		}})
	}
	return ts
}

// Bounds returns the axis-aligned bounding box of the active vertices.
func (m *Mesh) Bounds() r3.Box {
	bb := d3.Box{Min: d3.Elem(math.MaxFloat64), Max: d3.Elem(-math.MaxFloat64)}
	for i := range m.Vertices {
		if m.Vertices[i].Removed {
			continue
		}
		bb = bb.Include(m.Vertices[i].Pos)
	}
	return r3.Box(bb)
}

// rebuildTopology derives the adjacency sets and the deduplicated edge
// list from the active faces. It is the single source of truth for both;
// loaders never build their own.
func (m *Mesh) rebuildTopology() {
	m.neighbors = make([]map[int]struct{}, len(m.Vertices))
	for i := range m.neighbors {
		m.neighbors[i] = make(map[int]struct{})
	}
	m.edges = m.edges[:0]
	seen := make(map[[2]int]struct{})
	for i := range m.Faces {
		f := &m.Faces[i]
		if f.Removed {
			continue
		}
		for j := 0; j < 3; j++ {
			a, b := f.V[j], f.V[(j+1)%3]
			m.neighbors[a][b] = struct{}{}
			m.neighbors[b][a] = struct{}{}
			key := edgeKey(a, b)
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				m.edges = append(m.edges, Edge{V0: key[0], V1: key[1]})
			}
		}
	}
}

// edgeKey stores an unordered vertex pair with the lower index first.
func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// reindex compacts the vertex array by discarding removed vertices and
// rewrites every surviving face through the old-to-new index map.
// Surviving vertices keep their original relative order. Afterwards no
// removed flags remain and the adjacency is rebuilt over the compacted
// indices.
func (m *Mesh) reindex() {
	oldToNew := make([]int, len(m.Vertices))
	kept := m.Vertices[:0]
	for i := range m.Vertices {
		if m.Vertices[i].Removed {
			oldToNew[i] = -1
			continue
		}
		oldToNew[i] = len(kept)
		kept = append(kept, m.Vertices[i])
	}
	m.Vertices = kept

	keptFaces := m.Faces[:0]
	for i := range m.Faces {
		f := m.Faces[i]
		if f.Removed {
			continue
		}
		f.V[0] = oldToNew[f.V[0]]
		f.V[1] = oldToNew[f.V[1]]
		f.V[2] = oldToNew[f.V[2]]
		keptFaces = append(keptFaces, f)
	}
	m.Faces = keptFaces
	m.rebuildTopology()
}
