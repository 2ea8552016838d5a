package meshio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/abyayabk/decimate"
	"github.com/abyayabk/decimate/internal/d3"
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// stlHeader defines the STL file header.
type stlHeader struct {
	_     [80]uint8 // Header
	Count uint32    // Number of triangles
}

// stlTriangle defines the triangle data within an STL file.
type stlTriangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
	_       uint16 // Attribute byte count
}

const stlTriangleSize = 50

// WriteSTL writes model triangles to a writer in binary STL format.
func WriteSTL(w io.Writer, model []decimate.Triangle) error {
	if len(model) == 0 {
		return errors.New("empty triangle slice")
	}
	header := stlHeader{
		Count: uint32(len(model)),
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	var d stlTriangle
	var b [stlTriangleSize]byte
	for _, triangle := range model {
		n := triangle.Normal()
		d.Normal[0] = float32(n.X)
		d.Normal[1] = float32(n.Y)
		d.Normal[2] = float32(n.Z)
		d.Vertex1 = to3F32(triangle.V[0])
		d.Vertex2 = to3F32(triangle.V[1])
		d.Vertex3 = to3F32(triangle.V[2])
		d.put(b[:])
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadSTL reads every triangle of a binary STL stream. Triangles with
// non-finite coordinates are rejected.
func ReadSTL(r io.Reader) ([]decimate.Triangle, error) {
	var header stlHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.New("encountered EOF while reading STL header")
		}
		return nil, fmt.Errorf("STL header read failed: %w", err)
	}
	if header.Count == 0 {
		return nil, errors.New("STL header indicates 0 triangles present")
	}
	output := make([]decimate.Triangle, 0, header.Count)
	var (
		buf [stlTriangleSize]byte
		d   stlTriangle
	)
	for i := 0; i < int(header.Count); i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%d/%d STL triangles read: %w", i, header.Count, err)
		}
		d.get(buf[:])
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("STL triangle %d: %w", i+1, err)
		}
		output = append(output, decimate.Triangle{V: [3]r3.Vec{
			r3From3F32(d.Vertex1),
			r3From3F32(d.Vertex2),
			r3From3F32(d.Vertex3),
		}})
	}
	return output, nil
}

func (t stlTriangle) put(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to marshal stlTriangle")
	}
	put3F32(b, t.Normal)
	put3F32(b[12:], t.Vertex1)
	put3F32(b[24:], t.Vertex2)
	put3F32(b[36:], t.Vertex3)
	binary.LittleEndian.PutUint16(b[48:], 0)
}

func (t *stlTriangle) get(b []byte) {
	if len(b) < stlTriangleSize {
		panic("need length 50 to unmarshal stlTriangle")
	}
	get3F32(b, &t.Normal)
	get3F32(b[12:], &t.Vertex1)
	get3F32(b[24:], &t.Vertex2)
	get3F32(b[36:], &t.Vertex3)
	// no attributes supported.
}

func (t stlTriangle) validate() error {
	if bad3F32(t.Normal) {
		return errors.New("inf/NaN STL triangle normal")
	}
	if bad3F32(t.Vertex1) || bad3F32(t.Vertex2) || bad3F32(t.Vertex3) {
		return errors.New("inf/NaN STL triangle vertex")
	}
	return nil
}

func put3F32(b []byte, f [3]float32) {
	_ = b[11] // early bounds check
	binary.LittleEndian.PutUint32(b, math.Float32bits(f[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f[2]))
}

func get3F32(b []byte, f *[3]float32) {
	_ = b[11] // early bounds check
	f[0] = math.Float32frombits(binary.LittleEndian.Uint32(b))
	f[1] = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f[2] = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
}

func bad3F32(f [3]float32) bool {
	return math32.IsNaN(f[0]) || math32.IsInf(f[0], 0) ||
		math32.IsNaN(f[1]) || math32.IsInf(f[1], 0) ||
		math32.IsNaN(f[2]) || math32.IsInf(f[2], 0)
}

func to3F32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func r3From3F32(f [3]float32) r3.Vec {
	return r3.Vec{X: float64(f[0]), Y: float64(f[1]), Z: float64(f[2])}
}

// WeldTriangles builds an indexed mesh from a triangle soup, sharing
// vertices that land on the same cell of an integer lattice of spacing
// tol. tol should be of the order of 1/1000th of the smallest triangle
// side in the model; if zero it is inferred from the model.
func WeldTriangles(model []decimate.Triangle, tol float64) (*decimate.Mesh, error) {
	if len(model) == 0 {
		return nil, errors.New("empty triangle slice")
	}
	bb := d3.Box{Min: d3.Elem(math.MaxFloat64), Max: d3.Elem(-math.MaxFloat64)}
	minDist2 := math.MaxFloat64
	maxDist2 := -math.MaxFloat64
	for i := range model {
		for j, vert := range model[i].V {
			bb = bb.Include(vert)
			vert2 := model[i].V[(j+1)%3]
			side2 := r3.Norm2(r3.Sub(vert2, vert))
			minDist2 = math.Min(minDist2, side2)
			maxDist2 = math.Max(maxDist2, side2)
		}
	}
	suggested := math.Sqrt(minDist2) / 256
	if tol > math.Sqrt(maxDist2)/2 {
		return nil, fmt.Errorf("vertex tolerance is too large to weld mesh, suggested tolerance: %g", suggested)
	}
	if tol == 0 {
		tol = suggested
	}
	size := bb.Size()
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	div := int64(maxDim/tol + 1e-12)
	if div <= 0 {
		return nil, errors.New("tolerance larger than model size")
	}
	if div > math.MaxInt64/2 {
		return nil, errors.New("tolerance too small. overflowed int64")
	}
	m := decimate.NewMesh()
	cache := make(map[[3]int64]int)
	ri := 1 / tol
	for i := range model {
		var idx [3]int
		for j, vert := range model[i].V {
			// Scale vert to be integer in resolution-space.
			v := r3.Scale(ri, vert)
			vi := [3]int64{int64(v.X), int64(v.Y), int64(v.Z)}
			vertexIdx, ok := cache[vi]
			if !ok {
				vertexIdx = m.AddVertex(vert)
				cache[vi] = vertexIdx
			}
			idx[j] = vertexIdx
		}
		m.AddFace(idx[0], idx[1], idx[2])
	}
	return m, nil
}

// LoadSTL reads the binary STL file at path and welds its triangle soup
// into an indexed mesh with an inferred vertex tolerance.
func LoadSTL(path string) (*decimate.Mesh, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	model, err := ReadSTL(bufio.NewReader(fp))
	if err != nil {
		return nil, err
	}
	return WeldTriangles(model, 0)
}

// SaveSTL writes the active faces of m to the binary STL file at path.
func SaveSTL(path string, m *decimate.Mesh) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(fp)
	if err := WriteSTL(bw, m.Triangles()); err != nil {
		fp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}
