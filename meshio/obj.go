package meshio

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/abyayabk/decimate"
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// ReadOBJ reads a Wavefront OBJ mesh from r. Only the subset the
// decimator consumes is interpreted: "v" lines carry three floats and
// "f" lines carry three corners whose integer prefix before any '/'
// indexes the vertex list 1-based. Records that fail to parse are
// skipped silently since OBJ files routinely carry comments and
// unsupported directives. Faces with more than three corners are not
// supported and are skipped.
func ReadOBJ(r io.Reader) (*decimate.Mesh, error) {
	m := decimate.NewMesh()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			p, ok := parsePosition(fields[1:])
			if !ok {
				continue
			}
			m.AddVertex(p)
		case "f":
			idx, ok := parseCorners(fields[1:], len(m.Vertices))
			if !ok {
				continue
			}
			m.AddFace(idx[0], idx[1], idx[2])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// parsePosition parses the three coordinate fields of a "v" record at
// single precision and rejects non-finite values.
func parsePosition(fields []string) (r3.Vec, bool) {
	if len(fields) < 3 {
		return r3.Vec{}, false
	}
	var p [3]float64
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return r3.Vec{}, false
		}
		if v := float32(f); math32.IsNaN(v) || math32.IsInf(v, 0) {
			return r3.Vec{}, false
		}
		p[i] = f
	}
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}, true
}

// parseCorners parses the three corner tokens of an "f" record. Each
// token may be of the form i, i/t, i//n or i/t/n; only the integer
// prefix is used. Indices are converted from 1-based to 0-based and
// must reference an already-parsed vertex.
func parseCorners(fields []string, numVertices int) ([3]int, bool) {
	var idx [3]int
	if len(fields) != 3 {
		return idx, false
	}
	for i, tok := range fields {
		if slash := strings.IndexByte(tok, '/'); slash >= 0 {
			tok = tok[:slash]
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 || n > numVertices {
			return idx, false
		}
		idx[i] = n - 1
	}
	return idx, true
}

// WriteOBJ writes the active geometry of m to w: one "v" line per
// surviving vertex at single precision followed by one "f" line per
// surviving face with 1-based indices. The mesh should be compacted
// (as Simplify leaves it); removed entries are not written and their
// index gaps are not squeezed here.
func WriteOBJ(w io.Writer, m *decimate.Mesh) error {
	bw := bufio.NewWriter(w)
	for i := range m.Vertices {
		if m.Vertices[i].Removed {
			continue
		}
		p := m.Vertices[i].Pos
		bw.WriteString("v ")
		bw.WriteString(formatCoord(p.X))
		bw.WriteByte(' ')
		bw.WriteString(formatCoord(p.Y))
		bw.WriteByte(' ')
		bw.WriteString(formatCoord(p.Z))
		bw.WriteByte('\n')
	}
	for i := range m.Faces {
		f := &m.Faces[i]
		if f.Removed {
			continue
		}
		bw.WriteString("f ")
		bw.WriteString(strconv.Itoa(f.V[0] + 1))
		bw.WriteByte(' ')
		bw.WriteString(strconv.Itoa(f.V[1] + 1))
		bw.WriteByte(' ')
		bw.WriteString(strconv.Itoa(f.V[2] + 1))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// formatCoord renders a coordinate with the shortest representation
// that round-trips at single precision.
func formatCoord(v float64) string {
	return strconv.FormatFloat(float64(float32(v)), 'g', -1, 32)
}

// LoadOBJ reads an OBJ mesh from the file at path.
func LoadOBJ(path string) (*decimate.Mesh, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ReadOBJ(fp)
}

// SaveOBJ writes the active geometry of m to the file at path.
func SaveOBJ(path string, m *decimate.Mesh) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteOBJ(fp, m); err != nil {
		fp.Close()
		return err
	}
	return fp.Close()
}
