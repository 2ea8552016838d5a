// Command decimate batch-simplifies a triangle mesh with quadric error
// metric edge collapses.
//
//	decimate -in bunny.obj -out bunny_lo.obj -target 5000
//
// Input and output formats are chosen by file extension (.obj or .stl).
// Optionally writes a shaded PNG snapshot of the result and a line chart
// of the collapse-cost history.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/abyayabk/decimate"
	"github.com/abyayabk/decimate/meshio"
	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	// Scale down images relative to Full HD resolution.
	FHDscaler     = 0.4
	width, height = int(1920. * FHDscaler), int(1080. * FHDscaler)
)

func main() {
	var (
		in       = flag.String("in", "", "input mesh (.obj or .stl)")
		out      = flag.String("out", "", "output mesh (.obj or .stl)")
		target   = flag.Int("target", 0, "target active-face count")
		preview  = flag.String("preview", "", "write a shaded PNG snapshot of the result")
		costplot = flag.String("costplot", "", "write a PNG line chart of collapse costs")
		verbose  = flag.Bool("v", false, "log progress during simplification")
	)
	flag.Parse()
	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *target < 0 {
		log.Fatal(errors.New("target face count must not be negative"))
	}

	m, err := meshio.LoadFile(*in)
	if err != nil {
		log.Fatal(err)
	}
	initial := m.ActiveFaces()
	bb := m.Bounds()
	if *verbose {
		log.Printf("loaded %s: %d vertices, %d faces, bounds min %+v max %+v",
			*in, len(m.Vertices), initial, bb.Min, bb.Max)
	}

	opt := decimate.Options{
		TargetFaces: *target,
		RecordCosts: *costplot != "",
	}
	if *verbose {
		opt.Progress = func(active, target int) {
			log.Printf("faces: %d / %d (target: %d)", active, initial, target)
		}
	}
	res := decimate.Simplify(m, opt)
	if err := meshio.SaveFile(*out, m); err != nil {
		log.Fatal(err)
	}
	log.Printf("%d collapses: %d faces, %d vertices written to %s",
		res.Collapses, res.ActiveFaces, len(m.Vertices), *out)
	if !res.TargetReached {
		log.Printf("candidate queue exhausted at %d faces before reaching target %d",
			res.ActiveFaces, *target)
	}

	if *preview != "" {
		if err := snapshotPNG(*out, *preview); err != nil {
			log.Fatal(err)
		}
	}
	if *costplot != "" {
		if err := plotCosts(*costplot, res.Costs); err != nil {
			log.Fatal(err)
		}
	}
}

// snapshotPNG renders the mesh file at meshPath to a shaded PNG from a
// fixed isometric view.
func snapshotPNG(meshPath, outputname string) error {
	var mesh *fauxgl.Mesh
	var err error
	switch ext := strings.ToLower(filepath.Ext(meshPath)); ext {
	case ".obj":
		mesh, err = fauxgl.LoadOBJ(meshPath)
	case ".stl":
		mesh, err = fauxgl.LoadSTL(meshPath)
	default:
		return fmt.Errorf("unsupported preview format %q", ext)
	}
	if err != nil {
		return err
	}
	const (
		scale = 1  // optional supersampling
		fovy  = 30 // vertical field of view in degrees
		near  = 1
		far   = 10
	)
	var (
		eye    = fauxgl.V(2.4, 2.4, 2.4)               // camera position
		center = fauxgl.V(0, 0, 0)                     // view center position
		up     = fauxgl.V(0, 0, 1)                     // up vector
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()  // light direction
		color  = fauxgl.HexColor("#468966")            // object color
	)
	// fit mesh in a bi-unit cube centered at the origin
	mesh.BiUnitCube()
	context := fauxgl.NewContext(width*scale, height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor("#FFF8E3"))
	aspect := float64(width) / float64(height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, near, far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	context.Shader = shader
	context.DrawMesh(mesh)
	// downsample image for antialiasing
	image := context.Image()
	image = resize.Resize(uint(width), uint(height), image, resize.Bilinear)
	return fauxgl.SavePNG(outputname, image)
}

// plotCosts charts the accepted collapse costs in collapse order.
func plotCosts(path string, costs []float64) error {
	p := plot.New()
	p.Title.Text = "edge collapse cost"
	p.X.Label.Text = "collapse"
	p.Y.Label.Text = "quadric error"
	xys := make(plotter.XYs, len(costs))
	for i, c := range costs {
		xys[i].X = float64(i)
		xys[i].Y = c
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	p.Add(line)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
