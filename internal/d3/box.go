package d3

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Box is a 3d bounding box.
type Box r3.Box

// Include enlarges a 3d box to include a point.
func (a Box) Include(v r3.Vec) Box {
	return Box{
		Min: MinElem(a.Min, v),
		Max: MaxElem(a.Max, v),
	}
}

// Size returns the size of a 3d box.
func (a Box) Size() r3.Vec {
	return r3.Sub(a.Max, a.Min)
}

// Center returns the center of a 3d box.
func (a Box) Center() r3.Vec {
	return r3.Add(a.Min, r3.Scale(0.5, a.Size()))
}

// Equals test the equality of 3d boxes.
func (a Box) Equals(b Box, tol float64) bool {
	return EqualWithin(a.Min, b.Min, tol) && EqualWithin(a.Max, b.Max, tol)
}
