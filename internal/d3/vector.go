package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// R3 vector manipulation routines shared by the mesh core and the file
// readers.

// Elem returns a vector with all components set to sides.
func Elem(sides float64) r3.Vec {
	return r3.Vec{
		X: sides,
		Y: sides,
		Z: sides,
	}
}

// EqualWithin compares two vectors componentwise to within tol.
func EqualWithin(a, b r3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// MinElem return a vector with the minimum components of two vectors.
func MinElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// MaxElem return a vector with the maximum components of two vectors.
func MaxElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)}
}
