// Package meshio loads and stores triangle meshes for the decimator.
// Wavefront OBJ and binary STL are supported; the format of a file is
// chosen by its extension.
package meshio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/abyayabk/decimate"
)

// LoadFile reads the mesh at path, dispatching on the file extension.
func LoadFile(path string) (*decimate.Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return LoadOBJ(path)
	case ".stl":
		return LoadSTL(path)
	default:
		return nil, fmt.Errorf("unsupported mesh format %q", ext)
	}
}

// SaveFile writes the active geometry of m to path, dispatching on the
// file extension.
func SaveFile(path string, m *decimate.Mesh) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return SaveOBJ(path, m)
	case ".stl":
		return SaveSTL(path, m)
	default:
		return fmt.Errorf("unsupported mesh format %q", ext)
	}
}

// DecimateFile loads the mesh at inPath, simplifies it according to opt
// and writes the surviving geometry to outPath. It performs the same
// load, simplify and save steps that cmd/decimate runs inline.
func DecimateFile(inPath, outPath string, opt decimate.Options) (decimate.Result, error) {
	m, err := LoadFile(inPath)
	if err != nil {
		return decimate.Result{}, err
	}
	res := decimate.Simplify(m, opt)
	if err := SaveFile(outPath, m); err != nil {
		return res, err
	}
	return res, nil
}
