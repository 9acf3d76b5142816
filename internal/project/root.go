package project

import (
	"cmp"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ManifestName is the project configuration file name.
const ManifestName = "treecomp.toml"

// FindManifest returns the treecomp.toml in startDir or its nearest ancestor.
// ok is false when no directory up to the filesystem root has one.
func FindManifest(startDir string) (path string, ok bool, err error) {
	dir, err := filepath.Abs(cmp.Or(startDir, "."))
	if err != nil {
		return "", false, err
	}
	for prev := ""; dir != prev; prev, dir = dir, filepath.Dir(dir) {
		path = filepath.Join(dir, ManifestName)
		info, err := os.Stat(path)
		switch {
		case err == nil && !info.IsDir():
			return path, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, err
		}
	}
	return "", false, nil
}
