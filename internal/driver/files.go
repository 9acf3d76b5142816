package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"treecomp/internal/tree"
)

// ListTreeFiles expands paths into a sorted, duplicate-free list of tree
// files. Directories are walked recursively and contribute only files with a
// known tree extension; explicitly named files are kept whatever their
// extension, and forced selects the decoder for those.
func ListTreeFiles(paths []string, forced tree.Format) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if _, ok := tree.FormatFromPath(root); !ok && forced == tree.FormatAuto {
				return nil, fmt.Errorf("%s: %w", root, tree.ErrUnknownFormat)
			}
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := tree.FormatFromPath(path); ok {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// deterministic order
	sort.Strings(files)
	return files, nil
}

// OutputPath returns where the text for the tree at path is written: next
// to the input, or under outDir mirroring the path relative to baseDir.
func OutputPath(path, outDir, baseDir string) string {
	name := filepath.Base(path)
	name = name[:len(name)-len(filepath.Ext(name))] + ".js"
	if outDir == "" {
		return filepath.Join(filepath.Dir(path), name)
	}
	dir := filepath.Dir(path)
	if baseDir != "" {
		if rel, err := filepath.Rel(baseDir, dir); err == nil && !filepath.IsAbs(rel) && rel != ".." && !hasParentPrefix(rel) {
			return filepath.Join(outDir, rel, name)
		}
	}
	return filepath.Join(outDir, name)
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
