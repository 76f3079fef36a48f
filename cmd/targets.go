package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/mdmend/config"
)

// target is a document to process and the root its output path is
// relative to.
type target struct {
	path string
	root string
}

// collectTargets expands paths into documents. Files named explicitly are
// always taken; directories are walked for files with a configured
// extension, skipping hidden directories.
func collectTargets(paths []string, fc config.FixConfig) ([]target, error) {
	var targets []target
	seen := make(map[string]bool)
	add := func(t target) {
		if !seen[t.path] {
			seen[t.path] = true
			targets = append(targets, t)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			add(target{path: p, root: filepath.Dir(p)})
			continue
		}

		root := p
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && fc.HasExtension(path) {
				add(target{path: path, root: root})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}
	return targets, nil
}

// readsStdin reports whether the arguments ask for standard input.
func readsStdin(args []string) bool {
	return len(args) == 0 || (len(args) == 1 && args[0] == "-")
}
