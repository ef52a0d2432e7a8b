//go:build !unix

package scanner

import "path/filepath"

// dirIdentity falls back to the fully resolved path where inodes are unavailable.
func dirIdentity(path string) (dirKey, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return dirKey{}, err
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return dirKey{}, err
	}
	return dirKey{path: abs}, nil
}

