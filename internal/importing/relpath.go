package importing

import "path/filepath"

// Relpath returns a normalizer that maps a filename to a path relative to
// base. Files that cannot be expressed relative to base, for instance on
// another volume, keep their cleaned absolute path.
func Relpath(base string) func(string) string {
	absBase, err := filepath.Abs(base)
	if err != nil {
		absBase = filepath.Clean(base)
	}

	return func(filename string) string {
		abs, err := filepath.Abs(filename)
		if err != nil {
			return filepath.Clean(filename)
		}
		rel, err := filepath.Rel(absBase, abs)
		if err != nil {
			return abs
		}
		return rel
	}
}
