package drive

// Policy controls the post-processing applied to every listing, whatever
// the backend.
type Policy struct {
	// DirectoriesFirst moves directories ahead of files, keeping the
	// server order within each group.
	DirectoriesFirst bool

	// HideHidden drops entries whose base name starts with ".".
	HideHidden bool
}

// DefaultPolicy lists directories first and hides dot files.
func DefaultPolicy() Policy {
	return Policy{DirectoriesFirst: true, HideHidden: true}
}

// Apply returns a new slice with the self-entry of dir removed and p's
// ordering and filtering applied. entries is not modified.
func (p Policy) Apply(dir string, entries []FileEntry) []FileEntry {
	self := CleanPath(dir)

	dirs := make([]FileEntry, 0, len(entries))
	files := make([]FileEntry, 0, len(entries))
	for _, e := range entries {
		if CleanPath(e.Path) == self {
			continue
		}
		if p.HideHidden && e.IsHidden() {
			continue
		}
		if p.DirectoriesFirst && e.IsDirectory {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}

	return append(dirs, files...)
}
