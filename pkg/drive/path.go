package drive

import (
	"path"
	"strings"
)

// Reconcile turns an href returned by a server into a path relative to
// base.
//
// It scans base from the left for the first position i where base[i:] is a
// prefix of href, and strips that prefix from href. When no position
// matches, href is kept as is. One leading "/" is then removed. This
// tolerates servers answering with host-relative hrefs ("/dav/a.txt") for a
// base configured as an absolute URL ("http://h/dav").
func Reconcile(base, href string) string {
	rel := href
	if href != "" {
		for i := 0; i < len(base); i++ {
			if base[i] != href[0] {
				continue
			}
			if strings.HasPrefix(href, base[i:]) {
				rel = href[len(base)-i:]
				break
			}
		}
	}
	return strings.TrimPrefix(rel, "/")
}

// CleanPath normalizes a drive-relative path: no leading or trailing "/",
// no "." or ".." elements that stay within the root, and "" for the root.
func CleanPath(p string) string {
	p = path.Clean("/" + p)
	if p == "/" {
		return ""
	}
	return strings.TrimPrefix(p, "/")
}

// JoinPath joins drive-relative path elements.
func JoinPath(elem ...string) string {
	return CleanPath(path.Join(elem...))
}

// ParentPath returns the directory containing p ("" for top-level entries).
func ParentPath(p string) string {
	dir := path.Dir(CleanPath(p))
	if dir == "." {
		return ""
	}
	return dir
}
