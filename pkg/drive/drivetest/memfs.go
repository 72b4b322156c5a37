package drivetest

import (
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/pkg/drive"
)

var (
	ErrIsDir    = errors.New("is a directory")
	ErrNotDir   = errors.New("not a directory")
	ErrNotEmpty = errors.New("directory not empty")
)

// Node is one file or directory in a MemFS.
type Node struct {
	Path    string
	Dir     bool
	Data    []byte
	ModTime time.Time
}

// Name returns the base name of the node.
func (n Node) Name() string {
	return path.Base(n.Path)
}

// MemFS is an in-memory tree used as the backing store of fake SMB
// sessions and NFS clients. Paths are drive-relative; "" is the root.
type MemFS struct {
	mu    sync.Mutex
	nodes map[string]*Node
}

// NewMemFS returns an empty tree.
func NewMemFS() *MemFS {
	return &MemFS{nodes: map[string]*Node{"": {Dir: true, ModTime: ModTime}}}
}

// NewStandardMemFS returns a tree holding StandardTree.
func NewStandardMemFS() *MemFS {
	m := NewMemFS()
	for _, f := range StandardTree {
		if f.Dir {
			m.Mkdir(f.Path)
		} else {
			m.WriteFile(f.Path, []byte(f.Content))
		}
	}
	return m
}

// Mkdir creates p and its missing parents.
func (m *MemFS) Mkdir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirLocked(drive.CleanPath(p))
}

func (m *MemFS) mkdirLocked(p string) {
	if p == "" {
		return
	}
	if _, ok := m.nodes[p]; ok {
		return
	}
	m.mkdirLocked(drive.ParentPath(p))
	m.nodes[p] = &Node{Path: p, Dir: true, ModTime: ModTime}
}

// WriteFile creates or replaces a file, creating missing parents.
func (m *MemFS) WriteFile(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = drive.CleanPath(p)
	m.mkdirLocked(drive.ParentPath(p))
	m.nodes[p] = &Node{Path: p, Data: append([]byte(nil), data...), ModTime: ModTime}
}

// Stat returns the node at p.
func (m *MemFS) Stat(p string) (Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[drive.CleanPath(p)]
	if !ok {
		return Node{}, fs.ErrNotExist
	}
	return *n, nil
}

// ReadDir returns the children of p sorted by name.
func (m *MemFS) ReadDir(p string) ([]Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = drive.CleanPath(p)
	n, ok := m.nodes[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	if !n.Dir {
		return nil, ErrNotDir
	}
	return m.childrenLocked(p), nil
}

func (m *MemFS) childrenLocked(p string) []Node {
	var out []Node
	for k, n := range m.nodes {
		if k != "" && drive.ParentPath(k) == p {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ReadFile returns a copy of the content of p.
func (m *MemFS) ReadFile(p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[drive.CleanPath(p)]
	if !ok {
		return nil, fs.ErrNotExist
	}
	if n.Dir {
		return nil, ErrIsDir
	}
	return append([]byte(nil), n.Data...), nil
}

// Remove deletes a file or an empty directory.
func (m *MemFS) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = drive.CleanPath(p)
	n, ok := m.nodes[p]
	if !ok || p == "" {
		return fs.ErrNotExist
	}
	if n.Dir && len(m.childrenLocked(p)) > 0 {
		return ErrNotEmpty
	}
	delete(m.nodes, p)
	return nil
}

// RemoveAll deletes p and everything below it.
func (m *MemFS) RemoveAll(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = drive.CleanPath(p)
	if _, ok := m.nodes[p]; !ok || p == "" {
		return fs.ErrNotExist
	}
	for k := range m.nodes {
		if k == p || strings.HasPrefix(k, p+"/") {
			delete(m.nodes, k)
		}
	}
	return nil
}

// Exists reports whether p is in the tree.
func (m *MemFS) Exists(p string) bool {
	_, err := m.Stat(p)
	return err == nil
}
