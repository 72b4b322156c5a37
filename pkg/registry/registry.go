package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// ErrDriveNotFound is returned when no drive is registered under a name.
var ErrDriveNotFound = errors.New("drive not found")

// Entry is a registered drive together with the information shown about it
// without contacting the server.
type Entry struct {
	Name     string
	Protocol drive.Protocol
	Detail   string
	Drive    drive.Drive
}

// Registry manages the named drives served by one process.
// It provides thread-safe registration and lookup.
//
// Example usage:
//
//	reg := NewRegistry()
//	reg.Register("nas", "alice@nas.local/media", nasDrive)
//	entry, _ := reg.Get("nas")
//	files, _ := entry.Drive.ListFiles(ctx, "/")
type Registry struct {
	mu     sync.RWMutex
	drives map[string]*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{drives: make(map[string]*Entry)}
}

// Register adds a named drive.
// Returns an error if a drive with the same name already exists.
func (r *Registry) Register(name, detail string, d drive.Drive) error {
	if d == nil {
		return fmt.Errorf("cannot register nil drive")
	}
	if name == "" {
		return fmt.Errorf("cannot register drive with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.drives[name]; exists {
		return fmt.Errorf("drive %q already registered", name)
	}

	r.drives[name] = &Entry{Name: name, Protocol: d.Protocol(), Detail: detail, Drive: d}
	logger.Debug("Drive registered", logger.Drive(name), logger.Protocol(d.Protocol().String()))
	return nil
}

// Get returns the drive registered under name.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.drives[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDriveNotFound, name)
	}
	return e, nil
}

// Remove unregisters a drive and closes its connection.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	e, ok := r.drives[name]
	delete(r.drives, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrDriveNotFound, name)
	}
	return drive.Close(e.Drive)
}

// List returns the registered drives sorted by name.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.drives))
	for _, e := range r.drives {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Count returns the number of registered drives.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.drives)
}

// Close closes every registered drive and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	drives := r.drives
	r.drives = make(map[string]*Entry)
	r.mu.Unlock()

	var errs []error
	for name, e := range drives {
		if err := drive.Close(e.Drive); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
