package vfs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory VFS, the test double used throughout this repo's
// test suite in place of a real project directory. Directories are implicit:
// any path that is a strict prefix of a file path is a directory.
type Memory struct {
	mu       sync.RWMutex
	files    map[string][]byte
	watchers map[string][]*memHandle
	nextID   int
}

// NewMemory constructs an empty in-memory filesystem.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// WriteFile sets (or overwrites) a file's contents and notifies any watcher
// whose path is an ancestor of it.
func (m *Memory) WriteFile(path string, data []byte) {
	m.mu.Lock()
	_, existed := m.files[path]
	m.files[path] = data
	handles := m.watchersFor(path)
	m.mu.Unlock()

	op := "write"
	if !existed {
		op = "create"
	}
	notify(handles, Event{Op: op, Path: path})
}

// RemoveFile deletes a file and notifies watchers.
func (m *Memory) RemoveFile(path string) {
	m.mu.Lock()
	delete(m.files, path)
	handles := m.watchersFor(path)
	m.mu.Unlock()

	notify(handles, Event{Op: "remove", Path: path})
}

func (m *Memory) watchersFor(path string) []*memHandle {
	var out []*memHandle
	for root, hs := range m.watchers {
		if root == "/" || path == root || strings.HasPrefix(path, root+"/") {
			out = append(out, hs...)
		}
	}
	return out
}

func notify(handles []*memHandle, ev Event) {
	for _, h := range handles {
		if h.closed {
			continue
		}
		h.cb(ev)
	}
}

func (m *Memory) ExistsSync(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[path]; ok {
		return true
	}
	return m.isDirLocked(path)
}

func (m *Memory) IsDirectorySync(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isDirLocked(path)
}

func (m *Memory) isDirLocked(path string) bool {
	if path == "/" {
		return len(m.files) > 0
	}
	prefix := path + "/"
	for f := range m.files {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}

func (m *Memory) ReaddirSync(path string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := path
	if prefix != "/" {
		prefix += "/"
	}
	seen := make(map[string]struct{})
	for f := range m.files {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		rest := f[len(prefix):]
		if rest == "" {
			continue
		}
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			rest = rest[:idx]
		}
		seen[rest] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("vfs: directory not found: %s", path)
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) ReadFileSync(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("vfs: file not found: %s", path)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

type memHandle struct {
	m      *Memory
	root   string
	cb     WatchFunc
	closed bool
}

func (h *memHandle) Close() error {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	h.closed = true
	hs := h.m.watchers[h.root]
	for i, other := range hs {
		if other == h {
			h.m.watchers[h.root] = append(hs[:i], hs[i+1:]...)
			break
		}
	}
	return nil
}

// Watch registers a callback invoked synchronously from WriteFile/RemoveFile
// calls on the matching path prefix. opts.Recursive is always honored since
// Memory has no concept of a shallow watch.
func (m *Memory) Watch(ctx context.Context, path string, opts WatchOptions, cb WatchFunc) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchers == nil {
		m.watchers = make(map[string][]*memHandle)
	}
	h := &memHandle{m: m, root: path, cb: cb}
	m.watchers[path] = append(m.watchers[path], h)
	return h, nil
}
