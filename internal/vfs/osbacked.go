package vfs

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
)

// OSBacked is the real VFS implementation: it maps every VirtualPath
// directly onto a subtree of the host filesystem rooted at Root.
type OSBacked struct {
	Root string
}

// NewOSBacked returns a VFS rooted at dir.
func NewOSBacked(dir string) *OSBacked {
	return &OSBacked{Root: dir}
}

func (o *OSBacked) real(path string) string {
	return filepath.Join(o.Root, filepath.FromSlash(path))
}

func (o *OSBacked) ExistsSync(path string) bool {
	_, err := os.Stat(o.real(path))
	return err == nil
}

func (o *OSBacked) IsDirectorySync(path string) bool {
	info, err := os.Stat(o.real(path))
	return err == nil && info.IsDir()
}

func (o *OSBacked) ReaddirSync(path string) ([]string, error) {
	entries, err := os.ReadDir(o.real(path))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (o *OSBacked) ReadFileSync(path string) ([]byte, error) {
	return os.ReadFile(o.real(path))
}

type fsnotifyHandle struct {
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

func (h *fsnotifyHandle) Close() error {
	h.cancel()
	return h.watcher.Close()
}

// Watch establishes a real, fsnotify-backed subscription. When opts.Recursive
// is set, every existing subdirectory under path is added; directories
// created afterward are added when their own Create event arrives;
// internal/hmr does no re-walk of its own.
func (o *OSBacked) Watch(ctx context.Context, path string, opts WatchOptions, cb WatchFunc) (Handle, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	root := o.real(path)
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, err
	}
	if opts.Recursive {
		filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil || info == nil || !info.IsDir() || p == root {
				return nil
			}
			w.Add(p)
			return nil
		})
	}

	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				cb(Event{Op: fsnotifyOp(ev.Op), Path: toVirtual(o.Root, ev.Name)})
				if opts.Recursive && ev.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						w.Add(ev.Name)
					}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return &fsnotifyHandle{watcher: w, cancel: cancel}, nil
}

func fsnotifyOp(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	default:
		return "write"
	}
}

func toVirtual(root, real string) string {
	rel, err := filepath.Rel(root, real)
	if err != nil {
		return filepath.ToSlash(real)
	}
	return "/" + filepath.ToSlash(rel)
}
