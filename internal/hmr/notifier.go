// Package hmr implements the HMR Notifier (component F): it watches the
// routed and public directories and fans out update events, classified by
// change type, to an in-process emitter and a websocket-backed browser
// bridge.
package hmr

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/devserver/internal/errors"
	"github.com/vango-dev/devserver/internal/vfs"
)

// EventType is the kind of update delivered to subscribers.
type EventType string

const (
	EventUpdate     EventType = "update"
	EventFullReload EventType = "full-reload"
)

// Event is fanned out to both the in-process emitter and the browser bridge.
type Event struct {
	Type      EventType `json:"type"`
	Path      string    `json:"path"`
	Timestamp int64     `json:"timestamp"`
}

// Listener receives HMR events, delivered in event order.
type Listener func(Event)

// Notifier watches the routed and public VFS directories and emits
// update events. It has no opinion on delivery mechanism beyond its own
// Listener subscriptions; internal/hmr.Bridge is the websocket fan-out used
// by pkg/httpserver.
type Notifier struct {
	fsys   vfs.VFS
	logger *slog.Logger
	now    func() int64

	mu        sync.Mutex
	listeners []Listener
	handles   []vfs.Handle
}

// New constructs a Notifier. now defaults to time.Now().UnixMilli if nil;
// callers pass a fixed clock in tests for deterministic timestamps.
func New(fsys vfs.VFS, logger *slog.Logger, now func() int64) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	return &Notifier{fsys: fsys, logger: logger, now: now}
}

// Subscribe registers a listener. Returns an unsubscribe function.
func (n *Notifier) Subscribe(l Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
	idx := len(n.listeners) - 1
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.listeners[idx] = nil
	}
}

// Watch starts watching dirs recursively. A WatcherError (per the error
// table) is logged as a warning; HMR is simply disabled for that tree.
func (n *Notifier) Watch(ctx context.Context, dirs ...string) {
	for _, dir := range dirs {
		if !n.fsys.ExistsSync(dir) {
			continue
		}
		h, err := n.fsys.Watch(ctx, dir, vfs.WatchOptions{Recursive: true}, n.handleChange)
		if err != nil {
			n.logger.Warn("hmr: watch failed", "dir", dir, "error",
				errors.New("E280").WithDetail(err.Error()).FormatCompact())
			continue
		}
		n.mu.Lock()
		n.handles = append(n.handles, h)
		n.mu.Unlock()
	}
}

// Close stops all active watches.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, h := range n.handles {
		h.Close()
	}
	n.handles = nil
}

func (n *Notifier) handleChange(ev vfs.Event) {
	event := Event{
		Type:      classify(ev.Path),
		Path:      ev.Path,
		Timestamp: n.now(),
	}
	n.emit(event)
}

func (n *Notifier) emit(event Event) {
	n.mu.Lock()
	listeners := make([]Listener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, l := range listeners {
		if l != nil {
			l(event)
		}
	}
}

// classify maps a changed path to an event type: CSS and JSX/TS-family
// changes are "update" (hot-swappable); everything else is a
// "full-reload".
func classify(path string) EventType {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".css":
		return EventUpdate
	case ".jsx", ".tsx", ".js", ".ts", ".mjs", ".cjs":
		return EventUpdate
	default:
		return EventFullReload
	}
}
