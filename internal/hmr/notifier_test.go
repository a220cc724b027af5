package hmr

import (
	"context"
	"testing"

	"github.com/vango-dev/devserver/internal/vfs"
)

func TestNotifierClassifiesChanges(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/index.jsx", []byte("a"))

	var tick int64
	n := New(fsys, nil, func() int64 { tick++; return tick })

	var events []Event
	n.Subscribe(func(e Event) { events = append(events, e) })
	n.Watch(context.Background(), "/pages")

	fsys.WriteFile("/pages/index.jsx", []byte("b"))
	fsys.WriteFile("/pages/styles.module.css", []byte(".a{}"))
	fsys.WriteFile("/pages/logo.png", []byte{0})

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].Type != EventUpdate {
		t.Errorf("js change should be update, got %v", events[0].Type)
	}
	if events[1].Type != EventUpdate {
		t.Errorf("css change should be update, got %v", events[1].Type)
	}
	if events[2].Type != EventFullReload {
		t.Errorf("png change should be full-reload, got %v", events[2].Type)
	}
}

func TestNotifierUnsubscribe(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/index.jsx", []byte("seed"))
	n := New(fsys, nil, func() int64 { return 0 })

	var count int
	unsub := n.Subscribe(func(e Event) { count++ })
	n.Watch(context.Background(), "/pages")

	fsys.WriteFile("/pages/a.js", []byte("1"))
	unsub()
	fsys.WriteFile("/pages/a.js", []byte("2"))

	if count != 1 {
		t.Fatalf("expected 1 event before unsubscribe, got %d", count)
	}
}
