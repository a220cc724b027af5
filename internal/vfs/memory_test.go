package vfs

import (
	"context"
	"testing"
)

func TestMemoryBasics(t *testing.T) {
	m := NewMemory()
	m.WriteFile("/pages/index.jsx", []byte("export default function Home() {}"))

	if !m.ExistsSync("/pages/index.jsx") {
		t.Fatal("expected file to exist")
	}
	if !m.IsDirectorySync("/pages") {
		t.Fatal("expected /pages to be a directory")
	}
	if m.IsDirectorySync("/pages/index.jsx") {
		t.Fatal("file should not be a directory")
	}

	entries, err := m.ReaddirSync("/pages")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0] != "index.jsx" {
		t.Fatalf("Readdir = %v", entries)
	}

	data, err := m.ReadFileSync("/pages/index.jsx")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "export default function Home() {}" {
		t.Fatalf("ReadFile = %q", data)
	}
}

func TestMemoryWatch(t *testing.T) {
	m := NewMemory()
	var events []Event
	h, err := m.Watch(context.Background(), "/pages", WatchOptions{Recursive: true}, func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	m.WriteFile("/pages/index.jsx", []byte("a"))
	m.WriteFile("/pages/index.jsx", []byte("b"))
	m.RemoveFile("/pages/index.jsx")
	m.WriteFile("/app/page.tsx", []byte("unrelated"))

	if len(events) != 3 {
		t.Fatalf("expected 3 events for /pages, got %d: %v", len(events), events)
	}
	if events[0].Op != "create" || events[1].Op != "write" || events[2].Op != "remove" {
		t.Fatalf("unexpected event ops: %v", events)
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"/a", "b"}, "/a/b"},
		{[]string{"/a/", "/b"}, "/a/b"},
		{[]string{"/a/", "//b"}, "/a/b"},
		{[]string{}, "/"},
		{[]string{"/"}, "/"},
	}
	for _, tt := range tests {
		if got := Join(tt.parts...); got != tt.want {
			t.Errorf("Join(%v) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}
