package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dhamidi/unfold/include"
	"github.com/google/go-cmp/cmp"
)

func TestFiles(t *testing.T) {
	shared := include.NewNode("/src/shared.h")
	zipped := include.NewNode("/lib/bundle.zip!math.h")
	a := include.NewNode("/src/a.h")
	a.AddChild(shared)
	a.AddChild(zipped)
	root := include.NewNode("/src/main.c")
	root.AddChild(a)
	root.AddChild(include.NewNode("/src/shared.h"))
	root.AddChild(include.NewNode("relative.h"))

	want := []string{"/src/main.c", "/src/a.h", "/src/shared.h", "/lib/bundle.zip"}
	if diff := cmp.Diff(want, Files(root)); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestFileWatcher(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "watched.h")
	other := filepath.Join(dir, "other.h")
	for _, p := range []string{watched, other} {
		if err := os.WriteFile(p, []byte("v1"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	changes := make(chan []string, 4)
	w, err := NewFileWatcher(func(changed []string) {
		changes <- changed
	}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewFileWatcher error = %v", err)
	}
	if err := w.SetFiles([]string{watched}); err != nil {
		t.Fatalf("SetFiles error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(other, []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(watched, []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changes:
		if diff := cmp.Diff([]string{watched}, got); diff != "" {
			t.Errorf("changes mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
