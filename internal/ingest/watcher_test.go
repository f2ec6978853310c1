package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDeliversBurstOfNewFiles(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evCh, errCh, err := StartWatcher(ctx, WatchConfig{
		Roots:    []string{root},
		Debounce: time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	const count = 200
	go func() {
		for i := 0; i < count; i++ {
			name := filepath.Join(root, fmt.Sprintf("doc_%03d.pdf", i))
			if werr := os.WriteFile(name, []byte("content"), 0o644); werr != nil {
				t.Errorf("write %s: %v", name, werr)
				return
			}
		}
	}()

	seen := map[string]bool{}
	deadline := time.After(15 * time.Second)
	for len(seen) < count {
		select {
		case p := <-evCh:
			seen[filepath.Base(p)] = true
		case werr := <-errCh:
			t.Fatalf("watch error: %v", werr)
		case <-deadline:
			t.Fatalf("received %d of %d files before timeout", len(seen), count)
		}
	}
}

func TestWatcherDebounceCoalescesRepeatedWrites(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evCh, errCh, err := StartWatcher(ctx, WatchConfig{
		Roots:    []string{root},
		Debounce: 50 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	name := filepath.Join(root, "rewritten.pdf")
	for i := 0; i < 5; i++ {
		if werr := os.WriteFile(name, []byte(fmt.Sprintf("rev %d", i)), 0o644); werr != nil {
			t.Fatalf("write: %v", werr)
		}
	}

	select {
	case p := <-evCh:
		if filepath.Base(p) != "rewritten.pdf" {
			t.Errorf("emitted %q", p)
		}
	case werr := <-errCh:
		t.Fatalf("watch error: %v", werr)
	case <-time.After(5 * time.Second):
		t.Fatal("debounced path never emitted")
	}

	// the burst must collapse into a single emission
	select {
	case p := <-evCh:
		t.Errorf("duplicate emission for %q", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherInitialScanEmitsExistingFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"))
	writeFile(t, filepath.Join(root, "b.png"))
	writeFile(t, filepath.Join(root, "notes.md"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evCh, errCh, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
	}, nil)
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case p := <-evCh:
			seen[filepath.Base(p)] = true
		case werr := <-errCh:
			t.Fatalf("watch error: %v", werr)
		case <-deadline:
			t.Fatalf("initial scan emitted %v, want a.pdf and b.png", seen)
		}
	}
	if seen["notes.md"] {
		t.Error("initial scan emitted a non-document file")
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}, nil); err == nil {
		t.Error("empty root list accepted")
	}
}
