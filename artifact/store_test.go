package artifact

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/agentgrid/relay/core"
)

func stores(t *testing.T) map[string]core.ArtifactStore {
	t.Helper()

	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	return map[string]core.ArtifactStore{
		"in_memory": NewInMemoryStore(),
		"fs":        fs,
	}
}

func TestStore_SaveGetRoundtrip(t *testing.T) {
	for name, svc := range stores(t) {
		t.Run(name, func(t *testing.T) {
			data := []byte("hello")
			if err := svc.Save("s1", "a1", data); err != nil {
				t.Fatalf("save: %v", err)
			}
			// Mutating the input after save must not affect storage.
			data[0] = 'H'

			out, err := svc.Get("s1", "a1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(out) != "hello" {
				t.Fatalf("expected 'hello', got %q", string(out))
			}

			out[0] = 'x'
			out2, _ := svc.Get("s1", "a1")
			if string(out2) != "hello" {
				t.Fatalf("expected isolation, got %q", string(out2))
			}
		})
	}
}

func TestStore_MissingArtifact(t *testing.T) {
	for name, svc := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Get("s1", "nope"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := svc.Delete("s1", "nope"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on delete, got %v", err)
			}
		})
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	for name, svc := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := svc.Save("s1", "a1", []byte("1")); err != nil {
				t.Fatal(err)
			}
			if err := svc.Save("s1", "a2", []byte("2")); err != nil {
				t.Fatal(err)
			}

			ids, err := svc.List("s1")
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != 2 {
				t.Fatalf("expected 2 ids, got %d", len(ids))
			}

			if err := svc.Delete("s1", "a1"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := svc.Get("s1", "a1"); err == nil {
				t.Fatalf("expected error for deleted artifact")
			}

			ids, _ = svc.List("s1")
			if len(ids) != 1 {
				t.Fatalf("expected 1 id after delete, got %d", len(ids))
			}
		})
	}
}

func TestStore_EmptySessionListsEmpty(t *testing.T) {
	for name, svc := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ids, err := svc.List("never-used")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(ids) != 0 {
				t.Fatalf("expected no ids, got %v", ids)
			}
		})
	}
}

func TestStore_Concurrency(t *testing.T) {
	for name, svc := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				i := i
				wg.Add(1)
				go func() {
					defer wg.Done()
					id := i % 10
					if err := svc.Save("s1", fmt.Sprintf("a%d", id), []byte("data")); err != nil {
						t.Errorf("save err: %v", err)
					}
					_, _ = svc.List("s1")
				}()
			}
			wg.Wait()

			ids, err := svc.List("s1")
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != 10 {
				t.Fatalf("expected 10 artifacts, got %d", len(ids))
			}
		})
	}
}

func TestFSStore_RejectsUnsafeIDs(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	for _, bad := range []string{"", "..", "a/b", `a\b`} {
		if err := fs.Save("s1", bad, []byte("x")); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("artifact id %q: expected ErrInvalidID, got %v", bad, err)
		}
		if err := fs.Save(bad, "a1", []byte("x")); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("session id %q: expected ErrInvalidID, got %v", bad, err)
		}
	}
}

func TestFSStore_SurvivesReopen(t *testing.T) {
	root := t.TempDir()

	fs, err := NewFSStore(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Save("s1", "report.txt", []byte("durable")); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFSStore(root)
	if err != nil {
		t.Fatal(err)
	}
	out, err := reopened.Get("s1", "report.txt")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(out) != "durable" {
		t.Fatalf("expected 'durable', got %q", string(out))
	}
}
