package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"qrdrop/internal/store"
)

// faultStore wraps a Store and fails deletes for chosen names, to prove
// one bad entry cannot abort a sweep.
type faultStore struct {
	store.Store
	failNames map[string]bool
}

func (f *faultStore) Delete(ctx context.Context, ns store.Namespace, name string) error {
	if f.failNames[name] {
		return fmt.Errorf("simulated permission error on %s", name)
	}
	return f.Store.Delete(ctx, ns, name)
}

func newSweepFixture(t *testing.T) (*store.FS, string) {
	t.Helper()
	root := t.TempDir()
	st, err := store.NewFS(root)
	if err != nil {
		t.Fatalf("NewFS failed: %v", err)
	}
	return st, root
}

// ageEntry backdates a stored file's mtime past the retention window.
func ageEntry(t *testing.T, root string, ns store.Namespace, name string, age time.Duration) {
	t.Helper()
	old := time.Now().Add(-age)
	if err := os.Chtimes(filepath.Join(root, string(ns), name), old, old); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}
}

func TestRunSweep_DeletesExpiredEverywhere(t *testing.T) {
	st, root := newSweepFixture(t)
	ctx := context.Background()

	for _, ns := range store.Namespaces {
		if err := st.Put(ctx, ns, "old.txt", strings.NewReader("x")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		ageEntry(t, root, ns, "old.txt", 2*time.Hour)

		if err := st.Put(ctx, ns, "fresh.txt", strings.NewReader("y")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	runSweep(ctx, JanitorConfig{Retention: time.Hour, Store: st})

	for _, ns := range store.Namespaces {
		if _, err := st.Get(ctx, ns, "old.txt"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("%s: expired entry survived the sweep", ns)
		}
		if _, err := st.Get(ctx, ns, "fresh.txt"); err != nil {
			t.Errorf("%s: fresh entry was swept: %v", ns, err)
		}
	}
}

func TestRunSweep_EntryFailureDoesNotAbort(t *testing.T) {
	st, root := newSweepFixture(t)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := st.Put(ctx, store.NSPlaintext, name, strings.NewReader("x")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		ageEntry(t, root, store.NSPlaintext, name, 2*time.Hour)
	}

	faulty := &faultStore{Store: st, failNames: map[string]bool{"b.txt": true}}
	runSweep(ctx, JanitorConfig{Retention: time.Hour, Store: faulty})

	// The failing entry remains, every other eligible entry is gone.
	if _, err := st.Get(ctx, store.NSPlaintext, "b.txt"); err != nil {
		t.Errorf("entry with failing delete should remain: %v", err)
	}
	for _, name := range []string{"a.txt", "c.txt"} {
		if _, err := st.Get(ctx, store.NSPlaintext, name); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("%s should have been swept", name)
		}
	}
}

func TestRunSweep_FreshEntriesSurvive(t *testing.T) {
	st, _ := newSweepFixture(t)
	ctx := context.Background()

	if err := st.Put(ctx, store.NSEncrypted, "note.txt", strings.NewReader("ct")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	runSweep(ctx, JanitorConfig{Retention: time.Hour, Store: st})

	if _, err := st.Get(ctx, store.NSEncrypted, "note.txt"); err != nil {
		t.Fatalf("fresh entry swept: %v", err)
	}
}

func TestStartJanitor_Disabled(t *testing.T) {
	st, _ := newSweepFixture(t)

	done := make(chan struct{})
	go func() {
		StartJanitor(context.Background(), JanitorConfig{Enabled: false, Store: st})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled janitor did not return")
	}
}

func TestStartJanitor_StopsOnCancel(t *testing.T) {
	st, _ := newSweepFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		StartJanitor(ctx, JanitorConfig{
			Enabled:   true,
			Interval:  10 * time.Millisecond,
			Retention: time.Hour,
			Store:     st,
		})
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancel")
	}
}
