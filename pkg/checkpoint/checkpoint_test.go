package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCheckpointManager(t *testing.T) {
	urls := []string{
		"https://www.instagram.com/reel/AAA111/",
		"https://www.instagram.com/reel/BBB222/",
		"https://www.instagram.com/reel/CCC333/",
	}

	t.Run("CreateAndLoad", func(t *testing.T) {
		mgr := NewManager(t.TempDir(), nil)

		cp, err := mgr.Create(urls)
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}
		if len(cp.URLs) != 3 {
			t.Errorf("Expected 3 urls, got %d", len(cp.URLs))
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}
		if loaded == nil {
			t.Fatal("Expected checkpoint, got nil")
		}
		if !reflect.DeepEqual(loaded.Pending(), urls) {
			t.Errorf("Expected every url pending, got %v", loaded.Pending())
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		mgr := NewManager(t.TempDir(), nil)

		cp, err := mgr.Load()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cp != nil {
			t.Errorf("Expected nil checkpoint, got %+v", cp)
		}
	})

	t.Run("Record", func(t *testing.T) {
		mgr := NewManager(t.TempDir(), nil)
		cp, err := mgr.Create(urls)
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		if err := mgr.Record(cp, urls[0], StatusSaved, "/out/AAA111.mp4", nil); err != nil {
			t.Fatalf("Failed to record: %v", err)
		}
		if err := mgr.Record(cp, urls[1], StatusFailed, "", errors.New("resolve failed")); err != nil {
			t.Fatalf("Failed to record: %v", err)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint: %v", err)
		}

		want := []string{urls[1], urls[2]}
		if got := loaded.Pending(); !reflect.DeepEqual(got, want) {
			t.Errorf("Expected pending %v, got %v", want, got)
		}
		if e := loaded.Entries[urls[1]]; e.Error != "resolve failed" {
			t.Errorf("Expected recorded error, got %q", e.Error)
		}
		if e := loaded.Entries[urls[0]]; e.Path != "/out/AAA111.mp4" {
			t.Errorf("Expected recorded path, got %q", e.Path)
		}

		finished, failed, pending := loaded.Counts()
		if finished != 1 || failed != 1 || pending != 1 {
			t.Errorf("Expected counts 1/1/1, got %d/%d/%d", finished, failed, pending)
		}
	})

	t.Run("AddSkipsKnownURLs", func(t *testing.T) {
		mgr := NewManager(t.TempDir(), nil)
		cp, err := mgr.Create(urls[:2])
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		cp.Add(urls[1], urls[2], urls[2])
		if !reflect.DeepEqual(cp.URLs, urls) {
			t.Errorf("Expected %v, got %v", urls, cp.URLs)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mgr := NewManager(t.TempDir(), nil)
		if _, err := mgr.Create(urls); err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		if !mgr.Exists() {
			t.Error("Expected checkpoint to exist")
		}
		if err := mgr.Delete(); err != nil {
			t.Fatalf("Failed to delete checkpoint: %v", err)
		}
		if mgr.Exists() {
			t.Error("Expected checkpoint to not exist after deletion")
		}
		if err := mgr.Delete(); err != nil {
			t.Errorf("Deleting a missing checkpoint should succeed: %v", err)
		}
	})

	t.Run("AtomicWrite", func(t *testing.T) {
		dir := t.TempDir()
		mgr := NewManager(dir, nil)
		cp, err := mgr.Create(urls)
		if err != nil {
			t.Fatalf("Failed to create checkpoint: %v", err)
		}

		done := make(chan bool, 10)
		for i := 0; i < 10; i++ {
			go func() {
				mgr.Save(cp)
				done <- true
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load checkpoint after concurrent saves: %v", err)
		}
		if loaded == nil {
			t.Fatal("Checkpoint corrupted after concurrent saves")
		}
		if _, err := os.Stat(filepath.Join(dir, FileName+".tmp")); !os.IsNotExist(err) {
			t.Error("Temporary file left behind")
		}
	})

	t.Run("RejectsUnknownVersion", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte(`{"version": 99}`), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := NewManager(dir, nil).Load(); err == nil {
			t.Error("Expected an error for an unknown version")
		}
	})
}
