package catalog

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var messages []string
	w, err := Watch(dir, func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, msg)
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	path := filepath.Join(dir, "new-rule.yaml")
	if err := os.WriteFile(path, []byte("name: new-rule\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(messages)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no change notification arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
