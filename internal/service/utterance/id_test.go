package utterance

import (
	"sync"
	"testing"
)

func TestGenerator_Next(t *testing.T) {
	gen := NewGenerator("sess-123")

	if id := gen.Next(); id != "sess-123-utt-1" {
		t.Errorf("expected 'sess-123-utt-1', got %s", id)
	}
	if id := gen.Next(); id != "sess-123-utt-2" {
		t.Errorf("expected 'sess-123-utt-2', got %s", id)
	}
	if gen.Count() != 2 {
		t.Errorf("expected count 2, got %d", gen.Count())
	}
}

func TestGenerator_ThreadSafety(t *testing.T) {
	gen := NewGenerator("sess-concurrent")
	numGoroutines := 50
	perGoroutine := 10

	var wg sync.WaitGroup
	results := make(chan string, numGoroutines*perGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				results <- gen.Next()
			}
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for id := range results {
		if seen[id] {
			t.Errorf("duplicate utterance ID generated: %s", id)
		}
		seen[id] = true
	}
	if len(seen) != numGoroutines*perGoroutine {
		t.Errorf("expected %d unique IDs, got %d", numGoroutines*perGoroutine, len(seen))
	}
}
