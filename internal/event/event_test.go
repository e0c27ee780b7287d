package event

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewIDUniqueWithinSameInstant(t *testing.T) {
	t.Parallel()
	now := time.Now()

	const n = 200
	var mu sync.Mutex
	seen := make(map[string]bool, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			// Same time quantum for every caller on purpose.
			id := NewID(now)
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("duplicate id %q", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()

	for id := range seen {
		if !strings.HasPrefix(id, "EV_") {
			t.Fatalf("id %q lacks prefix", id)
		}
	}
}
