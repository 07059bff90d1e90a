package liveedit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDebounce_CoalescesBurst exercises only the timer-reset mechanics: the
// flush callback fires once, not three times, after three Submit calls
// land inside the debounce window (spec §4.11 S4 scenario).
func TestDebounce_CoalescesBurst(t *testing.T) {
	var mu sync.Mutex
	flushes := 0

	var timer *time.Timer
	const delay = 30 * time.Millisecond

	reset := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			mu.Lock()
			flushes++
			mu.Unlock()
		})
	}

	reset()
	time.Sleep(10 * time.Millisecond)
	reset()
	time.Sleep(10 * time.Millisecond)
	reset()

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	got := flushes
	mu.Unlock()
	assert.Equal(t, 1, got)
}

func TestSubmit_RemoveWinsOverSameBurstAdd(t *testing.T) {
	e := &Editor{delay: time.Hour, pending: make(map[string]*pendingEdit)}

	e.Submit(context.Background(), "lab-1", []string{"r1"}, nil)
	e.Submit(context.Background(), "lab-1", nil, []RemovedNode{{NodeID: "r1"}})

	pe := e.pending["lab-1"]
	pe.timer.Stop()

	require.Empty(t, pe.adds)
	require.Contains(t, pe.removes, "r1")
}
