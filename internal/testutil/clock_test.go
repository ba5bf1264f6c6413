package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestStepClock_Sequence(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)

	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, epoch.Add(time.Second), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Second), clock.Now())
	assert.Equal(t, int64(3), clock.Calls())
}

func TestStepClock_ZeroStep(t *testing.T) {
	clock := NewStepClock(epoch, 0)
	assert.Equal(t, clock.Now(), clock.Now())
}

func TestStepClock_Concurrent(t *testing.T) {
	clock := NewStepClock(epoch, time.Millisecond)

	const goroutines = 50
	seen := make(chan time.Time, goroutines)
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- clock.Now()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[time.Time]bool{}
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, goroutines)
	assert.Equal(t, int64(goroutines), clock.Calls())
}
