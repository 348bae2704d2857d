package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeedSequence_Next(t *testing.T) {
	seeds := NewSeedSequence(10)
	assert.Equal(t, int64(10), seeds.Next())
	assert.Equal(t, int64(11), seeds.Next())
	assert.Equal(t, []int64{12, 13, 14}, seeds.Take(3))
}

func TestSeedSequence_Reset(t *testing.T) {
	seeds := NewSeedSequence(1)
	seeds.Take(5)
	seeds.Reset()
	assert.Equal(t, int64(1), seeds.Next())
}

func TestSeedSequence_ThreadSafe(t *testing.T) {
	seeds := NewSeedSequence(0)
	const workers = 50
	const perWorker = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				s := seeds.Next()
				mu.Lock()
				seen[s] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
