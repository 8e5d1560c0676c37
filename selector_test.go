package poserender

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorWraps(t *testing.T) {

	s := NewSelector(0, 5)

	assert.Equal(t, 4, s.Decrease())
	assert.Equal(t, 0, s.Increase())
	assert.Equal(t, 1, s.Increase())

	s.Set(7)
	assert.Equal(t, 2, s.Load())

	s.Set(-1)
	assert.Equal(t, 4, s.Load())
}

func TestSelectorUnbounded(t *testing.T) {

	s := NewSelector(100, 0)
	assert.Equal(t, 100, s.Load())

	s.Set(-5)
	assert.Equal(t, 0, s.Load())
	assert.Equal(t, 0, s.Decrease())
}

func TestSelectorConcurrentIncrease(t *testing.T) {

	s := NewSelector(0, 41)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 41; j++ {
				s.Increase()
			}
		}()
	}

	wg.Wait()

	// 8 full cycles return to the start
	assert.Equal(t, 0, s.Load())
}
