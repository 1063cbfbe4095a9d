package tokens

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushAddAndList(t *testing.T) {
	s := NewPushStore()

	s.Add("device-1")
	s.Add("device-2")
	s.Add("device-1") // duplicate collapses

	tokens := s.ListAll()
	assert.ElementsMatch(t, []string{"device-1", "device-2"}, tokens)
}

func TestPushAddEmptyIgnored(t *testing.T) {
	s := NewPushStore()

	s.Add("")
	assert.Empty(t, s.ListAll())
}

func TestPushRemove(t *testing.T) {
	s := NewPushStore()

	s.Add("device-1")
	assert.True(t, s.Remove("device-1"))
	assert.False(t, s.Remove("device-1"))
	assert.False(t, s.Contains("device-1"))
}

func TestPushConcurrentAccess(t *testing.T) {
	s := NewPushStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.Add("device-shared")
			_ = s.ListAll()
			if id%5 == 0 {
				s.Remove("device-shared")
			}
		}(i)
	}
	wg.Wait()
}
