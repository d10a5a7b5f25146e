package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type session struct {
	Step string
	Data []string
}

func stores(t *testing.T) map[string]Store[session] {
	t.Helper()
	cached, err := NewCacheStore[session](100, time.Hour)
	require.NoError(t, err)
	return map[string]Store[session]{
		"memory": NewMemoryStore[session](),
		"cache":  cached,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok := s.Get(1)
			assert.False(t, ok)

			s.Set(1, session{Step: "phone"})
			got, ok := s.Get(1)
			require.True(t, ok)
			assert.Equal(t, "phone", got.Step)

			s.Set(1, session{Step: "menu", Data: []string{"12"}})
			got, _ = s.Get(1)
			assert.Equal(t, session{Step: "menu", Data: []string{"12"}}, got)

			s.Clear(1)
			_, ok = s.Get(1)
			assert.False(t, ok)
		})
	}
}

func TestStoreIsolatesUsers(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.Set(1, session{Step: "a"})
			s.Set(2, session{Step: "b"})

			a, _ := s.Get(1)
			b, _ := s.Get(2)
			assert.Equal(t, "a", a.Step)
			assert.Equal(t, "b", b.Step)
		})
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemoryStore[session]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Set(id, session{Step: "x"})
			_, _ = s.Get(id)
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func TestCacheStoreExpires(t *testing.T) {
	s, err := NewCacheStore[session](10, 50*time.Millisecond)
	require.NoError(t, err)

	s.Set(1, session{Step: "phone"})
	assert.Eventually(t, func() bool {
		_, ok := s.Get(1)
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}
