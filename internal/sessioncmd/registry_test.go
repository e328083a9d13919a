package sessioncmd

import (
	"sync"
	"testing"

	"github.com/bazelment/sessioncore/internal/actor"
	"github.com/stretchr/testify/assert"
)

func TestSessionMap_PutGetRemove(t *testing.T) {
	m := NewSessionMap()
	h := &actor.Handle{RunID: "run-1", Tag: new(struct{})}

	_, ok := m.Get("run-1")
	assert.False(t, ok)

	m.Put(h)
	got, ok := m.Get("run-1")
	assert.True(t, ok)
	assert.Same(t, h, got)

	m.Remove("run-1", h.Tag)
	_, ok = m.Get("run-1")
	assert.False(t, ok)
}

func TestSessionMap_RemoveIgnoresStaleTag(t *testing.T) {
	m := NewSessionMap()
	h1 := &actor.Handle{RunID: "run-1", Tag: new(struct{})}
	h2 := &actor.Handle{RunID: "run-1", Tag: new(struct{})}

	m.Put(h1)
	m.Put(h2) // h2 replaces h1 under the same run id

	m.Remove("run-1", h1.Tag) // a stale RemoveSelf from the replaced actor

	got, ok := m.Get("run-1")
	assert.True(t, ok)
	assert.Same(t, h2, got)
}

func TestSessionMap_RunIDs(t *testing.T) {
	m := NewSessionMap()
	m.Put(&actor.Handle{RunID: "a", Tag: new(struct{})})
	m.Put(&actor.Handle{RunID: "b", Tag: new(struct{})})

	ids := m.RunIDs()
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestSpawnLocks_SerializesSameRunID(t *testing.T) {
	locks := NewSpawnLocks()

	release := locks.Acquire("run-1")

	acquired := make(chan struct{})
	go func() {
		release2 := locks.Acquire("run-1")
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire for the same run id should have blocked")
	default:
	}

	release()
	<-acquired
}

func TestSpawnLocks_DoesNotSerializeDifferentRunIDs(t *testing.T) {
	locks := NewSpawnLocks()
	var wg sync.WaitGroup
	wg.Add(2)

	releaseA := locks.Acquire("run-a")
	go func() {
		defer wg.Done()
		release := locks.Acquire("run-b")
		release()
	}()
	go func() {
		defer wg.Done()
		releaseA()
	}()
	wg.Wait()
}
