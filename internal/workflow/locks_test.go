package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutexEvictsIdleEntries(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.Lock("REQ-1")
	k.mu.Lock()
	require.Len(t, k.locks, 1)
	k.mu.Unlock()
	unlock()

	unlockAll := k.LockAll([]string{"REQ-1", "REQ-2"})
	unlockAll()

	k.mu.Lock()
	require.Empty(t, k.locks)
	k.mu.Unlock()
}

func TestKeyedMutexKeepsEntryWhileContended(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("TOMATO")

	acquired := make(chan struct{})
	go func() {
		u := k.Lock("TOMATO")
		close(acquired)
		u()
	}()

	require.Eventually(t, func() bool {
		k.mu.Lock()
		defer k.mu.Unlock()
		e, ok := k.locks["TOMATO"]
		return ok && e.refs == 2
	}, time.Second, time.Millisecond)

	unlock()
	<-acquired

	require.Eventually(t, func() bool {
		k.mu.Lock()
		defer k.mu.Unlock()
		return len(k.locks) == 0
	}, time.Second, time.Millisecond)
}
