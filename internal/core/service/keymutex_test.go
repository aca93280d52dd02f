package service

import (
	"sync"
	"testing"
	"time"
)

func TestKeyMutex_Exclusive(t *testing.T) {
	km := newKeyMutex()

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same-key")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("expected at most 1 concurrent holder, saw %d", maxActive)
	}
}

func TestKeyMutex_DistinctKeysIndependent(t *testing.T) {
	km := newKeyMutex()

	unlockA := km.Lock("key-a")
	defer unlockA()

	acquired := make(chan struct{})
	go func() {
		unlockB := km.Lock("key-b")
		unlockB()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyMutex_ReclaimsIdleEntries(t *testing.T) {
	km := newKeyMutex()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%3))
			for j := 0; j < 50; j++ {
				unlock := km.Lock(key)
				unlock()
			}
		}(i)
	}
	wg.Wait()

	if km.size() != 0 {
		t.Errorf("expected empty lock table, got %d entries", km.size())
	}
}

func TestKeyMutex_SameKeySerializesInOrderOfArrival(t *testing.T) {
	km := newKeyMutex()

	unlock := km.Lock("key")

	released := make(chan struct{})
	go func() {
		u := km.Lock("key")
		u()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("second holder ran while first still held the key")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the key")
	}
}
