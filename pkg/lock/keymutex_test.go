package lock

import (
	"sync"
	"testing"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	km := NewKeyMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("dir-a")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
}

func TestKeyMutexIndependentKeys(t *testing.T) {
	km := NewKeyMutex()

	unlockA := km.Lock("dir-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("dir-b")
		unlockB()
		close(done)
	}()

	// dir-b must not block behind dir-a.
	<-done
}
