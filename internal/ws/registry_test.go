package ws

import (
	"sync"
	"testing"
)

func TestTryAcquireIsSingleFlight(t *testing.T) {
	r := NewRegistry()

	token, ok := r.TryAcquire("u")
	if !ok {
		t.Fatal("first TryAcquire = false, want true")
	}
	if _, ok = r.TryAcquire("u"); ok {
		t.Error("second TryAcquire = true, want false while a turn is in flight")
	}

	r.Release("u", token)
	if _, ok = r.TryAcquire("u"); !ok {
		t.Error("TryAcquire after Release = false, want true")
	}
}

func TestTryAcquireIsPerUser(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.TryAcquire("a"); !ok {
		t.Fatal("TryAcquire(a) = false")
	}
	if _, ok := r.TryAcquire("b"); !ok {
		t.Error("TryAcquire(b) = false; one user's turn must not block another's")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Release("never-acquired", 1)

	token, _ := r.TryAcquire("u")
	r.Release("u", token)
	r.Release("u", token)
	if _, ok := r.TryAcquire("u"); !ok {
		t.Error("TryAcquire after double Release = false, want true")
	}
}

func TestStaleReleaseDoesNotClearNewerTurn(t *testing.T) {
	r := NewRegistry()
	first := &connection{}
	second := &connection{}

	// A turn starts, its connection drops, and the user reconnects and starts
	// a new turn. The old turn is still running detached.
	r.Register("u", first)
	oldToken, ok := r.TryAcquire("u")
	if !ok {
		t.Fatal("first acquire failed")
	}
	r.Deregister("u", first)
	r.Register("u", second)
	newToken, ok := r.TryAcquire("u")
	if !ok {
		t.Fatal("acquire after reconnect failed")
	}

	// The old turn finishing must not open the gate for a third turn.
	r.Release("u", oldToken)
	if _, ok = r.TryAcquire("u"); ok {
		t.Fatal("third turn admitted while the reconnect's turn is still in flight")
	}

	r.Release("u", newToken)
	if _, ok = r.TryAcquire("u"); !ok {
		t.Error("TryAcquire after the current turn released = false, want true")
	}
}

func TestRegisterReturnsReplacedConnection(t *testing.T) {
	r := NewRegistry()
	first := &connection{}
	second := &connection{}

	if prev := r.Register("u", first); prev != nil {
		t.Errorf("first Register returned %v, want nil", prev)
	}
	if prev := r.Register("u", second); prev != first {
		t.Error("second Register did not return the first connection")
	}
}

func TestDeregisterClearsInFlight(t *testing.T) {
	r := NewRegistry()
	c := &connection{}

	r.Register("u", c)
	r.TryAcquire("u")
	r.Deregister("u", c)

	if _, ok := r.TryAcquire("u"); !ok {
		t.Error("in-flight flag survived deregistration")
	}
}

func TestStaleDeregisterLeavesNewerBinding(t *testing.T) {
	r := NewRegistry()
	old := &connection{}
	fresh := &connection{}

	r.Register("u", old)
	r.Register("u", fresh)
	token, _ := r.TryAcquire("u")

	// The old connection's cleanup races with the replacement; it must not
	// tear down the newer connection's state.
	r.Deregister("u", old)

	if _, ok := r.TryAcquire("u"); ok {
		t.Error("stale deregistration cleared the newer connection's in-flight flag")
	}

	r.Release("u", token)
	r.Deregister("u", fresh)
	if _, ok := r.TryAcquire("u"); !ok {
		t.Error("real deregistration did not clear the in-flight flag")
	}
}

func TestConcurrentAcquireAdmitsExactlyOne(t *testing.T) {
	r := NewRegistry()

	const attempts = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.TryAcquire("u"); ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Errorf("admitted = %d concurrent turns, want exactly 1", admitted)
	}
}
