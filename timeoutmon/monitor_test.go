package timeoutmon

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_FiresAfterDeadline(t *testing.T) {
	m := New()
	defer m.Shutdown()

	var mu sync.Mutex
	var fired string

	m.AddClient(Client{
		ID:       "a",
		Deadline: time.Now().Add(20 * time.Millisecond),
		OnTimeout: func(id string) {
			mu.Lock()
			fired = id
			mu.Unlock()
		},
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fired == "a"
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_RemoveClientCancelsTimeout(t *testing.T) {
	m := New()
	defer m.Shutdown()

	fired := make(chan struct{}, 1)
	m.AddClient(Client{
		ID:       "b",
		Deadline: time.Now().Add(30 * time.Millisecond),
		OnTimeout: func(id string) {
			fired <- struct{}{}
		},
	})
	m.RemoveClient("b")

	select {
	case <-fired:
		t.Fatal("OnTimeout fired for a removed client")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestMonitor_RenewPushesDeadlineForward(t *testing.T) {
	m := New()
	defer m.Shutdown()

	fired := make(chan string, 1)
	m.AddClient(Client{
		ID:       "c",
		Deadline: time.Now().Add(20 * time.Millisecond),
		OnTimeout: func(id string) {
			fired <- id
		},
	})
	m.Renew("c", time.Now().Add(100*time.Millisecond))

	select {
	case <-fired:
		t.Fatal("OnTimeout fired before the renewed deadline")
	case <-time.After(40 * time.Millisecond):
	}

	assert.Eventually(t, func() bool {
		select {
		case id := <-fired:
			return id == "c"
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_ShutdownIsIdempotent(t *testing.T) {
	m := New()
	m.Shutdown()
	assert.NotPanics(t, func() { m.Shutdown() })
}
