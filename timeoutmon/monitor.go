// Package timeoutmon implements a single shared timeout-monitoring
// goroutine, grounded on the teacher's worker pool's cooperative
// stop-channel shutdown shape (worker/pool.go's Pool.Stop/Worker.Start),
// generalized from one stop-channel per worker to one scheduled-wakeup
// goroutine shared by every registered client.
package timeoutmon

import (
	"sort"
	"sync"
	"time"
)

// Client is a registered timeout deadline: when Deadline elapses without
// being refreshed or removed, OnTimeout fires exactly once.
type Client struct {
	ID       string
	Deadline time.Time
	OnTimeout func(id string)
}

// Monitor tracks a set of clients and fires each one's OnTimeout hook at
// most once, at or after its deadline, from a single background
// goroutine regardless of how many clients are registered.
type Monitor struct {
	mu       sync.Mutex
	clients  map[string]Client
	wake     chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New starts the monitor's background goroutine.
func New() *Monitor {
	m := &Monitor{
		clients:  map[string]Client{},
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

// AddClient registers or replaces a client's deadline.
func (m *Monitor) AddClient(c Client) {
	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()
	m.nudge()
}

// RemoveClient cancels a client's pending timeout, if any.
func (m *Monitor) RemoveClient(id string) {
	m.mu.Lock()
	delete(m.clients, id)
	m.mu.Unlock()
}

// Renew pushes id's deadline forward, a no-op if id isn't registered.
func (m *Monitor) Renew(id string, deadline time.Time) {
	m.mu.Lock()
	if c, ok := m.clients[id]; ok {
		c.Deadline = deadline
		m.clients[id] = c
	}
	m.mu.Unlock()
	m.nudge()
}

func (m *Monitor) nudge() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Shutdown stops the background goroutine, idempotently and
// cooperatively: a second call is a no-op, and the call blocks until the
// goroutine has actually exited.
func (m *Monitor) Shutdown() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
	<-m.done
}

func (m *Monitor) run() {
	defer close(m.done)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		next := m.fireDue()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if next <= 0 {
			next = time.Hour
		}
		timer.Reset(next)
		select {
		case <-m.stopChan:
			return
		case <-m.wake:
		case <-timer.C:
		}
	}
}

// fireDue snapshots clients past their deadline, fires their OnTimeout
// hooks outside the lock, removes them, and returns the wait duration
// until the next-soonest remaining deadline.
func (m *Monitor) fireDue() time.Duration {
	now := time.Now()
	m.mu.Lock()
	var due []Client
	var soonest time.Time
	haveSoonest := false
	for id, c := range m.clients {
		if !c.Deadline.After(now) {
			due = append(due, c)
			delete(m.clients, id)
			continue
		}
		if !haveSoonest || c.Deadline.Before(soonest) {
			soonest = c.Deadline
			haveSoonest = true
		}
	}
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].Deadline.Before(due[j].Deadline) })
	for _, c := range due {
		if c.OnTimeout != nil {
			c.OnTimeout(c.ID)
		}
	}

	if !haveSoonest {
		return 0
	}
	return time.Until(soonest)
}
