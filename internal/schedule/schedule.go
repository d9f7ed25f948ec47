// Package schedule runs a callback on a fixed interval until it asks to
// stop or its handle is released.
package schedule

import (
	"sync"
	"time"
)

// Handle owns one running tick loop. It must be released with Stop unless
// the callback ends the loop itself.
type Handle struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Every calls fn every interval until fn returns false or Stop is called.
// The first call happens one interval after Every returns.
func Every(interval time.Duration, fn func() bool) *Handle {
	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go h.run(interval, fn)
	return h
}

func (h *Handle) run(interval time.Duration, fn func() bool) {
	defer close(h.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			// A Stop that raced with this tick wins.
			select {
			case <-h.stop:
				return
			default:
			}
			if !fn() {
				return
			}
		}
	}
}

// Stop releases the loop. It is safe to call more than once and from
// inside the callback. It does not wait for the loop to exit; use Done.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
