package source

import (
	"runtime/debug"
	"sync"
	"time"
)

// A loopFunc is a long-running function, e.g. a decode loop. It should
// return promptly once quit is closed.
type loopFunc func(quit <-chan struct{})

// A worker runs a loopFunc in its own goroutine, exactly once.
type worker struct {
	name string
	run  loopFunc

	// Closed when stop() is requested, to trigger run loop exit.
	quit     chan struct{}
	quitOnce sync.Once

	// Closed when run loop actually terminates.
	terminated chan struct{}
}

func newWorker(name string, run loopFunc) *worker {
	return &worker{
		name:       name,
		run:        run,
		quit:       make(chan struct{}),
		terminated: make(chan struct{}),
	}
}

func (w *worker) start() {
	go func() {
		defer close(w.terminated)
		defer func() {
			if r := recover(); r != nil {
				log.Error("%s: worker panic: %v\n%s", w.name, r, debug.Stack())
			}
		}()
		log.Debug("%s: worker started", w.name)
		w.run(w.quit)
		log.Debug("%s: worker exited", w.name)
	}()
}

// stop asks the loop to exit and waits for it, at most timeout if positive.
// It reports whether the loop has terminated. Safe to call repeatedly.
func (w *worker) stop(timeout time.Duration) bool {
	w.quitOnce.Do(func() { close(w.quit) })

	if timeout <= 0 {
		<-w.terminated
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.terminated:
		return true
	case <-t.C:
		return false
	}
}
