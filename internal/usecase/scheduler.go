package usecase

import (
	"log/slog"
	"sync"
	"time"
)

// scheduler runs delayed jobs one at a time on its own goroutine, apart from
// the session goroutines that request them.
type scheduler struct {
	logger *slog.Logger

	jobs chan func()
	done chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
	nextID uint64
	timers map[uint64]*time.Timer
}

func newScheduler(logger *slog.Logger) *scheduler {
	that := &scheduler{
		logger: logger.With("component", "scheduler"),
		jobs:   make(chan func()),
		done:   make(chan struct{}),
		timers: make(map[uint64]*time.Timer),
	}

	that.wg.Add(1)
	go that.loop()

	return that
}

// After queues job to run once delay has passed. It returns false after Stop.
func (that *scheduler) After(delay time.Duration, job func()) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return false
	}

	id := that.nextID
	that.nextID++

	that.timers[id] = time.AfterFunc(delay, func() {
		that.mu.Lock()
		delete(that.timers, id)
		closed := that.closed
		that.mu.Unlock()

		if closed {
			return
		}

		select {
		case that.jobs <- job:
		case <-that.done:
		}
	})

	return true
}

// Pending returns the number of jobs still waiting for their delay.
func (that *scheduler) Pending() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.timers)
}

// Stop cancels pending jobs and waits for the running one to finish.
func (that *scheduler) Stop() {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return
	}

	that.closed = true
	for id, timer := range that.timers {
		timer.Stop()
		delete(that.timers, id)
	}
	that.mu.Unlock()

	close(that.done)
	that.wg.Wait()
}

func (that *scheduler) loop() {
	defer that.wg.Done()

	for {
		select {
		case job := <-that.jobs:
			that.run(job)
		case <-that.done:
			return
		}
	}
}

func (that *scheduler) run(job func()) {
	defer func() {
		if err := recover(); err != nil {
			that.logger.Error("scheduled job panicked", "error", err)
		}
	}()

	job()
}
