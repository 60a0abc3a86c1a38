package queue

import (
	"sync"

	"github.com/rs/zerolog"
)

// Dispatcher runs tasks one at a time, in submission order, on a single
// worker goroutine. Schedule never blocks, so it is safe to call from inside
// a running task or from an identity store callback.
type Dispatcher struct {
	log zerolog.Logger

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	closed  bool
	done    chan struct{}
	started bool
}

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		log:  log,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Start launches the worker. Tasks scheduled earlier are kept and run first.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	go d.run()
}

// Schedule queues task. After Stop, tasks are dropped.
func (d *Dispatcher) Schedule(task func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn().Msg("task scheduled on stopped dispatcher, dropping")
		return
	}
	d.pending = append(d.pending, task)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Stop refuses new tasks, runs everything already queued and waits for the
// worker to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	started := d.started
	d.started = true
	d.mu.Unlock()

	if !started {
		go d.run()
	}
	select {
	case d.wake <- struct{}{}:
	default:
	}
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		batch := d.pending
		d.pending = nil
		closed := d.closed
		d.mu.Unlock()

		for _, task := range batch {
			d.runTask(task)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-d.wake
	}
}

func (d *Dispatcher) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Msg("dispatcher task panicked")
		}
	}()
	task()
}
