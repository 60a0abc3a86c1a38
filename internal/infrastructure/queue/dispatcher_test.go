package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDispatcher_RunsInOrder(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	d.Start()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 50; i++ {
		i := i
		d.Schedule(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	d.Stop()

	if len(got) != 50 {
		t.Fatalf("expected 50 tasks, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestDispatcher_ScheduleFromTask(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	d.Start()

	done := make(chan struct{})
	d.Schedule(func() {
		d.Schedule(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("nested task never ran")
	}
	d.Stop()
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	d.Start()

	ran := false
	d.Schedule(func() { panic("boom") })
	d.Schedule(func() { ran = true })
	d.Stop()

	if !ran {
		t.Fatalf("expected task after panic to run")
	}
}

func TestDispatcher_StopWithoutStartDrains(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	ran := false
	d.Schedule(func() { ran = true })
	d.Stop()
	if !ran {
		t.Fatalf("expected queued task to run on Stop")
	}

	d.Schedule(func() { t.Errorf("task scheduled after Stop must not run") })
	d.Stop()
}
