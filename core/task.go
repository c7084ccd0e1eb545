package core

import (
	"context"
	"sync"
)

// Task is the pending result of scheduled work. A nil *Task is a task that
// had nothing to do: Wait returns nil at once and Done is already closed.
type Task struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done is closed once the task settled.
func (t *Task) Done() <-chan struct{} {
	if t == nil {
		return closedChan
	}
	return t.done
}

// Err is the task outcome; nil while still running.
func (t *Task) Err() error {
	if t == nil {
		return nil
	}
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task settles or ctx is done. Giving up on the wait
// does not stop the underlying work.
func (t *Task) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// joinTasks settles with nil once every task succeeded, or with the first
// failure as soon as it is observed. Remaining tasks keep running.
func joinTasks(tasks []*Task) *Task {
	joined := newTask()
	if len(tasks) == 0 {
		joined.finish(nil)
		return joined
	}

	var (
		mu        sync.Mutex
		remaining = len(tasks)
	)
	for _, t := range tasks {
		go func(t *Task) {
			<-t.Done()
			if err := t.Err(); err != nil {
				joined.finish(err)
				return
			}
			mu.Lock()
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				joined.finish(nil)
			}
		}(t)
	}
	return joined
}
