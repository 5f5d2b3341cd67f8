package monitor

import (
	"context"
	"sync"
	"time"
)

// pollTask is the repeating fetch scheduled for one job.
type pollTask struct {
	cancel context.CancelFunc
	once   sync.Once
}

// startPollTask runs tick every interval until ctx ends. The task goroutine
// and every fetch it spawns are tracked by workers, which outlives the task
// so teardown can wait on jobs that already finished on their own.
func startPollTask(ctx context.Context, cancel context.CancelFunc, interval time.Duration, workers *sync.WaitGroup, tick func(context.Context, *sync.WaitGroup)) *pollTask {
	t := &pollTask{cancel: cancel}
	workers.Add(1)
	go func() {
		defer workers.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick(ctx, workers)
			}
		}
	}()
	return t
}

// stop cancels the task exactly once.
func (t *pollTask) stop() {
	t.once.Do(t.cancel)
}
