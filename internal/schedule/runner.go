package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner 以固定间隔驱动一个 Task
// 间隔是两次启动之间的最小间距: 上一轮还没跑完时, 本次 tick 直接跳过而不是排队,
// 避免慢网络下积压出并发的同名任务
type Runner struct {
	task     Task
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

func NewRunner(task Task, interval time.Duration) *Runner {
	return &Runner{
		task:     task,
		interval: interval,
	}
}

// Start 启动后台循环, 启动时立即先跑一轮
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop 取消循环并等待在途的一轮结束
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	running := make(chan struct{}, 1)
	runOnce := func() {
		select {
		case running <- struct{}{}:
		default:
			// 上一轮未结束, 跳过本次 tick
			slog.Debug("previous run still in flight, tick skipped", "task", r.task.Name())
			return
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer func() { <-running }()
			if err := r.task.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("scheduled task failed", "task", r.task.Name(), "error", err)
			}
		}()
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	runOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
