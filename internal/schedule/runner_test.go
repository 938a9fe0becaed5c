package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestRunner_PeriodicRun 启动立即执行一次, 之后按间隔执行
func TestRunner_PeriodicRun(t *testing.T) {
	var runs atomic.Int64
	task := TaskFunc{
		RunFunc: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
		TaskName: "counting task",
	}

	r := NewRunner(task, 10*time.Millisecond)
	r.Start(context.Background())
	defer r.Stop()

	assert.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

// TestRunner_OverlapSkip 上一轮没结束时, tick 被跳过而不是排队
func TestRunner_OverlapSkip(t *testing.T) {
	var (
		started    atomic.Int64
		concurrent atomic.Int64
		maxSeen    atomic.Int64
	)
	release := make(chan struct{})

	task := TaskFunc{
		RunFunc: func(ctx context.Context) error {
			started.Add(1)
			cur := concurrent.Add(1)
			if cur > maxSeen.Load() {
				maxSeen.Store(cur)
			}
			defer concurrent.Add(-1)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		},
		TaskName: "slow task",
	}

	r := NewRunner(task, 10*time.Millisecond)
	r.Start(context.Background())

	// 第一轮卡住, 多个 tick 过去后仍然只有一轮在跑
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(1), started.Load())
	assert.Equal(t, int64(1), maxSeen.Load())

	close(release)
	assert.Eventually(t, func() bool {
		return started.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), maxSeen.Load())

	r.Stop()
}

// TestRunner_StopCancelsInFlight Stop 会取消在途的一轮并等它退出
func TestRunner_StopCancelsInFlight(t *testing.T) {
	entered := make(chan struct{}, 1)
	var canceled atomic.Bool

	task := TaskFunc{
		RunFunc: func(ctx context.Context) error {
			select {
			case entered <- struct{}{}:
			default:
			}
			<-ctx.Done()
			canceled.Store(true)
			return ctx.Err()
		},
		TaskName: "blocking task",
	}

	r := NewRunner(task, 10*time.Millisecond)
	r.Start(context.Background())

	<-entered
	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.True(t, canceled.Load())
}

// TestRunner_StartIdempotent 重复 Start 不会起第二条循环
func TestRunner_StartIdempotent(t *testing.T) {
	var runs atomic.Int64
	task := TaskFunc{
		RunFunc: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
		TaskName: "idempotent task",
	}

	r := NewRunner(task, 50*time.Millisecond)
	r.Start(context.Background())
	r.Start(context.Background())
	defer r.Stop()

	// 两次 Start 只有一次立即执行
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), runs.Load())
}
