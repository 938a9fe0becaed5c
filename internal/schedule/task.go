package schedule

import "context"

// Task 可被 Runner 周期调度的任务
type Task interface {
	Run(ctx context.Context) error
	Name() string
}

// TaskFunc 函数适配器
type TaskFunc struct {
	RunFunc  func(ctx context.Context) error
	TaskName string
}

func (f TaskFunc) Run(ctx context.Context) error {
	return f.RunFunc(ctx)
}

func (f TaskFunc) Name() string {
	return f.TaskName
}
