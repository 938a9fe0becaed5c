package notification

import (
	"context"
	"errors"
)

// ErrDelivery 通知投递失败: chat 不存在、token 失效、网络异常都归到这一类
// 投递失败不重发, 下一个真实事件会照常触发
var ErrDelivery = errors.New("notification: delivery failed")

type Service interface {
	SendText(ctx context.Context, text string) error
}
