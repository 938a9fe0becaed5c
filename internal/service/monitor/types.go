package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/gaobi639-netizen/okx-monitor/internal/service/copytrading"
	"github.com/shopspring/decimal"
)

// TraderCode 交易员 uniqueCode
type TraderCode string

// PositionKey 仓位在快照内的稳定键: 合约 + 方向
// 同一合约多空双向持仓是两个不同的 key, 方向翻转天然拆成平旧仓 + 开新仓两个事件
type PositionKey string

func NewPositionKey(instId string, side copytrading.PositionSide) PositionKey {
	return PositionKey(fmt.Sprintf("%s:%s", instId, side))
}

// Snapshot 一个交易员在某次观测时刻的全部带单仓位
// 不可变, 每次拉取都构造新快照
type Snapshot struct {
	TraderCode TraderCode
	Positions  map[PositionKey]copytrading.Position
	FetchedAt  time.Time
}

func NewSnapshot(code TraderCode, positions []copytrading.Position, fetchedAt time.Time) Snapshot {
	byKey := make(map[PositionKey]copytrading.Position, len(positions))
	for _, pos := range positions {
		// 同 key 至多一条, 平台重复返回时保留后者
		byKey[NewPositionKey(pos.InstId, pos.PositionSide)] = pos
	}
	return Snapshot{
		TraderCode: code,
		Positions:  byKey,
		FetchedAt:  fetchedAt,
	}
}

type EventKind string

const (
	EventClose    EventKind = "close"
	EventDecrease EventKind = "decrease"
	EventIncrease EventKind = "increase"
	EventOpen     EventKind = "open"
)

// sortPriority 事件输出顺序: 平仓 < 减仓 < 加仓 < 开仓, 同类按 key 字典序
// 只是为了通知可读且确定, 不代表平台上的实际成交顺序
func (k EventKind) sortPriority() int {
	switch k {
	case EventClose:
		return 0
	case EventDecrease:
		return 1
	case EventIncrease:
		return 2
	case EventOpen:
		return 3
	default:
		return 4
	}
}

// PositionEvent 一次仓位变化
type PositionEvent struct {
	TraderCode   TraderCode
	TraderName   string
	Key          PositionKey
	Kind         EventKind
	InstId       string
	PositionSide copytrading.PositionSide

	BeforeQuantity decimal.Decimal
	AfterQuantity  decimal.Decimal
	Price          decimal.Decimal

	QuantityDelta decimal.Decimal
	NotionalDelta decimal.Decimal
	// PnlDelta 仅在前后快照都带 upl 时有效, 不凭空估算
	PnlDelta decimal.NullDecimal

	Timestamp time.Time
}

type Notifier interface {
	Notify(ctx context.Context, event PositionEvent) error
}

type consoleNotifier struct {
}

func (c consoleNotifier) Notify(ctx context.Context, event PositionEvent) error {
	fmt.Printf("position event: %s %s %s %s -> %s\n",
		event.TraderCode, event.Kind, event.Key,
		event.BeforeQuantity, event.AfterQuantity)
	return nil
}

// TraderStatus 单个交易员的健康状态, 供外层展示
type TraderStatus struct {
	TraderCode          TraderCode
	NickName            string
	Enabled             bool
	Baselined           bool
	PositionCount       int
	ConsecutiveFailures int
	Degraded            bool
	LastPollAt          time.Time
	LastError           string
}

type Config struct {
	// Interval 同一交易员两次轮询起点的最小间距
	Interval time.Duration
	// Epsilon 仓位数量相等判定的容差, 吸收平台浮点抖动
	Epsilon decimal.Decimal
	// FailureThreshold 连续失败达到该值后标记为 degraded
	FailureThreshold int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.Epsilon.IsZero() {
		c.Epsilon = decimal.NewFromFloat(0.0001)
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	return c
}
