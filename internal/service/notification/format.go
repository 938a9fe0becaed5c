package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/gaobi639-netizen/okx-monitor/internal/service/copytrading"
	"github.com/gaobi639-netizen/okx-monitor/internal/service/monitor"
	"github.com/shopspring/decimal"
)

// actionLabel 操作标签, 沿用 开/平/加/减 x 多/空 的说法
func actionLabel(kind monitor.EventKind, side copytrading.PositionSide) string {
	long := side == copytrading.PositionSideLong
	switch kind {
	case monitor.EventOpen:
		if long {
			return "🟢 开多"
		}
		return "🔴 开空"
	case monitor.EventClose:
		if long {
			return "🔵 平多"
		}
		return "🟠 平空"
	case monitor.EventIncrease:
		if long {
			return "🟢 加多"
		}
		return "🔴 加空"
	case monitor.EventDecrease:
		if long {
			return "🔵 减多"
		}
		return "🟠 减空"
	default:
		return string(kind)
	}
}

// eventQuantity 通知里展示的数量: 开仓/平仓给全量, 加减仓给变化量
func eventQuantity(event monitor.PositionEvent) decimal.Decimal {
	switch event.Kind {
	case monitor.EventOpen:
		return event.AfterQuantity
	case monitor.EventClose:
		return event.BeforeQuantity
	default:
		return event.QuantityDelta
	}
}

// coinOf 从 instId 提取币种, BTC-USDT-SWAP -> BTC
func coinOf(instId string) string {
	if instId == "" {
		return "未知"
	}
	if i := strings.Index(instId, "-"); i > 0 {
		return instId[:i]
	}
	return instId
}

// FormatEvent 把仓位事件渲染成推送文案
func FormatEvent(event monitor.PositionEvent) string {
	direction := "做多"
	if event.PositionSide == copytrading.PositionSideShort {
		direction = "做空"
	}

	instId := event.InstId
	if instId == "" {
		instId = "隐藏"
	}

	var b strings.Builder
	b.WriteString("🔔 交易员动态提醒\n\n")
	fmt.Fprintf(&b, "交易员: %s\n", event.TraderName)
	fmt.Fprintf(&b, "操作: %s\n", actionLabel(event.Kind, event.PositionSide))
	fmt.Fprintf(&b, "币种: %s\n", instId)
	fmt.Fprintf(&b, "方向: %s\n", direction)
	fmt.Fprintf(&b, "数量: %s %s\n", eventQuantity(event).String(), coinOf(event.InstId))
	fmt.Fprintf(&b, "价格: $%s\n", event.Price.StringFixed(2))
	if event.PnlDelta.Valid {
		fmt.Fprintf(&b, "浮盈变化: %s USDT\n", event.PnlDelta.Decimal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\n时间: %s", event.Timestamp.Format("2006-01-02 15:04:05"))
	return b.String()
}

// FormatStartup 启动通知
func FormatStartup(traderNames []string, interval time.Duration) string {
	return fmt.Sprintf("🚀 OKX监控已启动\n\n监控交易员: %s\n检查间隔: %d秒",
		strings.Join(traderNames, ", "), int(interval.Seconds()))
}

// FormatShutdown 停止通知
func FormatShutdown() string {
	return "⏹️ OKX监控已停止"
}
