package monitor

import (
	"sort"

	"github.com/gaobi639-netizen/okx-monitor/internal/service/copytrading"
	"github.com/shopspring/decimal"
)

// Diff 对比同一交易员的前后两份快照, 输出有序的仓位变化事件
//
// prev 为 nil 表示该交易员还没有基线: 首次观测只建立事实基准, 不把存量仓位
// 刷成一串开仓事件, 返回空
//
// 纯函数: 无副作用, 相同输入永远得到相同的有序输出
func Diff(prev *Snapshot, curr Snapshot, epsilon decimal.Decimal) []PositionEvent {
	if prev == nil {
		return nil
	}

	var events []PositionEvent

	for key, pos := range curr.Positions {
		if _, ok := prev.Positions[key]; !ok {
			events = append(events, newEvent(curr, EventOpen, key, decimal.Zero, pos.Quantity, pos.AvgPrice))
		}
	}

	for key, pos := range prev.Positions {
		if _, ok := curr.Positions[key]; !ok {
			// 平仓价格用旧仓位的开仓均价, 平台不回报实际平仓价
			events = append(events, newEvent(curr, EventClose, key, pos.Quantity, decimal.Zero, pos.AvgPrice))
		}
	}

	for key, currPos := range curr.Positions {
		prevPos, ok := prev.Positions[key]
		if !ok {
			continue
		}
		delta := currPos.Quantity.Sub(prevPos.Quantity)
		if delta.Abs().LessThanOrEqual(epsilon) {
			continue
		}

		kind := EventIncrease
		if delta.IsNegative() {
			kind = EventDecrease
		}
		event := newEvent(curr, kind, key, prevPos.Quantity, currPos.Quantity, currPos.AvgPrice)
		event.PnlDelta = pnlDelta(prevPos, currPos)
		events = append(events, event)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Kind != events[j].Kind {
			return events[i].Kind.sortPriority() < events[j].Kind.sortPriority()
		}
		return events[i].Key < events[j].Key
	})
	return events
}

func newEvent(curr Snapshot, kind EventKind, key PositionKey, before, after, price decimal.Decimal) PositionEvent {
	quantityDelta := after.Sub(before).Abs()

	var pos copytrading.Position
	if p, ok := curr.Positions[key]; ok {
		pos = p
	} else {
		// CLOSE: 当前快照里已不存在, 从 key 还原合约和方向
		pos.InstId, pos.PositionSide = splitPositionKey(key)
	}

	return PositionEvent{
		TraderCode:     curr.TraderCode,
		Key:            key,
		Kind:           kind,
		InstId:         pos.InstId,
		PositionSide:   pos.PositionSide,
		BeforeQuantity: before,
		AfterQuantity:  after,
		Price:          price,
		QuantityDelta:  quantityDelta,
		NotionalDelta:  quantityDelta.Mul(price),
		Timestamp:      curr.FetchedAt,
	}
}

// pnlDelta 前后快照都带 upl 时才计算, 否则标记不可用
func pnlDelta(prev, curr copytrading.Position) decimal.NullDecimal {
	if !prev.UnrealizedPnl.Valid || !curr.UnrealizedPnl.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{
		Decimal: curr.UnrealizedPnl.Decimal.Sub(prev.UnrealizedPnl.Decimal),
		Valid:   true,
	}
}

func splitPositionKey(key PositionKey) (string, copytrading.PositionSide) {
	s := string(key)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return s[:i], copytrading.PositionSide(s[i+1:])
		}
	}
	return s, ""
}
