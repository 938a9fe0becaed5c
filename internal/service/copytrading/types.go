package copytrading

import (
	"context"

	"github.com/shopspring/decimal"
)

// https://www.okx.com/docs-v5/zh/#order-book-trading-copy-trading

type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
)

type InstType string

const (
	InstTypeSwap InstType = "SWAP"
	InstTypeSpot InstType = "SPOT"
)

// Position 交易员当前带单仓位
type Position struct {
	InstId        string
	PositionSide  PositionSide
	Quantity      decimal.Decimal // 张数, 永远为正, 方向由 PositionSide 表示
	AvgPrice      decimal.Decimal
	UnrealizedPnl decimal.NullDecimal // 平台可能不返回
	Leverage      int
	Margin        decimal.Decimal
}

// LeadTrader 带单交易员
type LeadTrader struct {
	UniqueCode    string
	NickName      string
	Portrait      string
	Pnl           decimal.Decimal
	PnlRatio      decimal.Decimal
	WinRatio      decimal.Decimal
	CopyTraderNum int
	Aum           decimal.Decimal
}

type PositionService interface {
	// GetLeadPositions 获取交易员当前带单仓位（公开接口, 无需鉴权）
	GetLeadPositions(ctx context.Context, uniqueCode string) ([]Position, error)
}

type LeadTraderService interface {
	// GetLeadTraders 获取公开交易员榜单, 用于浏览添加
	GetLeadTraders(ctx context.Context, limit int) ([]LeadTrader, error)
	// GetTraderByCode 根据 uniqueCode 查询交易员, 查不到仓位时返回 ErrInvalidInput
	GetTraderByCode(ctx context.Context, uniqueCode string) (LeadTrader, error)
}

type ResolverService interface {
	// ResolveUniqueCode 从主页链接/短链/原始 code 中解析交易员 uniqueCode
	ResolveUniqueCode(ctx context.Context, input string) (string, error)
}
