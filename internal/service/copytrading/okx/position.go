package okx

import (
	"context"
	"net/url"
	"strconv"

	"github.com/gaobi639-netizen/okx-monitor/internal/service/copytrading"
	"github.com/gaobi639-netizen/okx-monitor/pkg/decimalx"
)

// okxSubPosition /api/v5/copytrading/public-current-subpositions 返回项
// 部分字段有新旧两套命名, 解析时做兜底
type okxSubPosition struct {
	InstId    string `json:"instId"`
	PosSide   string `json:"posSide"`
	SubPos    string `json:"subPos"`
	Pos       string `json:"pos"`
	OpenAvgPx string `json:"openAvgPx"`
	AvgPx     string `json:"avgPx"`
	Upl       string `json:"upl"`
	Lever     string `json:"lever"`
	Margin    string `json:"margin"`
}

func (p okxSubPosition) quantity() string {
	if p.SubPos != "" {
		return p.SubPos
	}
	return p.Pos
}

func (p okxSubPosition) avgPrice() string {
	if p.OpenAvgPx != "" {
		return p.OpenAvgPx
	}
	return p.AvgPx
}

// GetLeadPositions 获取交易员当前带单仓位
func (s *Service) GetLeadPositions(ctx context.Context, uniqueCode string) ([]copytrading.Position, error) {
	params := url.Values{}
	params.Set("instType", string(copytrading.InstTypeSwap))
	params.Set("uniqueCode", uniqueCode)

	var items []okxSubPosition
	if err := s.publicGet(ctx, "/api/v5/copytrading/public-current-subpositions", params, &items); err != nil {
		return nil, err
	}

	positions := make([]copytrading.Position, 0, len(items))
	for _, item := range items {
		leverage, err := strconv.Atoi(item.Lever)
		if err != nil {
			leverage = 1
		}
		positions = append(positions, copytrading.Position{
			InstId:        item.InstId,
			PositionSide:  copytrading.PositionSide(item.PosSide),
			Quantity:      decimalx.FromStringOrZero(item.quantity()).Abs(),
			AvgPrice:      decimalx.FromStringOrZero(item.avgPrice()),
			UnrealizedPnl: decimalx.NullFromString(item.Upl),
			Leverage:      leverage,
			Margin:        decimalx.FromStringOrZero(item.Margin),
		})
	}
	return positions, nil
}
