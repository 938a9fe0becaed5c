package okx

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/gaobi639-netizen/okx-monitor/internal/service/copytrading"
	"github.com/gaobi639-netizen/okx-monitor/pkg/decimalx"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	// 榜单单次最多返回 20 条
	leaderboardPageSize = 20
	leaderboardMaxPages = 5
)

// okxLeadTrader 榜单返回项
type okxLeadTrader struct {
	UniqueCode       string `json:"uniqueCode"`
	NickName         string `json:"nickName"`
	Portrait         string `json:"portrait"`
	Pnl              string `json:"pnl"`
	PnlRatio         string `json:"pnlRatio"`
	WinRatio         string `json:"winRatio"`
	CopyTraderNum    string `json:"copyTraderNum"`
	AccCopyTraderNum string `json:"accCopyTraderNum"`
	Aum              string `json:"aum"`
}

// okxLeaderboard data[0].ranks 结构
type okxLeaderboard struct {
	Ranks []okxLeadTrader `json:"ranks"`
}

func (t okxLeadTrader) toLeadTrader() copytrading.LeadTrader {
	copierNum := t.CopyTraderNum
	if copierNum == "" {
		copierNum = t.AccCopyTraderNum
	}
	num, _ := strconv.Atoi(copierNum)
	return copytrading.LeadTrader{
		UniqueCode:    t.UniqueCode,
		NickName:      t.NickName,
		Portrait:      t.Portrait,
		Pnl:           decimalx.FromStringOrZero(t.Pnl),
		PnlRatio:      decimalx.FromStringOrZero(t.PnlRatio),
		WinRatio:      decimalx.FromStringOrZero(t.WinRatio),
		CopyTraderNum: num,
		Aum:           decimalx.FromStringOrZero(t.Aum),
	}
}

// GetLeadTraders 获取公开交易员榜单
// 榜单接口只按单一维度排序, 这里并发拉 pnl 和 aum 两个维度再去重合并,
// 尽量多覆盖一些交易员
func (s *Service) GetLeadTraders(ctx context.Context, limit int) ([]copytrading.LeadTrader, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		mu  sync.Mutex
		all []copytrading.LeadTrader
	)

	eg, ctx := errgroup.WithContext(ctx)
	for _, sortType := range []string{"pnl", "aum"} {
		sortType := sortType
		eg.Go(func() error {
			traders, err := s.fetchLeaderboard(ctx, sortType, limit)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, traders...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	all = lo.UniqBy(all, func(t copytrading.LeadTrader) string {
		return t.UniqueCode
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Service) fetchLeaderboard(ctx context.Context, sortType string, limit int) ([]copytrading.LeadTrader, error) {
	var traders []copytrading.LeadTrader
	seen := make(map[string]struct{})

	for page := 0; page < leaderboardMaxPages && len(traders) < limit; page++ {
		params := url.Values{}
		params.Set("instType", string(copytrading.InstTypeSwap))
		params.Set("sortType", sortType)
		params.Set("limit", strconv.Itoa(leaderboardPageSize))
		if page > 0 {
			params.Set("page", strconv.Itoa(page+1))
		}

		var pages []okxLeaderboard
		if err := s.publicGet(ctx, "/api/v5/copytrading/public-lead-traders", params, &pages); err != nil {
			return nil, err
		}
		if len(pages) == 0 {
			break
		}

		newCount := 0
		for _, item := range pages[0].Ranks {
			if item.UniqueCode == "" {
				continue
			}
			if _, ok := seen[item.UniqueCode]; ok {
				continue
			}
			seen[item.UniqueCode] = struct{}{}
			traders = append(traders, item.toLeadTrader())
			newCount++
		}
		// 没有新交易员说明翻到底了
		if newCount == 0 {
			break
		}
	}
	return traders, nil
}

// GetTraderByCode 根据 uniqueCode 查询交易员
// 公开接口查不到交易员详情, 仓位接口可达即认为存在, 昵称用占位
func (s *Service) GetTraderByCode(ctx context.Context, uniqueCode string) (copytrading.LeadTrader, error) {
	positions, err := s.GetLeadPositions(ctx, uniqueCode)
	if err != nil {
		return copytrading.LeadTrader{}, err
	}
	if len(positions) == 0 {
		return copytrading.LeadTrader{}, fmt.Errorf("%w: no lead positions for %s", copytrading.ErrInvalidInput, uniqueCode)
	}

	nickName := uniqueCode
	if len(nickName) > 8 {
		nickName = nickName[:8]
	}
	return copytrading.LeadTrader{
		UniqueCode: uniqueCode,
		NickName:   fmt.Sprintf("Trader-%s", nickName),
	}, nil
}
