package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gaobi639-netizen/okx-monitor/internal/entity"
	"github.com/gaobi639-netizen/okx-monitor/internal/repo"
	"github.com/gaobi639-netizen/okx-monitor/internal/schedule"
	"github.com/gaobi639-netizen/okx-monitor/internal/service/copytrading"
)

// traderState 单个交易员的轮询状态
// 只有该交易员自己的轮询周期会替换 baseline, Runner 保证周期不重叠;
// enable/disable/health 可能并发访问, 因此字段由 mu 保护
type traderState struct {
	code     TraderCode
	nickName string

	mu         sync.Mutex
	enabled    bool
	baseline   *Snapshot
	failures   int
	lastPollAt time.Time
	lastErr    error
}

func (s *traderState) isEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *traderState) setEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

func (s *traderState) snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseline
}

// replaceBaseline 拉取成功后原子替换基线并清零失败计数
func (s *traderState) replaceBaseline(snap *Snapshot, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = snap
	s.failures = 0
	s.lastErr = nil
	s.lastPollAt = at
}

// recordFailure 累加失败计数, 基线保留不动, 返回当前连续失败次数
// 下次拉取成功时仍然对着最后一次真实观测做 diff, 而不是对着空洞
func (s *traderState) recordFailure(at time.Time, err error) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	s.lastErr = err
	s.lastPollAt = at
	return s.failures
}

func (s *traderState) resetBaseline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = nil
}

func (s *traderState) status(failureThreshold int) TraderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := TraderStatus{
		TraderCode:          s.code,
		NickName:            s.nickName,
		Enabled:             s.enabled,
		Baselined:           s.baseline != nil,
		ConsecutiveFailures: s.failures,
		Degraded:            s.failures >= failureThreshold,
		LastPollAt:          s.lastPollAt,
	}
	if s.baseline != nil {
		status.PositionCount = len(s.baseline.Positions)
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

// Monitor 轮询协调器: 每个交易员一条独立的定时循环,
// 拉取快照 -> diff -> 派发事件 -> 替换基线
type Monitor struct {
	cfg         Config
	positionSvc copytrading.PositionService
	traderRepo  repo.TraderRepo
	notifier    Notifier

	mu      sync.Mutex
	traders map[TraderCode]*traderState
	runners map[TraderCode]*schedule.Runner
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type Option func(m *Monitor)

func WithNotifier(notifier Notifier) Option {
	return func(m *Monitor) {
		m.notifier = notifier
	}
}

func NewMonitor(cfg Config, positionSvc copytrading.PositionService, traderRepo repo.TraderRepo, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:         cfg.withDefaults(),
		positionSvc: positionSvc,
		traderRepo:  traderRepo,
		notifier:    consoleNotifier{},
		traders:     make(map[TraderCode]*traderState),
		runners:     make(map[TraderCode]*schedule.Runner),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start 从注册表加载交易员并启动各自的轮询循环
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("monitor already started")
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	traders, err := m.traderRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load trader registry: %w", err)
	}

	m.mu.Lock()
	for _, t := range traders {
		code := TraderCode(t.UniqueCode)
		if _, ok := m.traders[code]; ok {
			continue
		}
		m.traders[code] = &traderState{
			code:     code,
			nickName: t.NickName,
			enabled:  t.Enabled,
		}
	}
	for code, st := range m.traders {
		if _, ok := m.runners[code]; !ok {
			m.runners[code] = m.startRunner(st)
		}
	}
	m.mu.Unlock()

	slog.Info("monitor started", "traders", len(traders), "interval", m.cfg.Interval)
	return nil
}

// Stop 取消所有定时器和在途请求, 等待全部循环退出
// diff 本身是同步的: 某个周期要么已完成并派发, 要么根本没开始, 不会发出半截事件
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	cancel := m.cancel
	runners := make([]*schedule.Runner, 0, len(m.runners))
	for _, r := range m.runners {
		runners = append(runners, r)
	}
	m.runners = make(map[TraderCode]*schedule.Runner)
	m.mu.Unlock()

	cancel()
	for _, r := range runners {
		r.Stop()
	}
	slog.Info("monitor stopped")
}

// AddTrader 把交易员加入监控, 先写注册表再建状态
// 监控运行中也可以安全调用
func (m *Monitor) AddTrader(ctx context.Context, code TraderCode, nickName string) error {
	if code == "" {
		return fmt.Errorf("%w: empty trader code", copytrading.ErrInvalidInput)
	}
	if nickName == "" {
		nickName = string(code)
	}

	m.mu.Lock()
	if _, ok := m.traders[code]; ok {
		m.mu.Unlock()
		return fmt.Errorf("trader %s already monitored", code)
	}
	m.mu.Unlock()

	if err := m.traderRepo.Create(ctx, entity.Trader{
		UniqueCode: string(code),
		NickName:   nickName,
		Enabled:    true,
	}); err != nil {
		return fmt.Errorf("failed to persist trader %s: %w", code, err)
	}

	st := &traderState{
		code:     code,
		nickName: nickName,
		enabled:  true,
	}

	m.mu.Lock()
	m.traders[code] = st
	if m.started {
		m.runners[code] = m.startRunner(st)
	}
	m.mu.Unlock()

	slog.Info("trader added", "trader", code, "nickname", nickName)
	return nil
}

// RemoveTrader 移除交易员, 状态和基线一并删除
func (m *Monitor) RemoveTrader(ctx context.Context, code TraderCode) error {
	m.mu.Lock()
	st, ok := m.traders[code]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("trader %s not monitored", code)
	}
	runner := m.runners[code]
	delete(m.traders, code)
	delete(m.runners, code)
	m.mu.Unlock()

	// Stop 会等待在途周期结束, 不能持锁调用
	if runner != nil {
		runner.Stop()
	}

	if err := m.traderRepo.Delete(ctx, string(code)); err != nil {
		return fmt.Errorf("failed to remove trader %s from registry: %w", code, err)
	}
	slog.Info("trader removed", "trader", code, "nickname", st.nickName)
	return nil
}

// EnableTrader 恢复轮询, 基线还在, 从上次观测继续, 不会重放一遍存量仓位
func (m *Monitor) EnableTrader(ctx context.Context, code TraderCode) error {
	return m.setTraderEnabled(ctx, code, true)
}

// DisableTrader 暂停轮询但保留状态
func (m *Monitor) DisableTrader(ctx context.Context, code TraderCode) error {
	return m.setTraderEnabled(ctx, code, false)
}

func (m *Monitor) setTraderEnabled(ctx context.Context, code TraderCode, enabled bool) error {
	m.mu.Lock()
	st, ok := m.traders[code]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("trader %s not monitored", code)
	}

	st.setEnabled(enabled)
	if err := m.traderRepo.UpdateEnabled(ctx, string(code), enabled); err != nil {
		return fmt.Errorf("failed to update trader %s: %w", code, err)
	}
	slog.Info("trader enabled flag changed", "trader", code, "enabled", enabled)
	return nil
}

// Health 全部交易员的状态, 按 code 排序
func (m *Monitor) Health() []TraderStatus {
	m.mu.Lock()
	states := make([]*traderState, 0, len(m.traders))
	for _, st := range m.traders {
		states = append(states, st)
	}
	m.mu.Unlock()

	statuses := make([]TraderStatus, 0, len(states))
	for _, st := range states {
		statuses = append(statuses, st.status(m.cfg.FailureThreshold))
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].TraderCode < statuses[j].TraderCode
	})
	return statuses
}

// Reset 清掉所有基线, 下一轮重新建立基准
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.traders {
		st.resetBaseline()
	}
}

func (m *Monitor) startRunner(st *traderState) *schedule.Runner {
	task := schedule.TaskFunc{
		RunFunc: func(ctx context.Context) error {
			return m.pollTrader(ctx, st)
		},
		TaskName: fmt.Sprintf("poll trader %s", st.code),
	}
	runner := schedule.NewRunner(task, m.cfg.Interval)
	runner.Start(m.ctx)
	return runner
}

// pollTrader 一个完整的 拉取-对比-派发 周期
// 错误只记录在该交易员自己的状态里, 不影响其他交易员
func (m *Monitor) pollTrader(ctx context.Context, st *traderState) error {
	if !st.isEnabled() {
		return nil
	}

	positions, err := m.positionSvc.GetLeadPositions(ctx, string(st.code))
	now := time.Now()
	if err != nil {
		failures := st.recordFailure(now, err)
		if failures == m.cfg.FailureThreshold {
			slog.Warn("trader polling degraded",
				"trader", st.code, "consecutive_failures", failures, "error", err)
		}
		return err
	}

	snap := NewSnapshot(st.code, positions, now)

	prev := st.snapshot()
	if prev == nil {
		st.replaceBaseline(&snap, now)
		slog.Info("trader baseline established", "trader", st.code, "positions", len(positions))
		return nil
	}

	events := Diff(prev, snap, m.cfg.Epsilon)
	for i := range events {
		events[i].TraderName = st.nickName
	}

	for _, event := range events {
		// 通知失败只记日志, 不重试不排队, 不拖慢轮询
		if err := m.notifier.Notify(ctx, event); err != nil {
			slog.Error("failed to dispatch position event",
				"trader", st.code, "kind", event.Kind, "key", event.Key, "error", err)
		}
	}

	st.replaceBaseline(&snap, now)
	return nil
}
