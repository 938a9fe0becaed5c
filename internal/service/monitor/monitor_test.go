package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gaobi639-netizen/okx-monitor/internal/entity"
	"github.com/gaobi639-netizen/okx-monitor/internal/service/copytrading"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ============ Mock 定义 ============

type MockPositionService struct {
	mock.Mock
}

func (m *MockPositionService) GetLeadPositions(ctx context.Context, uniqueCode string) ([]copytrading.Position, error) {
	args := m.Called(ctx, uniqueCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]copytrading.Position), args.Error(1)
}

// memoryTraderRepo 内存注册表, 测试用
type memoryTraderRepo struct {
	mu      sync.Mutex
	traders map[string]entity.Trader
}

func newMemoryTraderRepo() *memoryTraderRepo {
	return &memoryTraderRepo{traders: make(map[string]entity.Trader)}
}

func (r *memoryTraderRepo) Create(ctx context.Context, trader entity.Trader) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traders[trader.UniqueCode] = trader
	return nil
}

func (r *memoryTraderRepo) Delete(ctx context.Context, uniqueCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.traders, uniqueCode)
	return nil
}

func (r *memoryTraderRepo) FindByCode(ctx context.Context, uniqueCode string) (entity.Trader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.traders[uniqueCode], nil
}

func (r *memoryTraderRepo) FindAll(ctx context.Context) ([]entity.Trader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]entity.Trader, 0, len(r.traders))
	for _, t := range r.traders {
		all = append(all, t)
	}
	return all, nil
}

func (r *memoryTraderRepo) UpdateEnabled(ctx context.Context, uniqueCode string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.traders[uniqueCode]
	t.Enabled = enabled
	r.traders[uniqueCode] = t
	return nil
}

func (r *memoryTraderRepo) UpdateNickName(ctx context.Context, uniqueCode string, nickName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.traders[uniqueCode]
	t.NickName = nickName
	r.traders[uniqueCode] = t
	return nil
}

// recordingNotifier 记录派发的事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []PositionEvent
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, event PositionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) all() []PositionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]PositionEvent, len(n.events))
	copy(out, n.events)
	return out
}

func testConfig() Config {
	return Config{
		Interval:         10 * time.Millisecond,
		Epsilon:          decimal.NewFromFloat(0.0001),
		FailureThreshold: 3,
	}
}

func btcLong(quantity string) []copytrading.Position {
	return []copytrading.Position{
		testPosition("BTC-USDT-SWAP", copytrading.PositionSideLong, quantity, "50000"),
	}
}

// ============ 测试用例 ============

// TestMonitor_BaselineThenEvents 首轮只建基线, 之后的变化才产生事件
func TestMonitor_BaselineThenEvents(t *testing.T) {
	svc := new(MockPositionService)
	svc.On("GetLeadPositions", mock.Anything, "T1").Return(btcLong("10"), nil).Once()
	svc.On("GetLeadPositions", mock.Anything, "T1").Return(btcLong("15"), nil)

	notifier := &recordingNotifier{}
	m := NewMonitor(testConfig(), svc, newMemoryTraderRepo(), WithNotifier(notifier))

	ctx := context.Background()
	require.NoError(t, m.AddTrader(ctx, "T1", "测试交易员"))
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	assert.Eventually(t, func() bool {
		return len(notifier.all()) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	events := notifier.all()
	assert.Equal(t, EventIncrease, events[0].Kind)
	assert.Equal(t, TraderCode("T1"), events[0].TraderCode)
	assert.Equal(t, "测试交易员", events[0].TraderName)
	assert.True(t, events[0].BeforeQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, events[0].AfterQuantity.Equal(decimal.NewFromInt(15)))

	// 基线已替换成 15, 不会重复产生同一事件
	time.Sleep(50 * time.Millisecond)
	for _, ev := range notifier.all() {
		assert.Equal(t, EventIncrease, ev.Kind)
	}
	assert.Len(t, notifier.all(), 1)
}

// TestMonitor_FailureIsolation 一个交易员拉取失败不影响另一个
func TestMonitor_FailureIsolation(t *testing.T) {
	svc := new(MockPositionService)
	svc.On("GetLeadPositions", mock.Anything, "BAD").
		Return(nil, copytrading.ErrNetwork)
	svc.On("GetLeadPositions", mock.Anything, "GOOD").Return(btcLong("10"), nil).Once()
	svc.On("GetLeadPositions", mock.Anything, "GOOD").Return(btcLong("20"), nil)

	notifier := &recordingNotifier{}
	m := NewMonitor(testConfig(), svc, newMemoryTraderRepo(), WithNotifier(notifier))

	ctx := context.Background()
	require.NoError(t, m.AddTrader(ctx, "BAD", ""))
	require.NoError(t, m.AddTrader(ctx, "GOOD", ""))
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	// GOOD 的事件照常产生
	assert.Eventually(t, func() bool {
		return len(notifier.all()) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, TraderCode("GOOD"), notifier.all()[0].TraderCode)

	// BAD 连续失败后进入 degraded, 但不会被自动停掉
	assert.Eventually(t, func() bool {
		for _, s := range m.Health() {
			if s.TraderCode == "BAD" {
				return s.Degraded && s.Enabled
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	for _, s := range m.Health() {
		switch s.TraderCode {
		case "BAD":
			assert.GreaterOrEqual(t, s.ConsecutiveFailures, 3)
			assert.NotEmpty(t, s.LastError)
			assert.False(t, s.Baselined)
		case "GOOD":
			assert.Zero(t, s.ConsecutiveFailures)
			assert.True(t, s.Baselined)
		}
	}
}

// TestMonitor_FailureKeepsBaseline 失败期间基线不动, 恢复后对着最后一次真实观测 diff
func TestMonitor_FailureKeepsBaseline(t *testing.T) {
	svc := new(MockPositionService)
	svc.On("GetLeadPositions", mock.Anything, "T1").Return(btcLong("10"), nil).Once()
	svc.On("GetLeadPositions", mock.Anything, "T1").Return(nil, copytrading.ErrRateLimit).Times(3)
	svc.On("GetLeadPositions", mock.Anything, "T1").Return(btcLong("15"), nil)

	notifier := &recordingNotifier{}
	m := NewMonitor(testConfig(), svc, newMemoryTraderRepo(), WithNotifier(notifier))

	ctx := context.Background()
	require.NoError(t, m.AddTrader(ctx, "T1", ""))
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	assert.Eventually(t, func() bool {
		return len(notifier.all()) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	events := notifier.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventIncrease, events[0].Kind)
	assert.True(t, events[0].BeforeQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, events[0].AfterQuantity.Equal(decimal.NewFromInt(15)))
}

// TestMonitor_DisableRetainsBaseline 停用期间不轮询, 重新启用后不重放存量仓位
func TestMonitor_DisableRetainsBaseline(t *testing.T) {
	svc := new(MockPositionService)
	svc.On("GetLeadPositions", mock.Anything, "T1").Return(btcLong("10"), nil)

	notifier := &recordingNotifier{}
	m := NewMonitor(testConfig(), svc, newMemoryTraderRepo(), WithNotifier(notifier))

	ctx := context.Background()
	require.NoError(t, m.AddTrader(ctx, "T1", ""))
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	// 等基线建立
	assert.Eventually(t, func() bool {
		for _, s := range m.Health() {
			if s.TraderCode == "T1" {
				return s.Baselined
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, m.DisableTrader(ctx, "T1"))
	time.Sleep(30 * time.Millisecond)
	callsWhileDisabled := len(svc.Calls)
	time.Sleep(50 * time.Millisecond)
	// 停用后不再有新的拉取
	assert.Equal(t, callsWhileDisabled, len(svc.Calls))

	require.NoError(t, m.EnableTrader(ctx, "T1"))
	time.Sleep(50 * time.Millisecond)

	// 仓位没变, 恢复后不应产生任何事件
	assert.Empty(t, notifier.all())
	for _, s := range m.Health() {
		if s.TraderCode == "T1" {
			assert.True(t, s.Baselined)
			assert.True(t, s.Enabled)
		}
	}
}

// TestMonitor_RemoveTrader 移除后状态删除, 注册表同步
func TestMonitor_RemoveTrader(t *testing.T) {
	svc := new(MockPositionService)
	svc.On("GetLeadPositions", mock.Anything, "T1").Return(btcLong("10"), nil)

	traderRepo := newMemoryTraderRepo()
	m := NewMonitor(testConfig(), svc, traderRepo, WithNotifier(&recordingNotifier{}))

	ctx := context.Background()
	require.NoError(t, m.AddTrader(ctx, "T1", ""))
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	require.NoError(t, m.RemoveTrader(ctx, "T1"))
	assert.Empty(t, m.Health())

	all, err := traderRepo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// 再移除一次应报错
	assert.Error(t, m.RemoveTrader(ctx, "T1"))
}

// TestMonitor_AddTraderValidation 非法输入和重复添加
func TestMonitor_AddTraderValidation(t *testing.T) {
	m := NewMonitor(testConfig(), new(MockPositionService), newMemoryTraderRepo())

	ctx := context.Background()
	err := m.AddTrader(ctx, "", "x")
	assert.ErrorIs(t, err, copytrading.ErrInvalidInput)

	require.NoError(t, m.AddTrader(ctx, "T1", "a"))
	assert.Error(t, m.AddTrader(ctx, "T1", "b"))
}

// TestMonitor_NotifierFailureDoesNotBlock 通知失败不影响基线推进, 事件不重发
func TestMonitor_NotifierFailureDoesNotBlock(t *testing.T) {
	svc := new(MockPositionService)
	svc.On("GetLeadPositions", mock.Anything, "T1").Return(btcLong("10"), nil).Once()
	svc.On("GetLeadPositions", mock.Anything, "T1").Return(btcLong("15"), nil)

	notifier := &recordingNotifier{err: assert.AnError}
	m := NewMonitor(testConfig(), svc, newMemoryTraderRepo(), WithNotifier(notifier))

	ctx := context.Background()
	require.NoError(t, m.AddTrader(ctx, "T1", ""))
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	assert.Eventually(t, func() bool {
		return len(notifier.all()) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	// 投递失败也只会尝试一次, 基线照常替换
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, notifier.all(), 1)
}

// TestMonitor_Reset 重置后下一轮重新建基线, 存量仓位不触发事件
func TestMonitor_Reset(t *testing.T) {
	svc := new(MockPositionService)
	svc.On("GetLeadPositions", mock.Anything, "T1").Return(btcLong("10"), nil)

	notifier := &recordingNotifier{}
	m := NewMonitor(testConfig(), svc, newMemoryTraderRepo(), WithNotifier(notifier))

	ctx := context.Background()
	require.NoError(t, m.AddTrader(ctx, "T1", ""))
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	assert.Eventually(t, func() bool {
		for _, s := range m.Health() {
			if s.TraderCode == "T1" {
				return s.Baselined
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	m.Reset()
	assert.Eventually(t, func() bool {
		for _, s := range m.Health() {
			if s.TraderCode == "T1" {
				return s.Baselined
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	assert.Empty(t, notifier.all())
}
