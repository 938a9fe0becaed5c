package copytrading

import "errors"

var (
	// ErrNetwork 网络层失败, 下个轮询周期重试
	ErrNetwork = errors.New("copytrading: network error")
	// ErrAuth 鉴权失败（仅私有接口会触发）
	ErrAuth = errors.New("copytrading: auth error")
	// ErrRateLimit 触发平台限频
	ErrRateLimit = errors.New("copytrading: rate limited")
	// ErrInvalidInput 无法识别的交易员标识输入
	ErrInvalidInput = errors.New("copytrading: invalid input")
)
