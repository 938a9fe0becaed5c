package okx

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gaobi639-netizen/okx-monitor/internal/service/copytrading"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://www.okx.com"

	// okx 会对无 UA 的请求返回 403
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	requestTimeout = 15 * time.Second
)

type Config struct {
	ApiKey     string
	SecretKey  string
	Passphrase string
	BaseURL    string

	// 公开接口限频, 默认 5 req/s, burst 2
	RequestsPerSecond float64
	Burst             int
}

var (
	_ copytrading.PositionService   = (*Service)(nil)
	_ copytrading.LeadTraderService = (*Service)(nil)
	_ copytrading.ResolverService   = (*Service)(nil)
)

type Service struct {
	cfg     Config
	cli     *resty.Client
	limiter *rate.Limiter
}

func NewService(cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 2
	}

	cli := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(requestTimeout).
		SetHeader("User-Agent", userAgent)

	return &Service{
		cfg:     cfg,
		cli:     cli,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// okxResp OKX v5 统一响应包
type okxResp struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// requestPath 拼接带查询串的请求路径, 签名串和实际请求必须完全一致
func requestPath(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

func (s *Service) timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func (s *Service) sign(ts, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.SecretKey))
	mac.Write([]byte(ts + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// publicGet 公开接口, 无需鉴权
func (s *Service) publicGet(ctx context.Context, endpoint string, params url.Values, out any) error {
	return s.do(ctx, endpoint, params, false, out)
}

// privateGet 私有接口, OK-ACCESS-* 签名头
func (s *Service) privateGet(ctx context.Context, endpoint string, params url.Values, out any) error {
	return s.do(ctx, endpoint, params, true, out)
}

func (s *Service) do(ctx context.Context, endpoint string, params url.Values, signed bool, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	path := requestPath(endpoint, params)
	req := s.cli.R().SetContext(ctx)

	if signed {
		ts := s.timestamp()
		req.SetHeaders(map[string]string{
			"OK-ACCESS-KEY":        s.cfg.ApiKey,
			"OK-ACCESS-SIGN":       s.sign(ts, http.MethodGet, path, ""),
			"OK-ACCESS-TIMESTAMP":  ts,
			"OK-ACCESS-PASSPHRASE": s.cfg.Passphrase,
			"Content-Type":         "application/json",
		})
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", copytrading.ErrNetwork, endpoint, err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return fmt.Errorf("%w: GET %s", copytrading.ErrRateLimit, endpoint)
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("%w: GET %s: http %d", copytrading.ErrAuth, endpoint, resp.StatusCode())
	case resp.StatusCode() >= http.StatusBadRequest:
		return fmt.Errorf("%w: GET %s: http %d", copytrading.ErrNetwork, endpoint, resp.StatusCode())
	}

	var envelope okxResp
	if err = json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("%w: GET %s: decode response: %v", copytrading.ErrNetwork, endpoint, err)
	}
	if envelope.Code != "0" {
		return apiError(endpoint, envelope)
	}

	if out != nil {
		if err = json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: GET %s: decode data: %v", copytrading.ErrNetwork, endpoint, err)
		}
	}
	return nil
}

// apiError 将 OKX 业务错误码映射到错误分类
// https://www.okx.com/docs-v5/zh/#error-code
func apiError(endpoint string, envelope okxResp) error {
	switch envelope.Code {
	case "50011":
		return fmt.Errorf("%w: GET %s: %s", copytrading.ErrRateLimit, endpoint, envelope.Msg)
	case "50100", "50102", "50103", "50104", "50105", "50111", "50113", "50119":
		return fmt.Errorf("%w: GET %s: code %s: %s", copytrading.ErrAuth, endpoint, envelope.Code, envelope.Msg)
	default:
		return fmt.Errorf("%w: GET %s: code %s: %s", copytrading.ErrNetwork, endpoint, envelope.Code, envelope.Msg)
	}
}

// TestConnection 用账户余额接口探测 API 凭证是否可用
func (s *Service) TestConnection(ctx context.Context) error {
	return s.privateGet(ctx, "/api/v5/account/balance", nil, nil)
}
