package okx

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gaobi639-netizen/okx-monitor/internal/service/copytrading"
)

var (
	accountPathRe = regexp.MustCompile(`account/([A-Za-z0-9]+)`)
	uniqueCodeRe  = regexp.MustCompile(`uniqueCode=([A-Za-z0-9]+)`)
	rawCodeRe     = regexp.MustCompile(`^[A-Za-z0-9]{12,20}$`)
)

// ResolveUniqueCode 从用户输入解析交易员 uniqueCode
// 支持: 主页完整链接、okx 短链（跟随重定向）、uniqueCode 查询参数、裸 code
func (s *Service) ResolveUniqueCode(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty input", copytrading.ErrInvalidInput)
	}

	lower := strings.ToLower(input)
	if strings.Contains(lower, "http") && strings.Contains(lower, "oyidl") {
		if code, ok := s.resolveShortURL(ctx, input); ok {
			return code, nil
		}
	}

	if m := accountPathRe.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	if m := uniqueCodeRe.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	if rawCodeRe.MatchString(input) {
		return input, nil
	}

	return "", fmt.Errorf("%w: unrecognized trader reference %q", copytrading.ErrInvalidInput, input)
}

// resolveShortURL 跟随短链重定向, 从最终 URL 中提取 code
func (s *Service) resolveShortURL(ctx context.Context, shortURL string) (string, bool) {
	resp, err := s.cli.R().SetContext(ctx).Head(shortURL)
	if err != nil {
		return "", false
	}

	finalURL := shortURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}

	if m := accountPathRe.FindStringSubmatch(finalURL); m != nil {
		return m[1], true
	}
	return "", false
}
