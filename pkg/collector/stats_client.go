package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// StatsClient 贴纸行情统计接口的HTTP客户端
// 上游是公开的只读统计端点，一次请求返回全部藏品的行情数据
type StatsClient struct {
	BaseURL       string
	StatsEndpoint string
	Client        *http.Client
	limiter       *rate.Limiter
}

// NewStatsClient 创建新的行情客户端
// ratePerMinute 限制对上游的请求频率，避免触发上游限流
func NewStatsClient(baseURL, statsEndpoint string, timeout time.Duration, ratePerMinute int) *StatsClient {
	if statsEndpoint == "" {
		statsEndpoint = "/stats"
	}
	if ratePerMinute <= 0 {
		ratePerMinute = 20
	}

	return &StatsClient{
		BaseURL:       baseURL,
		StatsEndpoint: statsEndpoint,
		Client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1),
	}
}

// FetchStats 请求统计端点并返回原始JSON
func (c *StatsClient) FetchStats(ctx context.Context) (json.RawMessage, error) {
	// 请求限速
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Op: "rate_limit", Err: err}
	}

	url := c.BaseURL + c.StatsEndpoint
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{Op: "build_request", Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Op: "http", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{
			Op:  "http",
			Err: fmt.Errorf("上游返回非200状态码: %d, 响应: %s", resp.StatusCode, body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Op: "read_body", Err: err}
	}

	return json.RawMessage(body), nil
}
