// Package httpclient 提供远程 HTTP API 客户端工厂：超时、重试（仅幂等请求）、熔断与日志
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// ClientConfig 远程 API 客户端配置
type ClientConfig struct {
	// API 根地址
	BaseURL string
	// 单次请求超时
	Timeout time.Duration
	// GET 请求的最大重试次数
	Retries int
	// 重试等待（首次）
	RetryWait time.Duration
}

// NewClient 创建 resty 客户端，只有 GET/HEAD 在网络错误、429 与 5xx 时重试
func NewClient(cfg ClientConfig) *resty.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 200 * time.Millisecond
	}

	client := resty.New()
	client.
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryWait*10).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{}).
		AddRetryCondition(retryable)

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug(resp.Request.Context(), "Remote API call",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status_code", resp.StatusCode(),
			"duration", resp.Time(),
		)
		return nil
	})
	return client
}

func retryable(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil {
		return false
	}
	switch resp.Request.Method {
	case http.MethodGet, http.MethodHead:
	default:
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// BreakerConfig 熔断配置
type BreakerConfig struct {
	Name string
	// 连续失败次数达到阈值后打开
	Failures uint32
	// 打开状态持续时间，之后进入半开
	Timeout time.Duration
	// 不计为失败的错误（例如业务上的 not found）
	Ignore []error
}

// NewBreaker 创建熔断器，状态变化写日志
func NewBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			for _, ignored := range cfg.Ignore {
				if errors.Is(err, ignored) {
					return true
				}
			}
			// 调用方取消不代表远端故障
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// StatusError 远端返回非 2xx
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// restyLogger 将 resty 内部日志接入 slog
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	logger.Error(context.Background(), fmt.Sprintf(format, v...), "component", "resty")
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	logger.Warn(context.Background(), fmt.Sprintf(format, v...), "component", "resty")
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	logger.Debug(context.Background(), fmt.Sprintf(format, v...), "component", "resty")
}
