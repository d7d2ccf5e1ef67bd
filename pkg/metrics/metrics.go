// Package metrics 提供店铺服务的 Prometheus 指标与收集器接口
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 购物车变更次数（按操作）
	CartMutationsTotal *prometheus.CounterVec
	// 购物车快照写入失败次数
	CartSnapshotWriteFailures prometheus.Counter
	// 内存中的会话购物车数量
	CartStoresActive prometheus.Gauge

	// 远程目录调用失败次数（按操作）
	CatalogFailuresTotal *prometheus.CounterVec
	// 被新查询取代而丢弃的搜索
	SearchSupersededTotal prometheus.Counter

	// 联系表单提交（按结果）
	ContactSubmissionsTotal *prometheus.CounterVec
	// WhatsApp 下单转交次数
	OrderHandoffsTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		CartMutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "cart_mutations_total",
			Help:      "Cart store mutations by operation",
		}, []string{"op"}),
		CartSnapshotWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "cart_snapshot_write_failures_total",
			Help:      "Failed best-effort cart snapshot writes",
		}),
		CartStoresActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "cart_stores_active",
			Help:      "Session cart stores held in memory",
		}),

		CatalogFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "catalog_failures_total",
			Help:      "Remote catalog failures degraded to empty results",
		}, []string{"op"}),
		SearchSupersededTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "search_superseded_total",
			Help:      "Search queries discarded because a newer query was issued",
		}),

		ContactSubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "contact_submissions_total",
			Help:      "Contact form submissions by outcome",
		}, []string{"outcome"}),
		OrderHandoffsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "order_handoffs_total",
			Help:      "Orders handed off to WhatsApp",
		}),
	}
}

// Register 将所有指标注册到 reg，reg 为 nil 时使用默认注册器
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CartMutationsTotal,
		m.CartSnapshotWriteFailures,
		m.CartStoresActive,
		m.CatalogFailuresTotal,
		m.SearchSupersededTotal,
		m.ContactSubmissionsTotal,
		m.OrderHandoffsTotal,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// NewHTTPServer 创建 Prometheus 指标 HTTP 服务器
func NewHTTPServer(addr, path string) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}

// Collector 指标收集器接口，业务代码只依赖此接口
type Collector interface {
	// 记录 HTTP 请求
	RecordHTTPRequest(method, path string, statusCode int, duration float64)
	// 记录购物车变更
	RecordCartMutation(op string)
	// 记录快照写入失败
	RecordSnapshotWriteFailure()
	// 更新内存购物车数量
	SetCartStores(n int)
	// 记录远程目录失败
	RecordCatalogFailure(op string)
	// 记录被取代的搜索
	RecordSearchSuperseded()
	// 记录联系表单提交结果
	RecordContactSubmission(outcome string)
	// 记录下单转交
	RecordOrderHandoff()
}

// DefaultCollector 基于 Metrics 的收集器实现
type DefaultCollector struct {
	metrics *Metrics
}

// NewDefaultCollector 创建默认指标收集器
func NewDefaultCollector(metrics *Metrics) *DefaultCollector {
	return &DefaultCollector{metrics: metrics}
}

// RecordHTTPRequest 记录 HTTP 请求
func (c *DefaultCollector) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	c.metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordCartMutation 记录购物车变更
func (c *DefaultCollector) RecordCartMutation(op string) {
	c.metrics.CartMutationsTotal.WithLabelValues(op).Inc()
}

// RecordSnapshotWriteFailure 记录快照写入失败
func (c *DefaultCollector) RecordSnapshotWriteFailure() {
	c.metrics.CartSnapshotWriteFailures.Inc()
}

// SetCartStores 更新内存购物车数量
func (c *DefaultCollector) SetCartStores(n int) {
	c.metrics.CartStoresActive.Set(float64(n))
}

// RecordCatalogFailure 记录远程目录失败
func (c *DefaultCollector) RecordCatalogFailure(op string) {
	c.metrics.CatalogFailuresTotal.WithLabelValues(op).Inc()
}

// RecordSearchSuperseded 记录被取代的搜索
func (c *DefaultCollector) RecordSearchSuperseded() {
	c.metrics.SearchSupersededTotal.Inc()
}

// RecordContactSubmission 记录联系表单提交结果
func (c *DefaultCollector) RecordContactSubmission(outcome string) {
	c.metrics.ContactSubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordOrderHandoff 记录下单转交
func (c *DefaultCollector) RecordOrderHandoff() {
	c.metrics.OrderHandoffsTotal.Inc()
}

// Nop 不做任何记录的收集器，用于测试与未启用指标时
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, float64) {}
func (Nop) RecordCartMutation(string)                      {}
func (Nop) RecordSnapshotWriteFailure()                    {}
func (Nop) SetCartStores(int)                              {}
func (Nop) RecordCatalogFailure(string)                    {}
func (Nop) RecordSearchSuperseded()                        {}
func (Nop) RecordContactSubmission(string)                 {}
func (Nop) RecordOrderHandoff()                            {}
