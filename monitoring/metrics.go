// Package monitoring 估价过程指标，基于 Prometheus 客户端
package monitoring

import (
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const (
	MetricEstimates       = "estimates_total"
	MetricLatency         = "estimate_duration_seconds"
	MetricStorageWarnings = "storage_warnings_total"
)

// 估价结果标签
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Metric 指标快照，用于 JSON 接口
type Metric struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Help   string            `json:"help,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
	Count  uint64            `json:"count,omitempty"`
}

// Collector 估价指标收集器，每个实例使用独立的注册表。
// nil 收集器所有方法都是空操作
type Collector struct {
	registry        *prometheus.Registry
	estimates       *prometheus.CounterVec
	latency         prometheus.Summary
	storageWarnings prometheus.Counter
}

// NewCollector 创建指标收集器，同时注册 Go 运行时指标
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricEstimates,
			Help: "Estimates by outcome",
		}, []string{"outcome"}),
		latency: prometheus.NewSummary(prometheus.SummaryOpts{
			Name:       MetricLatency,
			Help:       "Range check, derive, predict and save time",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		storageWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricStorageWarnings,
			Help: "Estimates that could not be persisted",
		}),
	}
	c.registry.MustRegister(
		c.estimates,
		c.latency,
		c.storageWarnings,
		collectors.NewGoCollector(),
	)
	return c
}

// CountEstimate 按结果计数
func (c *Collector) CountEstimate(outcome string) {
	if c == nil {
		return
	}
	c.estimates.WithLabelValues(outcome).Inc()
}

// CountStorageWarning 记录一次保存失败
func (c *Collector) CountStorageWarning() {
	if c == nil {
		return
	}
	c.storageWarnings.Inc()
}

// ObserveDuration 记录一次估价耗时
func (c *Collector) ObserveDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.latency.Observe(d.Seconds())
}

// Handler Prometheus 文本格式导出
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Snapshot 返回估价相关指标，按名称和标签排序，运行时指标不包含在内
func (c *Collector) Snapshot() ([]Metric, error) {
	if c == nil {
		return nil, nil
	}
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}

	result := make([]Metric, 0)
	for _, family := range families {
		switch family.GetName() {
		case MetricEstimates, MetricLatency, MetricStorageWarnings:
		default:
			continue
		}
		for _, m := range family.GetMetric() {
			metric := Metric{
				Name:   family.GetName(),
				Type:   family.GetType().String(),
				Help:   family.GetHelp(),
				Labels: labels(m),
			}
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				metric.Value = m.GetCounter().GetValue()
			case dto.MetricType_SUMMARY:
				metric.Value = m.GetSummary().GetSampleSum()
				metric.Count = m.GetSummary().GetSampleCount()
			case dto.MetricType_GAUGE:
				metric.Value = m.GetGauge().GetValue()
			}
			result = append(result, metric)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].Labels["outcome"] < result[j].Labels["outcome"]
	})
	return result, nil
}

// Value 返回计数器当前值或汇总的累计值，不存在时为 0
func (c *Collector) Value(name string, labels map[string]string) float64 {
	snapshot, err := c.Snapshot()
	if err != nil {
		return 0
	}
	for _, m := range snapshot {
		if m.Name == name && sameLabels(m.Labels, labels) {
			return m.Value
		}
	}
	return 0
}

func labels(m *dto.Metric) map[string]string {
	if len(m.GetLabel()) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.GetLabel()))
	for _, pair := range m.GetLabel() {
		out[pair.GetName()] = pair.GetValue()
	}
	return out
}

func sameLabels(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
