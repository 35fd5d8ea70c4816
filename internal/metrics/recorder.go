// internal/metrics/recorder.go
package metrics

import (
	"bytes"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Snapshot 是某一时刻的计数器只读视图，随进程生命周期重置。
type Snapshot struct {
	ProcessedTotal  int64      `json:"processed_total"`
	ApprovedTotal   int64      `json:"approved_total"`
	RejectedTotal   int64      `json:"rejected_total"`
	FailedTotal     int64      `json:"failed_total"`
	DuplicateTotal  int64      `json:"duplicate_total"`
	LastProcessedAt *time.Time `json:"last_processed_at"`
	UptimeSeconds   int64      `json:"uptime_seconds"`
}

// Recorder 在两个决策点同步计数：评估成功后（区分 approved/rejected）
// 与任一失败路径之后。重复投递的跳过单独计数，不计入 processed 也不计入 failed。
// 计数器同时镜像到独立的 Prometheus Registry，供文本格式采集。
type Recorder struct {
	mu              sync.Mutex
	processed       int64
	approved        int64
	rejected        int64
	failed          int64
	duplicate       int64
	lastProcessedAt time.Time
	startedAt       time.Time

	registry     *prometheus.Registry
	processedCtr prometheus.Counter
	approvedCtr  prometheus.Counter
	rejectedCtr  prometheus.Counter
	failedCtr    prometheus.Counter
	duplicateCtr prometheus.Counter
	lastGauge    prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		startedAt: time.Now(),
		registry:  prometheus.NewRegistry(),
		processedCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "antifraud_invoices_processed_total",
			Help: "Total invoice events evaluated to a verdict.",
		}),
		approvedCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "antifraud_invoices_approved_total",
			Help: "Total invoice events approved.",
		}),
		rejectedCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "antifraud_invoices_rejected_total",
			Help: "Total invoice events rejected as fraudulent.",
		}),
		failedCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "antifraud_invoices_failed_total",
			Help: "Total invoice events that failed processing.",
		}),
		duplicateCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "antifraud_invoices_duplicate_total",
			Help: "Total redelivered invoice events skipped as already completed.",
		}),
		lastGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "antifraud_last_processed_timestamp_seconds",
			Help: "Unix timestamp of the last processed or failed event.",
		}),
	}
	r.registry.MustRegister(r.processedCtr, r.approvedCtr, r.rejectedCtr, r.failedCtr, r.duplicateCtr, r.lastGauge)
	return r
}

// RecordProcessed 在评估成功且结果已发布后调用。
func (r *Recorder) RecordProcessed(hasFraud bool) {
	now := time.Now()
	r.mu.Lock()
	r.processed++
	if hasFraud {
		r.rejected++
	} else {
		r.approved++
	}
	r.lastProcessedAt = now
	r.mu.Unlock()

	r.processedCtr.Inc()
	if hasFraud {
		r.rejectedCtr.Inc()
	} else {
		r.approvedCtr.Inc()
	}
	r.lastGauge.Set(float64(now.Unix()))
}

// RecordFailed 在任一失败路径（畸形消息、历史查询失败、发布失败等）调用。
func (r *Recorder) RecordFailed() {
	now := time.Now()
	r.mu.Lock()
	r.failed++
	r.lastProcessedAt = now
	r.mu.Unlock()

	r.failedCtr.Inc()
	r.lastGauge.Set(float64(now.Unix()))
}

// RecordDuplicate 在重复投递被静默跳过时调用。
func (r *Recorder) RecordDuplicate() {
	r.mu.Lock()
	r.duplicate++
	r.mu.Unlock()
	r.duplicateCtr.Inc()
}

// Snapshot 返回当前计数器的瞬时视图，无副作用。
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		ProcessedTotal: r.processed,
		ApprovedTotal:  r.approved,
		RejectedTotal:  r.rejected,
		FailedTotal:    r.failed,
		DuplicateTotal: r.duplicate,
		UptimeSeconds:  int64(time.Since(r.startedAt).Seconds()),
	}
	if !r.lastProcessedAt.IsZero() {
		t := r.lastProcessedAt
		s.LastProcessedAt = &t
	}
	return s
}

// PrometheusText 渲染标准的 Prometheus 文本采集格式。
func (r *Recorder) PrometheusText() (string, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// Registry 暴露底层 Registry，供 promhttp 处理器使用。
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
