// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type Recorder interface {
	RecordJobDispatched(action string)
	RecordClockSuccess(action string)
	RecordClockFailure(action string)
	RecordProviderLatency(duration time.Duration)
	RecordMailSent()
	RecordMailFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	jobsDispatched  *prometheus.CounterVec
	clockSuccess    *prometheus.CounterVec
	clockFail       *prometheus.CounterVec
	providerLatency prometheus.Histogram
	mailSent        prometheus.Counter
	mailFail        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_jobs_dispatched_total",
			Help: "ディスパッチされた打刻ジョブの合計数",
		}, []string{"action"}),
		clockSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_clock_success_total",
			Help: "打刻成功の合計数",
		}, []string{"action"}),
		clockFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_clock_fail_total",
			Help: "打刻失敗の合計数",
		}, []string{"action"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "attendance_provider_latency_seconds",
			Help:    "プロバイダAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		mailSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_mail_sent_total",
			Help: "送信された通知メールの合計数",
		}),
		mailFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_mail_fail_total",
			Help: "送信に失敗した通知メールの合計数",
		}),
	}

	reg.MustRegister(
		c.jobsDispatched,
		c.clockSuccess,
		c.clockFail,
		c.providerLatency,
		c.mailSent,
		c.mailFail,
	)

	return c
}

// RecordJobDispatched は打刻ジョブのディスパッチを記録する。
func (c *Collector) RecordJobDispatched(action string) {
	c.jobsDispatched.WithLabelValues(action).Inc()
}

// RecordClockSuccess は打刻成功を記録する。
func (c *Collector) RecordClockSuccess(action string) {
	c.clockSuccess.WithLabelValues(action).Inc()
}

// RecordClockFailure は打刻失敗を記録する。
func (c *Collector) RecordClockFailure(action string) {
	c.clockFail.WithLabelValues(action).Inc()
}

// RecordProviderLatency はプロバイダAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(duration time.Duration) {
	c.providerLatency.Observe(duration.Seconds())
}

// RecordMailSent は通知メールの送信成功を記録する。
func (c *Collector) RecordMailSent() {
	c.mailSent.Inc()
}

// RecordMailFailure は通知メールの送信失敗を記録する。
func (c *Collector) RecordMailFailure() {
	c.mailFail.Inc()
}

// Handler はメトリクス公開用のHTTPハンドラーを返す。
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Noop は何も記録しないRecorder。テストで使用する。
type Noop struct{}

// RecordJobDispatched は何もしない。
func (Noop) RecordJobDispatched(action string) {}

// RecordClockSuccess は何もしない。
func (Noop) RecordClockSuccess(action string) {}

// RecordClockFailure は何もしない。
func (Noop) RecordClockFailure(action string) {}

// RecordProviderLatency は何もしない。
func (Noop) RecordProviderLatency(duration time.Duration) {}

// RecordMailSent は何もしない。
func (Noop) RecordMailSent() {}

// RecordMailFailure は何もしない。
func (Noop) RecordMailFailure() {}

// compile-time interface check
var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Noop{}
)
