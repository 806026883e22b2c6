package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約試行の総数（outcome: confirmed, waitlisted, conflict, error）
	BookingsTotal *prometheus.CounterVec

	// キャンセルの総数
	CancellationsTotal prometheus.Counter

	// ウェイトリスト昇格の総数（mode: seatmap, capacity）
	WaitlistPromotionsTotal *prometheus.CounterVec

	// 冪等性キーの重複ヒット総数（fast_path か insert_race か）
	IdempotentHitsTotal *prometheus.CounterVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Total number of booking attempts",
			},
			[]string{"outcome"},
		),
		CancellationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "booking_cancellations_total",
				Help: "Total number of booking cancellations",
			},
		),
		WaitlistPromotionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_promotions_total",
				Help: "Total number of waitlist promotions",
			},
			[]string{"mode"},
		),
		IdempotentHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idempotent_hits_total",
				Help: "Total number of duplicate booking requests resolved to an existing booking",
			},
			[]string{"path"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.CancellationsTotal,
		m.WaitlistPromotionsTotal,
		m.IdempotentHitsTotal,
	)

	return m
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
