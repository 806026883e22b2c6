package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sc941432/Atlan/internal/application"
	"github.com/sc941432/Atlan/internal/pkg/logger"
)

// SummaryRecomputer は集計サマリーを再計算するインターフェース
type SummaryRecomputer interface {
	Recompute(ctx context.Context) (*application.Summary, error)
}

// StatsWarmer は集計サマリーのキャッシュを定期的に温め直すワーカー
type StatsWarmer struct {
	analyticsService SummaryRecomputer
	interval         time.Duration
	stopCh           chan struct{}
	doneCh           chan struct{}
}

// NewStatsWarmer は新しいウォーマーを作成
func NewStatsWarmer(as SummaryRecomputer, interval time.Duration) *StatsWarmer {
	return &StatsWarmer{
		analyticsService: as,
		interval:         interval,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Start はウォーマーを開始
func (w *StatsWarmer) Start(ctx context.Context) {
	logger.Info("集計キャッシュウォーマー開始",
		zap.Duration("interval", w.interval),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("集計キャッシュウォーマー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("集計キャッシュウォーマー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

// Stop はウォーマーを停止
func (w *StatsWarmer) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// warm はサマリーを再計算してキャッシュを更新する
func (w *StatsWarmer) warm(ctx context.Context) {
	log := logger.Get()
	log.Debug("集計サマリーの再計算開始")

	summary, err := w.analyticsService.Recompute(ctx)
	if err != nil {
		log.Error("集計サマリーの再計算失敗", zap.Error(err))
		return
	}

	log.Debug("集計サマリーを更新",
		zap.Int("total_events", summary.TotalEvents),
		zap.Int("total_booked", summary.TotalBooked),
	)
}
