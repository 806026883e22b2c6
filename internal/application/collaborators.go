package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sc941432/Atlan/internal/pkg/logger"
)

// StatsCache は集計サマリーの読み取りキャッシュ
// 予約フローからの無効化はベストエフォートで、失敗しても処理を止めない
type StatsCache interface {
	GetSummary(ctx context.Context) ([]byte, error)
	SetSummary(ctx context.Context, data []byte, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// EventPublisher は予約ライフサイクルイベントの発行先
// nil のとき発行は無効。発行の失敗は握りつぶす
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// 発行するルーティングキー
const (
	RouteBookingConfirmed  = "booking.confirmed"
	RouteBookingWaitlisted = "booking.waitlisted"
	RouteBookingCancelled  = "booking.cancelled"
	RouteWaitlistPromoted  = "waitlist.promoted"
)

// BookingEvent は発行される予約イベントのペイロード
type BookingEvent struct {
	BookingID int64     `json:"booking_id"`
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	Qty       int       `json:"qty"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// invalidateStats はキャッシュ無効化をベストエフォートで行う
func invalidateStats(ctx context.Context, cache StatsCache) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		logger.Warn("集計キャッシュの無効化に失敗しました", zap.Error(err))
	}
}

// publishEvent はイベント発行をベストエフォートで行う
func publishEvent(ctx context.Context, pub EventPublisher, routingKey string, payload BookingEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, routingKey, payload); err != nil {
		logger.Warn("イベント発行に失敗しました",
			zap.String("routing_key", routingKey),
			zap.Error(err))
	}
}
