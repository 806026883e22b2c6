package application

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sc941432/Atlan/internal/domain/booking"
	"github.com/sc941432/Atlan/internal/domain/event"
	"github.com/sc941432/Atlan/internal/infrastructure/redis"
	"github.com/sc941432/Atlan/internal/pkg/logger"
)

// 集計に含める日別時系列の日数
const timeseriesDays = 7

// EventStats はイベント1件分の利用状況
type EventStats struct {
	EventID       int64   `json:"event_id"`
	Name          string  `json:"name"`
	Capacity      int     `json:"capacity"`
	BookedCount   int     `json:"booked_count"`
	Utilization   float64 `json:"utilization"`
	WaitlistCount int     `json:"waitlist_count"`
}

// Summary は全体の集計サマリー
type Summary struct {
	TotalEvents    int                `json:"total_events"`
	TotalCapacity  int                `json:"total_capacity"`
	TotalBooked    int                `json:"total_booked"`
	Events         []EventStats       `json:"events"`
	TopEvents      []EventStats       `json:"top_events"`
	DailyConfirmed []booking.DayCount `json:"daily_confirmed"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// AnalyticsService は集計サマリーの計算とキャッシュを担う
type AnalyticsService struct {
	eventRepo   event.Repository
	bookingRepo booking.Repository
	cache       StatsCache
	cacheTTL    time.Duration
}

// NewAnalyticsService はAnalyticsServiceを作成する
func NewAnalyticsService(
	eventRepo event.Repository,
	bookingRepo booking.Repository,
	cache StatsCache,
	cacheTTL time.Duration,
) *AnalyticsService {
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &AnalyticsService{
		eventRepo:   eventRepo,
		bookingRepo: bookingRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

// GetSummary はキャッシュ優先でサマリーを返す
// キャッシュの読み書きはベストエフォートで、失敗しても計算結果は返す
func (s *AnalyticsService) GetSummary(ctx context.Context) (*Summary, error) {
	if s.cache != nil {
		data, err := s.cache.GetSummary(ctx)
		if err == nil {
			var summary Summary
			uerr := json.Unmarshal(data, &summary)
			if uerr == nil {
				return &summary, nil
			}
			// 壊れたキャッシュは捨てて再計算する
			logger.Warn("集計キャッシュの読み取りに失敗しました", zap.Error(uerr))
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			logger.Warn("集計キャッシュの取得に失敗しました", zap.Error(err))
		}
	}
	return s.Recompute(ctx)
}

// Recompute はサマリーを計算し直してキャッシュに保存する
func (s *AnalyticsService) Recompute(ctx context.Context) (*Summary, error) {
	events, err := s.eventRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	eventIDs := make([]int64, len(events))
	for i, ev := range events {
		eventIDs[i] = ev.ID
	}
	waitlistCounts, err := s.bookingRepo.CountWaitlistedByEvents(ctx, eventIDs)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalEvents: len(events),
		Events:      make([]EventStats, len(events)),
		GeneratedAt: time.Now().UTC(),
	}
	for i, ev := range events {
		utilization := 0.0
		if ev.Capacity > 0 {
			utilization = float64(ev.BookedCount) / float64(ev.Capacity) * 100
		}
		summary.Events[i] = EventStats{
			EventID:       ev.ID,
			Name:          ev.Name,
			Capacity:      ev.Capacity,
			BookedCount:   ev.BookedCount,
			Utilization:   utilization,
			WaitlistCount: waitlistCounts[ev.ID],
		}
		summary.TotalCapacity += ev.Capacity
		summary.TotalBooked += ev.BookedCount
	}

	summary.TopEvents = topByUtilization(summary.Events, 5)

	since := time.Now().UTC().AddDate(0, 0, -timeseriesDays)
	daily, err := s.bookingRepo.DailyCounts(ctx, booking.StatusConfirmed, since)
	if err != nil {
		return nil, err
	}
	summary.DailyConfirmed = daily

	if s.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			if serr := s.cache.SetSummary(ctx, data, s.cacheTTL); serr != nil {
				logger.Warn("集計キャッシュの保存に失敗しました", zap.Error(serr))
			}
		}
	}
	return summary, nil
}

// topByUtilization は利用率の高い順に最大n件を返す
// 同率は予約数の多い順、さらにID昇順で安定させる
func topByUtilization(stats []EventStats, n int) []EventStats {
	top := make([]EventStats, len(stats))
	copy(top, stats)
	sort.SliceStable(top, func(i, j int) bool {
		if top[i].Utilization != top[j].Utilization {
			return top[i].Utilization > top[j].Utilization
		}
		if top[i].BookedCount != top[j].BookedCount {
			return top[i].BookedCount > top[j].BookedCount
		}
		return top[i].EventID < top[j].EventID
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}
