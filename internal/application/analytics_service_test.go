package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sc941432/Atlan/internal/domain/booking"
	"github.com/sc941432/Atlan/internal/domain/event"
	"github.com/sc941432/Atlan/internal/infrastructure/redis"
)

func TestAnalyticsService_GetSummary(t *testing.T) {
	t.Run("キャッシュヒット時は再計算しない", func(t *testing.T) {
		eventRepo := new(MockEventRepository)
		cache := new(MockStatsCache)

		cached := Summary{TotalEvents: 3, TotalCapacity: 300, TotalBooked: 150}
		data, err := json.Marshal(cached)
		require.NoError(t, err)
		cache.On("GetSummary", mock.Anything).Return(data, nil)

		s := NewAnalyticsService(eventRepo, nil, cache, time.Minute)
		summary, err := s.GetSummary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, summary.TotalEvents)
		assert.Equal(t, 150, summary.TotalBooked)
		eventRepo.AssertNotCalled(t, "ListAll", mock.Anything)
	})

	t.Run("キャッシュミス時は計算して保存する", func(t *testing.T) {
		eventRepo := new(MockEventRepository)
		bookingRepo := new(MockBookingRepository)
		cache := new(MockStatsCache)

		events := []*event.Event{
			{ID: 1, Name: "イベントA", Capacity: 100, BookedCount: 90},
			{ID: 2, Name: "イベントB", Capacity: 100, BookedCount: 10},
		}
		cache.On("GetSummary", mock.Anything).Return(nil, redis.ErrCacheMiss)
		eventRepo.On("ListAll", mock.Anything).Return(events, nil)
		bookingRepo.On("CountWaitlistedByEvents", mock.Anything, []int64{1, 2}).
			Return(map[int64]int{1: 4}, nil)
		bookingRepo.On("DailyCounts", mock.Anything, booking.StatusConfirmed, mock.AnythingOfType("time.Time")).
			Return([]booking.DayCount{{Date: "2026-08-27", Count: 12}}, nil)
		cache.On("SetSummary", mock.Anything, mock.AnythingOfType("[]uint8"), time.Minute).Return(nil)

		s := NewAnalyticsService(eventRepo, bookingRepo, cache, time.Minute)
		summary, err := s.GetSummary(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, summary.TotalEvents)
		assert.Equal(t, 200, summary.TotalCapacity)
		assert.Equal(t, 100, summary.TotalBooked)
		require.Len(t, summary.Events, 2)
		assert.InDelta(t, 90.0, summary.Events[0].Utilization, 0.01)
		assert.Equal(t, 4, summary.Events[0].WaitlistCount)
		require.Len(t, summary.DailyConfirmed, 1)
		cache.AssertCalled(t, "SetSummary", mock.Anything, mock.Anything, time.Minute)
	})

	t.Run("キャッシュなしでも動作する", func(t *testing.T) {
		eventRepo := new(MockEventRepository)
		bookingRepo := new(MockBookingRepository)

		eventRepo.On("ListAll", mock.Anything).Return([]*event.Event{}, nil)
		bookingRepo.On("CountWaitlistedByEvents", mock.Anything, []int64{}).
			Return(map[int64]int{}, nil)
		bookingRepo.On("DailyCounts", mock.Anything, booking.StatusConfirmed, mock.AnythingOfType("time.Time")).
			Return([]booking.DayCount{}, nil)

		s := NewAnalyticsService(eventRepo, bookingRepo, nil, 0)
		summary, err := s.GetSummary(context.Background())
		require.NoError(t, err)
		assert.Zero(t, summary.TotalEvents)
	})
}

func TestTopByUtilization(t *testing.T) {
	t.Run("利用率の高い順に最大5件を返す", func(t *testing.T) {
		stats := []EventStats{
			{EventID: 1, Utilization: 50},
			{EventID: 2, Utilization: 90},
			{EventID: 3, Utilization: 10},
			{EventID: 4, Utilization: 100},
			{EventID: 5, Utilization: 70},
			{EventID: 6, Utilization: 30},
		}
		top := topByUtilization(stats, 5)
		require.Len(t, top, 5)
		assert.Equal(t, int64(4), top[0].EventID)
		assert.Equal(t, int64(2), top[1].EventID)
		assert.Equal(t, int64(6), top[4].EventID)
	})

	t.Run("同率は予約数とIDで安定に並ぶ", func(t *testing.T) {
		stats := []EventStats{
			{EventID: 2, Utilization: 50, BookedCount: 10},
			{EventID: 1, Utilization: 50, BookedCount: 10},
			{EventID: 3, Utilization: 50, BookedCount: 20},
		}
		top := topByUtilization(stats, 5)
		assert.Equal(t, int64(3), top[0].EventID)
		assert.Equal(t, int64(1), top[1].EventID)
		assert.Equal(t, int64(2), top[2].EventID)
	})
}
