package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

const summaryKey = "analytics:summary"

// StatsCache は集計サマリーのキャッシュを管理する
// サマリーはJSONバイト列として丸ごと保存する
type StatsCache struct {
	client *redis.Client
}

// NewStatsCache は新しいStatsCacheインスタンスを作成する
func NewStatsCache(client *redis.Client) *StatsCache {
	return &StatsCache{client: client}
}

// GetSummary はサマリーをキャッシュから取得する
func (c *StatsCache) GetSummary(ctx context.Context) ([]byte, error) {
	val, err := c.client.Get(ctx, summaryKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetSummary はサマリーをキャッシュに保存する
func (c *StatsCache) SetSummary(ctx context.Context, data []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, summaryKey, data, ttl).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はサマリーのキャッシュを無効化する
func (c *StatsCache) Invalidate(ctx context.Context) error {
	err := c.client.Del(ctx, summaryKey).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}
