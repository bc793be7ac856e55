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

const availableCountKey = "venue:seats:available"

// AvailabilityCache は会場の空席数キャッシュを管理する
// あくまで参照系の近似値であり、予約トランザクションの正しさには関与しない
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しい AvailabilityCache を作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetAvailableCount は空席数をキャッシュから取得する
func (c *AvailabilityCache) GetAvailableCount(ctx context.Context) (int, error) {
	val, err := c.client.Get(ctx, availableCountKey).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableCount は空席数をキャッシュに保存する
func (c *AvailabilityCache) SetAvailableCount(ctx context.Context, count int, ttl time.Duration) error {
	if err := c.client.Set(ctx, availableCountKey, count, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は空席数キャッシュを無効化する
// 予約・取消・初期化の成功後に呼ばれる
func (c *AvailabilityCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, availableCountKey).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}
