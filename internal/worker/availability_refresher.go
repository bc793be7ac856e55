package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-venue-booking/internal/pkg/metrics"
)

// AvailabilityCounter は現在の空席数を取得するインターフェース
type AvailabilityCounter interface {
	CountAvailable(ctx context.Context) (int, error)
}

// CountCache は空席数キャッシュを更新するインターフェース
type CountCache interface {
	SetAvailableCount(ctx context.Context, count int, ttl time.Duration) error
}

// AvailabilityRefresher は空席数を定期的に再集計し、メトリクスのゲージと
// キャッシュを更新するワーカー
type AvailabilityRefresher struct {
	counter  AvailabilityCounter
	cache    CountCache // nil可
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewAvailabilityRefresher は新しいリフレッシャーを作成
func NewAvailabilityRefresher(counter AvailabilityCounter, cache CountCache, interval time.Duration) *AvailabilityRefresher {
	return &AvailabilityRefresher{
		counter:  counter,
		cache:    cache,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はリフレッシャーを開始
func (r *AvailabilityRefresher) Start(ctx context.Context) {
	logger.Info("空席数リフレッシャー開始", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("空席数リフレッシャー停止（コンテキストキャンセル）")
			return
		case <-r.stopCh:
			logger.Info("空席数リフレッシャー停止（シグナル受信）")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// Stop はリフレッシャーを停止
func (r *AvailabilityRefresher) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// refresh は空席数を再集計してゲージとキャッシュに反映する
func (r *AvailabilityRefresher) refresh(ctx context.Context) {
	count, err := r.counter.CountAvailable(ctx)
	if err != nil {
		logger.Error("空席数の集計に失敗", zap.Error(err))
		return
	}

	if m := metrics.Get(); m != nil {
		m.AvailableSeats.Set(float64(count))
	}
	if r.cache != nil {
		if err := r.cache.SetAvailableCount(ctx, count, 2*r.interval); err != nil {
			logger.Warn("空席数キャッシュの更新に失敗", zap.Error(err))
		}
	}
	logger.Debug("空席数を更新", zap.Int("count", count))
}
