package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-booking/internal/domain/category"
	"github.com/sanosuguru/go-venue-booking/internal/domain/seat"
	"github.com/sanosuguru/go-venue-booking/internal/pkg/logger"
)

// StoreInitializer はデータストアの初期化を行うインターフェース
type StoreInitializer interface {
	// InitDataStore は座席数と価格リストでデータストアを初期化する
	// 既に初期化済み・予約が存在する場合もゼロから再構築する。
	// 完了後はすべての座席が予約可能で、予約は存在しない
	InitDataStore(ctx context.Context, seatCount int, priceList []float64) error
}

// StoreAdminService はデータストアの初期化と価格リスト参照を提供する
// 予約トランザクションの外側にある管理用の操作で、テストハーネスや
// 運用ツールから使用される
type StoreAdminService struct {
	initializer StoreInitializer
	categories  category.Repository
	cache       AvailabilityCache // nil可
}

// NewStoreAdminService は新しい StoreAdminService を作成する
func NewStoreAdminService(init StoreInitializer, cr category.Repository, cache AvailabilityCache) *StoreAdminService {
	return &StoreAdminService{initializer: init, categories: cr, cache: cache}
}

// InitDataStore はデータストアを初期化する
func (s *StoreAdminService) InitDataStore(ctx context.Context, seatCount int, priceList []float64) error {
	if seatCount < 1 {
		return seat.ErrInvalidSeatCount
	}
	for _, price := range priceList {
		if price < 0 {
			return category.ErrInvalidPrice
		}
	}

	if err := s.initializer.InitDataStore(ctx, seatCount, priceList); err != nil {
		return fmt.Errorf("データストア初期化に失敗: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(err))
		}
	}
	logger.Info("データストアを初期化",
		zap.Int("seat_count", seatCount),
		zap.Int("category_count", len(priceList)),
	)
	return nil
}

// PriceList は価格リストをカテゴリID順で返す
func (s *StoreAdminService) PriceList(ctx context.Context) ([]float64, error) {
	return s.categories.Prices(ctx)
}
