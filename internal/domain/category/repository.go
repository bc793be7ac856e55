package category

import (
	"context"

	"github.com/sanosuguru/go-venue-booking/internal/domain/transaction"
)

// Repository は価格カテゴリリポジトリのインターフェース
type Repository interface {
	// Prices は価格リストをカテゴリID順で取得する
	// 戻り値のインデックスがカテゴリIDに対応する
	Prices(ctx context.Context) ([]float64, error)

	// PricesForBooking はトランザクション内で価格リストを取得する
	// 予約時の価格確定に使用する（トランザクション必須）
	PricesForBooking(ctx context.Context, tx transaction.Tx) ([]float64, error)
}
