package seat

import (
	"context"

	"github.com/sanosuguru/go-venue-booking/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// AvailableNumbers は予約可能な座席番号を昇順で取得する
	AvailableNumbers(ctx context.Context) ([]int, error)

	// AvailableNumbersForUpdate はトランザクション内で予約可能な座席番号を
	// 昇順で取得し、返した行をロックする（トランザクション必須）
	AvailableNumbersForUpdate(ctx context.Context, tx transaction.Tx) ([]int, error)

	// SetAvailability は指定した座席の予約可否を更新する（トランザクション必須）
	// 対象の座席がすべて期待する状態から更新されなかった場合は
	// ErrSeatStateChanged を返す
	SetAvailability(ctx context.Context, tx transaction.Tx, numbers []int, available bool) error

	// CountAvailable は予約可能な座席数を取得する
	CountAvailable(ctx context.Context) (int, error)
}
