package booking

import (
	"context"

	"github.com/sanosuguru/go-venue-booking/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は予約を1件作成し、ストアが採番したIDを設定する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, b *Booking) error

	// ByCustomer は指定した顧客の予約を座席番号順で取得する
	// customer が空文字列の場合は全顧客の予約を返す
	ByCustomer(ctx context.Context, customer string) ([]*Booking, error)

	// BySeatForUpdate はトランザクション内で座席番号から予約を取得し、
	// 行をロックする。予約が存在しない場合は ErrBookingNotFound を返す
	// （トランザクション必須）
	BySeatForUpdate(ctx context.Context, tx transaction.Tx, seatNumber int) (*Booking, error)

	// Delete はIDで予約を1件削除する。対象が存在しない場合は
	// ErrBookingNotFound を返す（トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, id int) error
}
