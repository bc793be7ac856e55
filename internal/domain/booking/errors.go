package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound  = errors.New("予約が見つかりません")
	ErrMixedIDPolicy    = errors.New("IDポリシーの異なる予約は比較できません")
	ErrInvalidID        = errors.New("予約IDは正の整数である必要があります")
	ErrInvalidSeat      = errors.New("座席番号は1以上である必要があります")
	ErrCustomerRequired = errors.New("顧客名は必須です")
	ErrInvalidCategory  = errors.New("カテゴリIDは0以上である必要があります")
	ErrInvalidPrice     = errors.New("価格は0以上である必要があります")
)
