package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound     = errors.New("座席が見つかりません")
	ErrInvalidSeatCount = errors.New("座席数は1以上である必要があります")
	ErrSeatStateChanged = errors.New("座席の状態が期待と一致しません")
)
