package category

import "errors"

// Category ドメインのエラー定義
var (
	ErrCategoryNotFound  = errors.New("価格カテゴリが見つかりません")
	ErrInvalidCategoryID = errors.New("カテゴリIDは0以上である必要があります")
	ErrInvalidPrice      = errors.New("価格は0以上である必要があります")
)
