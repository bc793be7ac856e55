package category

// Category は価格カテゴリを表す
// カテゴリは [0, categoryCount) の整数で一意に識別され、価格は初期化時に
// 確定し以後変更されない。座席の位置による価格差は持たない
type Category struct {
	ID    int
	Price float64
}

// NewCategory は新しい価格カテゴリを作成する
func NewCategory(id int, price float64) *Category {
	return &Category{ID: id, Price: price}
}

// Validate はカテゴリの検証を行う
func (c *Category) Validate() error {
	if c.ID < 0 {
		return ErrInvalidCategoryID
	}
	if c.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}
