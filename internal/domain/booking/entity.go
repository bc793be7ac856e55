package booking

// Booking は予約レコードを表す
// 予約は作成後に変更されない。座席番号・顧客名・価格カテゴリ・予約時点の
// 価格を保持する。価格は予約時点のカテゴリ価格のコピーであり、カテゴリへの
// 参照ではない
//
// 予約の同一性には2つのポリシーがある。データストアが採番するID（正の整数）で
// 識別するか、IDを持たず (seat, customer, category, price) のタプルで識別するか
// のいずれかで、1つのストア実装はどちらか一方に統一しなければならない。
// ポリシーの異なる予約同士の比較はプログラミング上の契約違反であり、
// Equal は ErrMixedIDPolicy を返す
type Booking struct {
	ID       int
	Seat     int
	Customer string
	Category int
	Price    float64
}

// New はIDを持たない新しい予約を作成する
func New(seat int, customer string, category int, price float64) *Booking {
	return &Booking{Seat: seat, Customer: customer, Category: category, Price: price}
}

// NewIdentified はストアが採番したIDを持つ予約を作成する
func NewIdentified(id, seat int, customer string, category int, price float64) (*Booking, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	return &Booking{ID: id, Seat: seat, Customer: customer, Category: category, Price: price}, nil
}

// Identified はこの予約がストア採番のIDを持つかを返す
func (b *Booking) Identified() bool {
	return b.ID > 0
}

// Equal は2つの予約が同一かを返す
// 両者がIDを持つ場合はIDで、両者がIDを持たない場合はタプルで比較する。
// ポリシーが混在している場合は ErrMixedIDPolicy を返す
func (b *Booking) Equal(other *Booking) (bool, error) {
	if b.Identified() != other.Identified() {
		return false, ErrMixedIDPolicy
	}
	if b.Identified() {
		return b.ID == other.ID, nil
	}
	return b.SameDetails(other), nil
}

// SameDetails は座席番号・顧客名・カテゴリ・価格が一致するかを返す
// IDの有無にかかわらず予約内容の照合に使用する
func (b *Booking) SameDetails(other *Booking) bool {
	return b.Seat == other.Seat &&
		b.Customer == other.Customer &&
		b.Category == other.Category &&
		b.Price == other.Price
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.Seat < 1 {
		return ErrInvalidSeat
	}
	if b.Customer == "" {
		return ErrCustomerRequired
	}
	if b.Category < 0 {
		return ErrInvalidCategory
	}
	if b.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}
