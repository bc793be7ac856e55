package seat

// Seat は会場の座席エンティティを表す
// 座席は [1, seatCount] の番号で一意に識別される。劇場のような行・列の概念は
// 持たず、番号が連続する座席同士を隣接とみなす
type Seat struct {
	Number    int
	Available bool
}

// NewSeat は予約可能な状態の新しい座席を作成する
func NewSeat(number int) *Seat {
	return &Seat{Number: number, Available: true}
}

// IsAdjoining は他の座席と隣接しているかを返す
func (s *Seat) IsAdjoining(other *Seat) bool {
	diff := s.Number - other.Number
	return diff == 1 || diff == -1
}
