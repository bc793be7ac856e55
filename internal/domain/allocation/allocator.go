// Package allocation は空席集合と需要から予約する座席を選択する純粋な判定ロジックを提供する
// I/Oは行わず、選択結果か明確な拒否のいずれかを返す。部分的な選択は返さない
package allocation

import (
	"errors"

	"github.com/sanosuguru/go-venue-booking/internal/domain/seat"
)

// 割り当ての拒否理由。いずれも呼び出し側にとって正常な結果であり、
// ストア障害とは区別される
var (
	ErrNotEnoughSeats  = errors.New("需要に対して空席が不足しています")
	ErrNoAdjoiningRun  = errors.New("必要な数の連続した空席がありません")
	ErrSeatUnavailable = errors.New("指定された座席は予約できません")
	ErrDuplicateSeat   = errors.New("同じ座席が複数回指定されています")
	ErrInvalidDemand   = errors.New("座席数の指定が不正です")
)

// Assignment は選択された1座席とその価格カテゴリの組を表す
type Assignment struct {
	Seat     int
	Category int
}

// IsRejection は割り当ての拒否を表すエラーかを返す
// 拒否は状態を一切変更しない正常な結果として扱う
func IsRejection(err error) bool {
	return errors.Is(err, ErrNotEnoughSeats) ||
		errors.Is(err, ErrNoAdjoiningRun) ||
		errors.Is(err, ErrSeatUnavailable) ||
		errors.Is(err, ErrDuplicateSeat) ||
		errors.Is(err, ErrInvalidDemand)
}

// SelectByCount はカテゴリごとの必要数から予約する座席を選択する
// available は昇順・重複なしの空席番号、counts[i] はカテゴリiで必要な座席数。
// adjoining を指定した場合は連続した座席番号のみを選択し、必要な長さの連続が
// 存在しなければ全体を拒否する。
// 選択した座席は番号の昇順でカテゴリ0の必要数から順に割り当てる
func SelectByCount(available []int, counts []int, adjoining bool) ([]Assignment, error) {
	total := 0
	for _, c := range counts {
		if c < 0 {
			return nil, ErrInvalidDemand
		}
		total += c
	}
	if total == 0 {
		return nil, nil
	}
	if total > len(available) {
		return nil, ErrNotEnoughSeats
	}

	var selected []int
	if adjoining {
		run, ok := firstAdjoiningRun(available, total)
		if !ok {
			return nil, ErrNoAdjoiningRun
		}
		selected = run
	} else {
		selected = available[:total]
	}

	assignments := make([]Assignment, 0, total)
	idx := 0
	for cat, count := range counts {
		for i := 0; i < count; i++ {
			assignments = append(assignments, Assignment{Seat: selected[idx], Category: cat})
			idx++
		}
	}
	return assignments, nil
}

// SelectExplicit は座席番号を明示した需要の可否を判定する
// seatsPerCategory[i] はカテゴリiで予約したい座席番号のリスト。選択の自由は
// なく、すべての座席が空席でありカテゴリをまたいで重複しないことのみを検査する。
// 結果は要求と同じ順序（カテゴリ順、カテゴリ内は指定順）で返す
func SelectExplicit(available []int, seatsPerCategory [][]int) ([]Assignment, error) {
	availSet := make(map[int]struct{}, len(available))
	for _, n := range available {
		availSet[n] = struct{}{}
	}

	var assignments []Assignment
	requested := make(map[int]struct{})
	for cat, seats := range seatsPerCategory {
		for _, n := range seats {
			if _, dup := requested[n]; dup {
				return nil, ErrDuplicateSeat
			}
			requested[n] = struct{}{}
			if _, ok := availSet[n]; !ok {
				return nil, ErrSeatUnavailable
			}
			assignments = append(assignments, Assignment{Seat: n, Category: cat})
		}
	}
	return assignments, nil
}

// firstAdjoiningRun は昇順の空席リストから長さlengthの最初の連続区間を探す
// 次の空席が直前の座席と隣接していない時点で区間はリセットされる
func firstAdjoiningRun(available []int, length int) ([]int, bool) {
	start := 0
	for i := range available {
		if i > 0 && !seat.NewSeat(available[i]).IsAdjoining(seat.NewSeat(available[i-1])) {
			start = i
		}
		if i-start+1 == length {
			return available[start : i+1], true
		}
	}
	return nil, false
}
