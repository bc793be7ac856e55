package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-venue-booking/internal/domain/seat"
	"github.com/sanosuguru/go-venue-booking/internal/domain/transaction"
)

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) AvailableNumbers(ctx context.Context) ([]int, error) {
	numbers := []int{}
	query := `SELECT number FROM seats WHERE available = TRUE ORDER BY number`
	if err := r.db.SelectContext(ctx, &numbers, query); err != nil {
		return nil, fmt.Errorf("空席取得に失敗: %w", err)
	}
	return numbers, nil
}

func (r *SeatRepository) AvailableNumbersForUpdate(ctx context.Context, tx transaction.Tx) ([]int, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, ErrInvalidTx
	}
	numbers := []int{}
	query := `SELECT number FROM seats WHERE available = TRUE ORDER BY number FOR UPDATE`
	if err := sqlxTx.SelectContext(ctx, &numbers, query); err != nil {
		return nil, fmt.Errorf("空席取得に失敗: %w", err)
	}
	return numbers, nil
}

// SetAvailability は対象座席の予約可否をまとめて更新する
// 対象行が他のトランザクションに先に更新されていた場合は全件更新できず、
// ErrSeatStateChanged を返す
func (r *SeatRepository) SetAvailability(ctx context.Context, tx transaction.Tx, numbers []int, available bool) error {
	if len(numbers) == 0 {
		return nil
	}
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return ErrInvalidTx
	}
	query := `UPDATE seats SET available = $1 WHERE number = ANY($2) AND available = $3`
	result, err := sqlxTx.ExecContext(ctx, query, available, pq.Array(numbers), !available)
	if err != nil {
		return fmt.Errorf("座席更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if int(rows) != len(numbers) {
		return seat.ErrSeatStateChanged
	}
	return nil
}

func (r *SeatRepository) CountAvailable(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM seats WHERE available = TRUE`)
	if err != nil {
		return 0, fmt.Errorf("空席数取得に失敗: %w", err)
	}
	return count, nil
}

var _ seat.Repository = (*SeatRepository)(nil)
