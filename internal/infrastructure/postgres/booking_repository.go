package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-venue-booking/internal/domain/booking"
	"github.com/sanosuguru/go-venue-booking/internal/domain/transaction"
)

type bookingRow struct {
	ID       int     `db:"id"`
	Seat     int     `db:"seat"`
	Customer string  `db:"customer"`
	Category int     `db:"category"`
	Price    float64 `db:"price"`
}

func (r *bookingRow) toEntity() (*booking.Booking, error) {
	return booking.NewIdentified(r.ID, r.Seat, r.Customer, r.Category, r.Price)
}

// BookingRepository は予約のpostgresリポジトリ
// このストアはすべての予約にIDを採番する。返す Booking は常にIDを持つ
type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return ErrInvalidTx
	}
	query := `INSERT INTO bookings (seat, customer, category, price) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query, b.Seat, b.Customer, b.Category, b.Price).Scan(&b.ID); err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *BookingRepository) ByCustomer(ctx context.Context, customer string) ([]*booking.Booking, error) {
	var rows []bookingRow
	var err error
	if customer == "" {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT id, seat, customer, category, price FROM bookings ORDER BY seat`)
	} else {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT id, seat, customer, category, price FROM bookings WHERE customer = $1 ORDER BY seat`, customer)
	}
	if err != nil {
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	bookings := make([]*booking.Booking, len(rows))
	for i, row := range rows {
		b, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		bookings[i] = b
	}
	return bookings, nil
}

func (r *BookingRepository) BySeatForUpdate(ctx context.Context, tx transaction.Tx, seatNumber int) (*booking.Booking, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, ErrInvalidTx
	}
	var row bookingRow
	query := `SELECT id, seat, customer, category, price FROM bookings WHERE seat = $1 FOR UPDATE`
	if err := sqlxTx.GetContext(ctx, &row, query, seatNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity()
}

func (r *BookingRepository) Delete(ctx context.Context, tx transaction.Tx, id int) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return ErrInvalidTx
	}
	result, err := sqlxTx.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("予約削除に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

var _ booking.Repository = (*BookingRepository)(nil)
