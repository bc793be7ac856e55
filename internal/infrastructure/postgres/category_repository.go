package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-venue-booking/internal/domain/category"
	"github.com/sanosuguru/go-venue-booking/internal/domain/transaction"
)

type CategoryRepository struct{ db *sqlx.DB }

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Prices(ctx context.Context) ([]float64, error) {
	prices := []float64{}
	query := `SELECT price FROM categories ORDER BY id`
	if err := r.db.SelectContext(ctx, &prices, query); err != nil {
		return nil, fmt.Errorf("価格リスト取得に失敗: %w", err)
	}
	return prices, nil
}

func (r *CategoryRepository) PricesForBooking(ctx context.Context, tx transaction.Tx) ([]float64, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, ErrInvalidTx
	}
	prices := []float64{}
	query := `SELECT price FROM categories ORDER BY id`
	if err := sqlxTx.SelectContext(ctx, &prices, query); err != nil {
		return nil, fmt.Errorf("価格リスト取得に失敗: %w", err)
	}
	return prices, nil
}

var _ category.Repository = (*CategoryRepository)(nil)
