package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-venue-booking/internal/application"
	"github.com/sanosuguru/go-venue-booking/internal/domain/category"
	"github.com/sanosuguru/go-venue-booking/internal/domain/seat"
)

// StoreInitializer はデータストアの初期化を行う
// 既存の予約・座席・カテゴリをすべて破棄し、指定された座席数と価格リストで
// 再構築する。完了後はすべての座席が予約可能で、予約は1件も存在しない。
// スキーマ自体はマイグレーション(migrations.go)で管理し、ここではデータのみを
// 入れ替える
type StoreInitializer struct {
	db *sqlx.DB
}

// NewStoreInitializer は新しい StoreInitializer を作成する
func NewStoreInitializer(db *sqlx.DB) *StoreInitializer {
	return &StoreInitializer{db: db}
}

// InitDataStore はデータストアを初期化する
func (s *StoreInitializer) InitDataStore(ctx context.Context, seatCount int, priceList []float64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`TRUNCATE bookings, seats, categories RESTART IDENTITY CASCADE`); err != nil {
		return fmt.Errorf("既存データの破棄に失敗: %w", err)
	}

	if err := s.insertSeats(ctx, tx, seatCount); err != nil {
		return err
	}
	if err := s.insertCategories(ctx, tx, priceList); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}

// insertSeats は座席 1..seatCount を予約可能な状態で投入する
func (s *StoreInitializer) insertSeats(ctx context.Context, tx *sqlx.Tx, seatCount int) error {
	query := `INSERT INTO seats (number, available) VALUES `
	args := make([]interface{}, 0, seatCount*2)
	placeholders := make([]string, 0, seatCount)
	for i := 1; i <= seatCount; i++ {
		st := seat.NewSeat(i)
		base := (i - 1) * 2
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d)", base+1, base+2))
		args = append(args, st.Number, st.Available)
	}
	query += strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("座席投入に失敗: %w", err)
	}
	return nil
}

// insertCategories はカテゴリ 0..len(priceList)-1 を価格リストで投入する
func (s *StoreInitializer) insertCategories(ctx context.Context, tx *sqlx.Tx, priceList []float64) error {
	if len(priceList) == 0 {
		return nil
	}
	query := `INSERT INTO categories (id, price) VALUES `
	args := make([]interface{}, 0, len(priceList)*2)
	placeholders := make([]string, 0, len(priceList))
	for i, price := range priceList {
		c := category.NewCategory(i, price)
		if err := c.Validate(); err != nil {
			return err
		}
		base := i * 2
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d)", base+1, base+2))
		args = append(args, c.ID, c.Price)
	}
	query += strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("カテゴリ投入に失敗: %w", err)
	}
	return nil
}

var _ application.StoreInitializer = (*StoreInitializer)(nil)
