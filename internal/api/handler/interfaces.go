package handler

import (
	"context"

	"github.com/sanosuguru/go-venue-booking/internal/domain/booking"
)

// BookingSessionInterface は予約セッションのインターフェース
// 各リクエストごとにセッションを開き、処理後は必ず Close する
type BookingSessionInterface interface {
	AvailableSeats(ctx context.Context, stable bool) ([]int, error)
	AvailableSeatCount(ctx context.Context) (int, error)
	BookByCount(ctx context.Context, customer string, counts []int, adjoining bool) ([]*booking.Booking, error)
	BookBySeats(ctx context.Context, customer string, seatsPerCategory [][]int) ([]*booking.Booking, error)
	Bookings(ctx context.Context, customer string) ([]*booking.Booking, error)
	Cancel(ctx context.Context, claims []*booking.Booking) (bool, error)
	Close() error
}

// SessionFactory は予約セッションを生成する
type SessionFactory func() BookingSessionInterface

// StoreAdminInterface はデータストア管理サービスのインターフェース
type StoreAdminInterface interface {
	InitDataStore(ctx context.Context, seatCount int, priceList []float64) error
	PriceList(ctx context.Context) ([]float64, error)
}
