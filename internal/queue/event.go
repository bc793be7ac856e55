// Package queue はメッセージブローカーで交換するイベントを定義する
package queue

import "time"

// BookedSeat はイベント内の1件の予約を表す
type BookedSeat struct {
	BookingID int     `json:"booking_id"`
	Seat      int     `json:"seat"`
	Customer  string  `json:"customer"`
	Category  int     `json:"category"`
	Price     float64 `json:"price"`
}

// BookingsCreatedEvent は予約が確定したときに発行される
type BookingsCreatedEvent struct {
	Seats     []BookedSeat `json:"seats"`
	CreatedAt time.Time    `json:"created_at"`
}

// BookingsCancelledEvent は予約が取り消されたときに発行される
type BookingsCancelledEvent struct {
	Seats       []BookedSeat `json:"seats"`
	CancelledAt time.Time    `json:"cancelled_at"`
}
