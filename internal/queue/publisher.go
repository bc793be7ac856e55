package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sanosuguru/go-venue-booking/internal/domain/booking"
)

const (
	queueBookingsCreated   = "bookings.created"
	queueBookingsCancelled = "bookings.cancelled"
)

// Publisher は予約イベントをRabbitMQに発行する
// 発行の失敗は呼び出し側でログに留め、予約処理自体は失敗させない想定
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewPublisher はRabbitMQに接続し、使用するキューを宣言する
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ接続に失敗: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("チャネル作成に失敗: %w", err)
	}
	for _, name := range []string{queueBookingsCreated, queueBookingsCancelled} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("キュー宣言に失敗: %w", err)
		}
	}
	return &Publisher{conn: conn, channel: ch}, nil
}

// BookingsCreated は予約作成イベントを発行する
func (p *Publisher) BookingsCreated(ctx context.Context, bookings []*booking.Booking) error {
	event := BookingsCreatedEvent{Seats: toBookedSeats(bookings), CreatedAt: time.Now().UTC()}
	return p.publish(ctx, queueBookingsCreated, event)
}

// BookingsCancelled は予約取消イベントを発行する
func (p *Publisher) BookingsCancelled(ctx context.Context, bookings []*booking.Booking) error {
	event := BookingsCancelledEvent{Seats: toBookedSeats(bookings), CancelledAt: time.Now().UTC()}
	return p.publish(ctx, queueBookingsCancelled, event)
}

// Close は接続を閉じる
func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

func (p *Publisher) publish(ctx context.Context, queueName string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("イベントのエンコードに失敗: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.channel.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		return fmt.Errorf("イベント発行に失敗: %w", err)
	}
	return nil
}

func toBookedSeats(bookings []*booking.Booking) []BookedSeat {
	seats := make([]BookedSeat, len(bookings))
	for i, b := range bookings {
		seats[i] = BookedSeat{
			BookingID: b.ID,
			Seat:      b.Seat,
			Customer:  b.Customer,
			Category:  b.Category,
			Price:     b.Price,
		}
	}
	return seats
}
