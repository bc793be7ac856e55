package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-booking/internal/domain/allocation"
	"github.com/sanosuguru/go-venue-booking/internal/domain/booking"
	"github.com/sanosuguru/go-venue-booking/internal/domain/category"
	"github.com/sanosuguru/go-venue-booking/internal/domain/seat"
	"github.com/sanosuguru/go-venue-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-venue-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-venue-booking/internal/pkg/metrics"
)

const availabilityCacheTTL = 30 * time.Second

// AvailabilityCache は空席数キャッシュのインターフェース
type AvailabilityCache interface {
	GetAvailableCount(ctx context.Context) (int, error)
	SetAvailableCount(ctx context.Context, count int, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// BookingEventPublisher は予約の作成・取消を外部に通知するインターフェース
// 通知の失敗は予約処理の結果に影響させない
type BookingEventPublisher interface {
	BookingsCreated(ctx context.Context, bookings []*booking.Booking) error
	BookingsCancelled(ctx context.Context, bookings []*booking.Booking) error
}

// BookingService は予約トランザクションを管理するサービス
// 読み取りと書き込みを1つのストアトランザクションにまとめ、割り当ての拒否や
// 障害時には書き込みを一切残さない。分離はストアのトランザクション機構に
// 委譲し、プロセス内のロックは使用しない
type BookingService struct {
	txm        transaction.Manager
	seats      seat.Repository
	categories category.Repository
	bookings   booking.Repository
	cache      AvailabilityCache     // nil可
	publisher  BookingEventPublisher // nil可
}

// NewBookingService は新しい BookingService を作成する
// cache と publisher は任意で、nil の場合は単に使用されない
func NewBookingService(
	txm transaction.Manager,
	sr seat.Repository,
	cr category.Repository,
	br booking.Repository,
	cache AvailabilityCache,
	publisher BookingEventPublisher,
) *BookingService {
	return &BookingService{
		txm:        txm,
		seats:      sr,
		categories: cr,
		bookings:   br,
		cache:      cache,
		publisher:  publisher,
	}
}

// NewSession は新しいセッションを作成する
// 元の設計ではデータアクセスオブジェクト1つが接続1本を占有していた。
// ここではセッションがその単位にあたり、stable モードで開いたトランザクションを
// 最大1つ保持する。1つのセッションを複数のゴルーチンで共有してはならない
func (s *BookingService) NewSession() *Session {
	return &Session{svc: s}
}

// Session は1人の呼び出し側が占有する予約操作の単位
type Session struct {
	svc      *BookingService
	stableTx transaction.Tx
}

// AvailableSeats は予約可能な座席番号を昇順で返す
//
// stable を指定した場合、返した座席は同一セッションでの次の予約・取消呼び出し
// （または Close）まで他のセッションから予約できないことを保証する。
// SERIALIZABLE トランザクションを開いて行ロックを保持するため、その間
// 他のセッションの座席取得を待たせる。演習用のモードであり本番の同時実行には
// 使用できない。stable でない場合は単なるスナップショットであり、返した座席が
// 直後に他のセッションに予約されることがある
func (sess *Session) AvailableSeats(ctx context.Context, stable bool) ([]int, error) {
	if !stable {
		return sess.svc.seats.AvailableNumbers(ctx)
	}

	// 既に保持している stable トランザクションは破棄して取り直す
	if err := sess.releaseStableTx(); err != nil {
		return nil, err
	}

	tx, err := sess.svc.txm.BeginSerializable(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	numbers, err := sess.svc.seats.AvailableNumbersForUpdate(ctx, tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	sess.stableTx = tx
	return numbers, nil
}

// BookByCount はカテゴリごとの必要数を指定して座席を予約する
// adjoining を指定した場合は連続した座席のみを予約する。全件成功か全件失敗かの
// いずれかで、空席不足や連続不成立の場合は何も予約せず空のリストを返す。
// 成功時は作成した予約を座席番号の昇順で返す
func (sess *Session) BookByCount(ctx context.Context, customer string, counts []int, adjoining bool) ([]*booking.Booking, error) {
	start := time.Now()
	result, err := sess.book(ctx, customer, func(available []int, prices []float64) ([]allocation.Assignment, error) {
		if len(counts) > len(prices) {
			return nil, allocation.ErrInvalidDemand
		}
		return allocation.SelectByCount(available, counts, adjoining)
	})
	observeBooking("book_by_count", start, result, err)
	return result, err
}

// BookBySeats は座席番号を明示して予約する
// seatsPerCategory[i] はカテゴリiで予約する座席番号のリスト。指定した座席が
// 1つでも予約できない場合は何も予約しない。成功時は要求と同じ順序
// （カテゴリ順、カテゴリ内は指定順）で予約を返す
func (sess *Session) BookBySeats(ctx context.Context, customer string, seatsPerCategory [][]int) ([]*booking.Booking, error) {
	start := time.Now()
	result, err := sess.book(ctx, customer, func(available []int, prices []float64) ([]allocation.Assignment, error) {
		if len(seatsPerCategory) > len(prices) {
			return nil, allocation.ErrInvalidDemand
		}
		return allocation.SelectExplicit(available, seatsPerCategory)
	})
	observeBooking("book_by_seats", start, result, err)
	return result, err
}

// book は予約の共通トランザクションフロー
// 空席読み取り→価格読み取り→割り当て→予約挿入＋座席更新→コミット を
// 1つの作業単位として実行する。割り当ての拒否はロールバックして空のリストを
// 返し、エラーにはしない
func (sess *Session) book(ctx context.Context, customer string, allocate func(available []int, prices []float64) ([]allocation.Assignment, error)) ([]*booking.Booking, error) {
	if customer == "" {
		logger.Warn("顧客名が空のため予約を拒否")
		return []*booking.Booking{}, nil
	}

	tx, err := sess.takeTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	available, err := sess.svc.seats.AvailableNumbersForUpdate(ctx, tx)
	if err != nil {
		return nil, err
	}
	prices, err := sess.svc.categories.PricesForBooking(ctx, tx)
	if err != nil {
		return nil, err
	}

	assignments, err := allocate(available, prices)
	if err != nil {
		if allocation.IsRejection(err) {
			logger.Info("予約を拒否", zap.String("customer", customer), zap.String("reason", err.Error()))
			return []*booking.Booking{}, nil
		}
		return nil, err
	}
	if len(assignments) == 0 {
		return []*booking.Booking{}, nil
	}

	created := make([]*booking.Booking, 0, len(assignments))
	seatNumbers := make([]int, 0, len(assignments))
	for _, a := range assignments {
		b := booking.New(a.Seat, customer, a.Category, prices[a.Category])
		if err := sess.svc.bookings.Create(ctx, tx, b); err != nil {
			return nil, err
		}
		created = append(created, b)
		seatNumbers = append(seatNumbers, a.Seat)
	}
	if err := sess.svc.seats.SetAvailability(ctx, tx, seatNumbers, false); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	sess.svc.afterWrite(ctx)
	if sess.svc.publisher != nil {
		if err := sess.svc.publisher.BookingsCreated(ctx, created); err != nil {
			logger.Warn("予約イベントの通知に失敗", zap.Error(err))
		}
	}
	logger.Info("予約を作成",
		zap.String("customer", customer),
		zap.Int("count", len(created)),
		zap.Ints("seats", seatNumbers),
	)
	return created, nil
}

// Bookings は指定した顧客の予約を返す
// customer が空文字列の場合は全顧客の予約を返す。結果は座席番号順
func (sess *Session) Bookings(ctx context.Context, customer string) ([]*booking.Booking, error) {
	return sess.svc.bookings.ByCustomer(ctx, customer)
}

// Cancel は指定した予約をまとめて取り消す
// 各予約について座席番号でストアの予約を引き直し、座席・顧客・カテゴリ・価格を
// 照合する。1件でも一致しない（存在しない場合を含む）場合は何も取り消さず
// false を返す。全件一致した場合のみ、予約の削除と座席の解放を1つの
// トランザクションで行い true を返す。IDポリシーの混在は契約違反であり
// エラーとして返す
func (sess *Session) Cancel(ctx context.Context, claims []*booking.Booking) (bool, error) {
	start := time.Now()
	ok, err := sess.cancel(ctx, claims)
	observeCancellation(start, ok, err)
	return ok, err
}

func (sess *Session) cancel(ctx context.Context, claims []*booking.Booking) (bool, error) {
	if len(claims) == 0 {
		return true, nil
	}

	tx, err := sess.takeTx(ctx)
	if err != nil {
		return false, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	// 第1段階: 全件をロックして照合する。書き込みはまだ行わない
	stored := make([]*booking.Booking, 0, len(claims))
	for _, claim := range claims {
		current, err := sess.svc.bookings.BySeatForUpdate(ctx, tx, claim.Seat)
		if err != nil {
			if errors.Is(err, booking.ErrBookingNotFound) {
				logger.Info("取消を拒否: 予約が存在しない", zap.Int("seat", claim.Seat))
				return false, nil
			}
			return false, err
		}
		same, err := current.Equal(claim)
		if err != nil {
			return false, fmt.Errorf("予約の照合に失敗: %w", err)
		}
		if !same || !current.SameDetails(claim) {
			logger.Info("取消を拒否: 予約内容が一致しない",
				zap.Int("seat", claim.Seat),
				zap.String("customer", claim.Customer),
			)
			return false, nil
		}
		stored = append(stored, current)
	}

	// 第2段階: 全件一致が確認できたので削除と座席解放を行う
	seatNumbers := make([]int, 0, len(stored))
	for _, b := range stored {
		if err := sess.svc.bookings.Delete(ctx, tx, b.ID); err != nil {
			return false, err
		}
		seatNumbers = append(seatNumbers, b.Seat)
	}
	if err := sess.svc.seats.SetAvailability(ctx, tx, seatNumbers, true); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("コミットに失敗: %w", err)
	}

	sess.svc.afterWrite(ctx)
	if sess.svc.publisher != nil {
		if err := sess.svc.publisher.BookingsCancelled(ctx, stored); err != nil {
			logger.Warn("取消イベントの通知に失敗", zap.Error(err))
		}
	}
	logger.Info("予約を取消", zap.Int("count", len(stored)), zap.Ints("seats", seatNumbers))
	return true, nil
}

// AvailableSeatCount は予約可能な座席数を返す。キャッシュがあれば優先する
func (sess *Session) AvailableSeatCount(ctx context.Context) (int, error) {
	svc := sess.svc
	if svc.cache != nil {
		count, err := svc.cache.GetAvailableCount(ctx)
		if err == nil {
			return count, nil
		}
	}
	count, err := svc.seats.CountAvailable(ctx)
	if err != nil {
		return 0, err
	}
	if svc.cache != nil {
		if err := svc.cache.SetAvailableCount(ctx, count, availabilityCacheTTL); err != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(err))
		}
	}
	return count, nil
}

// Close はセッションを閉じる。保持している stable トランザクションがあれば
// ロールバックして座席のロックを解放する
func (sess *Session) Close() error {
	return sess.releaseStableTx()
}

// takeTx は実行するトランザクションを決める
// stable モードで開いたトランザクションを保持していればそれを引き継ぎ、
// なければ新しく開始する。引き継いだ場合、stable の保証はこの呼び出しで終わる
func (sess *Session) takeTx(ctx context.Context) (transaction.Tx, error) {
	if sess.stableTx != nil {
		tx := sess.stableTx
		sess.stableTx = nil
		return tx, nil
	}
	return sess.svc.txm.Begin(ctx)
}

func (sess *Session) releaseStableTx() error {
	if sess.stableTx == nil {
		return nil
	}
	tx := sess.stableTx
	sess.stableTx = nil
	return tx.Rollback()
}

// afterWrite は書き込み成功後のキャッシュ無効化を行う
func (s *BookingService) afterWrite(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(err))
		}
	}
}

func observeBooking(operation string, start time.Time, result []*booking.Booking, err error) {
	m := metrics.Get()
	if m == nil {
		return
	}
	outcome := "booked"
	switch {
	case err != nil:
		outcome = "error"
	case len(result) == 0:
		outcome = "rejected"
	}
	m.BookingsTotal.WithLabelValues(outcome).Inc()
	m.BookingDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func observeCancellation(start time.Time, ok bool, err error) {
	m := metrics.Get()
	if m == nil {
		return
	}
	outcome := "cancelled"
	switch {
	case err != nil:
		outcome = "error"
	case !ok:
		outcome = "rejected"
	}
	m.CancellationsTotal.WithLabelValues(outcome).Inc()
	m.BookingDuration.WithLabelValues("cancel").Observe(time.Since(start).Seconds())
}
