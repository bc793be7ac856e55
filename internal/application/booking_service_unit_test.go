package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-venue-booking/internal/domain/booking"
	"github.com/sanosuguru/go-venue-booking/internal/domain/transaction"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

func (m *MockTxManager) BeginSerializable(ctx context.Context) (transaction.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockSeatRepository implements seat.Repository
type MockSeatRepository struct {
	mock.Mock
}

func (m *MockSeatRepository) AvailableNumbers(ctx context.Context) ([]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockSeatRepository) AvailableNumbersForUpdate(ctx context.Context, tx transaction.Tx) ([]int, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockSeatRepository) SetAvailability(ctx context.Context, tx transaction.Tx, numbers []int, available bool) error {
	args := m.Called(ctx, tx, numbers, available)
	return args.Error(0)
}

func (m *MockSeatRepository) CountAvailable(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockCategoryRepository implements category.Repository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) Prices(ctx context.Context) ([]float64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func (m *MockCategoryRepository) PricesForBooking(ctx context.Context, tx transaction.Tx) ([]float64, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

// MockBookingRepository implements booking.Repository
type MockBookingRepository struct {
	mock.Mock
	nextID int
}

func (m *MockBookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	if args.Error(0) == nil {
		m.nextID++
		b.ID = m.nextID
	}
	return args.Error(0)
}

func (m *MockBookingRepository) ByCustomer(ctx context.Context, customer string) ([]*booking.Booking, error) {
	args := m.Called(ctx, customer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) BySeatForUpdate(ctx context.Context, tx transaction.Tx, seatNumber int) (*booking.Booking, error) {
	args := m.Called(ctx, tx, seatNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, tx transaction.Tx, id int) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockAvailabilityCache implements AvailabilityCache
type MockAvailabilityCache struct {
	mock.Mock
}

func (m *MockAvailabilityCache) GetAvailableCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAvailabilityCache) SetAvailableCount(ctx context.Context, count int, ttl time.Duration) error {
	args := m.Called(ctx, count, ttl)
	return args.Error(0)
}

func (m *MockAvailabilityCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventPublisher implements BookingEventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) BookingsCreated(ctx context.Context, bookings []*booking.Booking) error {
	args := m.Called(ctx, bookings)
	return args.Error(0)
}

func (m *MockEventPublisher) BookingsCancelled(ctx context.Context, bookings []*booking.Booking) error {
	args := m.Called(ctx, bookings)
	return args.Error(0)
}

// === Test fixtures ===

type serviceMocks struct {
	txm        *MockTxManager
	tx         *MockTx
	seats      *MockSeatRepository
	categories *MockCategoryRepository
	bookings   *MockBookingRepository
}

func newServiceMocks() *serviceMocks {
	return &serviceMocks{
		txm:        new(MockTxManager),
		tx:         new(MockTx),
		seats:      new(MockSeatRepository),
		categories: new(MockCategoryRepository),
		bookings:   new(MockBookingRepository),
	}
}

func (f *serviceMocks) service() *BookingService {
	return NewBookingService(f.txm, f.seats, f.categories, f.bookings, nil, nil)
}

// === BookByCount ===

func TestSession_BookByCount(t *testing.T) {
	ctx := context.Background()

	t.Run("カテゴリ順・座席番号昇順で予約が作成される", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1, 2, 3, 4, 5}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0, 50.0, 75.0}, nil)
		f.bookings.On("Create", ctx, f.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)
		f.seats.On("SetAvailability", ctx, f.tx, []int{1, 2, 3}, false).Return(nil)
		f.tx.On("Commit").Return(nil)
		f.tx.On("Rollback").Return(nil) // defer分

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{1, 2}, false)

		require.NoError(t, err)
		require.Len(t, result, 3)
		// カテゴリ0に1席、カテゴリ1に2席、座席は前から詰める
		assert.Equal(t, 1, result[0].Seat)
		assert.Equal(t, 0, result[0].Category)
		assert.Equal(t, 100.0, result[0].Price)
		assert.Equal(t, 2, result[1].Seat)
		assert.Equal(t, 1, result[1].Category)
		assert.Equal(t, 50.0, result[1].Price)
		assert.Equal(t, 3, result[2].Seat)
		assert.Equal(t, 1, result[2].Category)
		// ストア採番のIDが設定される
		assert.True(t, result[0].Identified())
		assert.Equal(t, "yamada", result[0].Customer)

		f.tx.AssertCalled(t, "Commit")
		f.bookings.AssertNumberOfCalls(t, "Create", 3)
	})

	t.Run("空席不足なら何も予約せず空のリストを返す", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{7}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{2}, false)

		require.NoError(t, err)
		assert.Empty(t, result)

		f.bookings.AssertNotCalled(t, "Create")
		f.seats.AssertNotCalled(t, "SetAvailability")
		f.tx.AssertNotCalled(t, "Commit")
		f.tx.AssertCalled(t, "Rollback")
	})

	t.Run("連続席が成立しない場合も拒否される", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1, 3, 5}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{2}, true)

		require.NoError(t, err)
		assert.Empty(t, result)
		f.tx.AssertNotCalled(t, "Commit")
	})

	t.Run("連続席は途切れの後の並びから確保される", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{2, 4, 5}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.bookings.On("Create", ctx, f.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)
		f.seats.On("SetAvailability", ctx, f.tx, []int{4, 5}, false).Return(nil)
		f.tx.On("Commit").Return(nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{2}, true)

		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, 4, result[0].Seat)
		assert.Equal(t, 5, result[1].Seat)
	})

	t.Run("顧客名が空なら拒否しトランザクションも開かない", func(t *testing.T) {
		f := newServiceMocks()

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "", []int{1}, false)

		require.NoError(t, err)
		assert.Empty(t, result)
		f.txm.AssertNotCalled(t, "Begin")
	})

	t.Run("カテゴリ数を超える指定は拒否される", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1, 2, 3}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{1, 1}, false)

		require.NoError(t, err)
		assert.Empty(t, result)
		f.tx.AssertNotCalled(t, "Commit")
	})

	t.Run("全カテゴリ0枚の要求は何もせず空のリストを返す", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1, 2}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{0}, false)

		require.NoError(t, err)
		assert.Empty(t, result)
		f.bookings.AssertNotCalled(t, "Create")
	})

	t.Run("挿入に失敗すると全体がロールバックされエラーになる", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1, 2}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.bookings.On("Create", ctx, f.tx, mock.AnythingOfType("*booking.Booking")).
			Return(errors.New("挿入に失敗")).Once()
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{2}, false)

		require.Error(t, err)
		assert.Nil(t, result)
		f.tx.AssertNotCalled(t, "Commit")
		f.tx.AssertCalled(t, "Rollback")
	})

	t.Run("座席更新に失敗すると全体がロールバックされる", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.bookings.On("Create", ctx, f.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)
		f.seats.On("SetAvailability", ctx, f.tx, []int{1}, false).
			Return(errors.New("更新に失敗"))
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{1}, false)

		require.Error(t, err)
		assert.Nil(t, result)
		f.tx.AssertNotCalled(t, "Commit")
	})
}

// === BookBySeats ===

func TestSession_BookBySeats(t *testing.T) {
	ctx := context.Background()

	t.Run("指定順のまま予約が作成される", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1, 2, 3, 4, 5}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0, 50.0}, nil)
		f.bookings.On("Create", ctx, f.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)
		f.seats.On("SetAvailability", ctx, f.tx, []int{5, 2, 3}, false).Return(nil)
		f.tx.On("Commit").Return(nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookBySeats(ctx, "suzuki", [][]int{{5}, {2, 3}})

		require.NoError(t, err)
		require.Len(t, result, 3)
		assert.Equal(t, 5, result[0].Seat)
		assert.Equal(t, 0, result[0].Category)
		assert.Equal(t, 100.0, result[0].Price)
		assert.Equal(t, 2, result[1].Seat)
		assert.Equal(t, 1, result[1].Category)
		assert.Equal(t, 3, result[2].Seat)
	})

	t.Run("1席でも予約不可なら全体が拒否される", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{2, 3}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookBySeats(ctx, "suzuki", [][]int{{2, 4}})

		require.NoError(t, err)
		assert.Empty(t, result)
		f.bookings.AssertNotCalled(t, "Create")
		f.tx.AssertNotCalled(t, "Commit")
	})

	t.Run("同一座席の重複指定は拒否される", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1, 2}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0, 50.0}, nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.BookBySeats(ctx, "suzuki", [][]int{{1}, {1}})

		require.NoError(t, err)
		assert.Empty(t, result)
		f.tx.AssertNotCalled(t, "Commit")
	})
}

// === Cancel ===

func TestSession_Cancel(t *testing.T) {
	ctx := context.Background()

	stored := func(t *testing.T, id, seat int, customer string, category int, price float64) *booking.Booking {
		t.Helper()
		b, err := booking.NewIdentified(id, seat, customer, category, price)
		require.NoError(t, err)
		return b
	}

	t.Run("全件一致すれば削除と座席解放が行われる", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.bookings.On("BySeatForUpdate", ctx, f.tx, 1).Return(stored(t, 10, 1, "yamada", 0, 100.0), nil)
		f.bookings.On("BySeatForUpdate", ctx, f.tx, 2).Return(stored(t, 11, 2, "yamada", 1, 50.0), nil)
		f.bookings.On("Delete", ctx, f.tx, 10).Return(nil)
		f.bookings.On("Delete", ctx, f.tx, 11).Return(nil)
		f.seats.On("SetAvailability", ctx, f.tx, []int{1, 2}, true).Return(nil)
		f.tx.On("Commit").Return(nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		ok, err := session.Cancel(ctx, []*booking.Booking{
			stored(t, 10, 1, "yamada", 0, 100.0),
			stored(t, 11, 2, "yamada", 1, 50.0),
		})

		require.NoError(t, err)
		assert.True(t, ok)
		f.tx.AssertCalled(t, "Commit")
	})

	t.Run("1件でも不一致なら何も取り消さない", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.bookings.On("BySeatForUpdate", ctx, f.tx, 1).Return(stored(t, 10, 1, "yamada", 0, 100.0), nil)
		// 2席目は別人の予約
		f.bookings.On("BySeatForUpdate", ctx, f.tx, 2).Return(stored(t, 11, 2, "suzuki", 1, 50.0), nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		ok, err := session.Cancel(ctx, []*booking.Booking{
			stored(t, 10, 1, "yamada", 0, 100.0),
			stored(t, 11, 2, "yamada", 1, 50.0),
		})

		require.NoError(t, err)
		assert.False(t, ok)
		f.bookings.AssertNotCalled(t, "Delete")
		f.seats.AssertNotCalled(t, "SetAvailability")
		f.tx.AssertNotCalled(t, "Commit")
	})

	t.Run("価格が一致しない場合も拒否される", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.bookings.On("BySeatForUpdate", ctx, f.tx, 1).Return(stored(t, 10, 1, "yamada", 0, 100.0), nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		ok, err := session.Cancel(ctx, []*booking.Booking{
			stored(t, 10, 1, "yamada", 0, 999.0),
		})

		require.NoError(t, err)
		assert.False(t, ok)
		f.bookings.AssertNotCalled(t, "Delete")
	})

	t.Run("予約が存在しなければ拒否される", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.bookings.On("BySeatForUpdate", ctx, f.tx, 9).Return(nil, booking.ErrBookingNotFound)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		ok, err := session.Cancel(ctx, []*booking.Booking{
			stored(t, 10, 9, "yamada", 0, 100.0),
		})

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("IDポリシーの混在は契約違反としてエラーになる", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.bookings.On("BySeatForUpdate", ctx, f.tx, 1).Return(stored(t, 10, 1, "yamada", 0, 100.0), nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		// ストアはID採番方式なのにタプル同一性の予約で照合しようとした
		ok, err := session.Cancel(ctx, []*booking.Booking{
			booking.New(1, "yamada", 0, 100.0),
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, booking.ErrMixedIDPolicy))
		assert.False(t, ok)
		f.bookings.AssertNotCalled(t, "Delete")
	})

	t.Run("空のリストは何もせず成功する", func(t *testing.T) {
		f := newServiceMocks()

		session := f.service().NewSession()
		defer session.Close()

		ok, err := session.Cancel(ctx, nil)

		require.NoError(t, err)
		assert.True(t, ok)
		f.txm.AssertNotCalled(t, "Begin")
	})

	t.Run("削除に失敗すると全体がロールバックされる", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.bookings.On("BySeatForUpdate", ctx, f.tx, 1).Return(stored(t, 10, 1, "yamada", 0, 100.0), nil)
		f.bookings.On("Delete", ctx, f.tx, 10).Return(errors.New("削除に失敗"))
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		ok, err := session.Cancel(ctx, []*booking.Booking{
			stored(t, 10, 1, "yamada", 0, 100.0),
		})

		require.Error(t, err)
		assert.False(t, ok)
		f.tx.AssertNotCalled(t, "Commit")
	})
}

// === AvailableSeats / stable mode ===

func TestSession_AvailableSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("stableでない取得はスナップショットを返す", func(t *testing.T) {
		f := newServiceMocks()
		f.seats.On("AvailableNumbers", ctx).Return([]int{1, 3, 5}, nil)

		session := f.service().NewSession()
		defer session.Close()

		numbers, err := session.AvailableSeats(ctx, false)

		require.NoError(t, err)
		assert.Equal(t, []int{1, 3, 5}, numbers)
		f.txm.AssertNotCalled(t, "Begin")
		f.txm.AssertNotCalled(t, "BeginSerializable")
	})

	t.Run("stableな取得はSERIALIZABLEトランザクションで行ロックを保持する", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("BeginSerializable", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1, 2}, nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()

		numbers, err := session.AvailableSeats(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, numbers)

		// Close でロックが解放される
		require.NoError(t, session.Close())
		f.tx.AssertCalled(t, "Rollback")
	})

	t.Run("stableトランザクションは次の予約呼び出しに引き継がれる", func(t *testing.T) {
		f := newServiceMocks()
		f.txm.On("BeginSerializable", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1, 2}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.bookings.On("Create", ctx, f.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)
		f.seats.On("SetAvailability", ctx, f.tx, []int{1}, false).Return(nil)
		f.tx.On("Commit").Return(nil)
		f.tx.On("Rollback").Return(nil)

		session := f.service().NewSession()
		defer session.Close()

		_, err := session.AvailableSeats(ctx, true)
		require.NoError(t, err)

		result, err := session.BookByCount(ctx, "yamada", []int{1}, false)
		require.NoError(t, err)
		require.Len(t, result, 1)

		// 新しいトランザクションは開始されず、保持していたものが使われた
		f.txm.AssertNotCalled(t, "Begin")
		f.tx.AssertCalled(t, "Commit")
	})

	t.Run("stableな取得をやり直すと前のトランザクションは破棄される", func(t *testing.T) {
		f := newServiceMocks()
		tx2 := new(MockTx)
		f.txm.On("BeginSerializable", ctx).Return(f.tx, nil).Once()
		f.txm.On("BeginSerializable", ctx).Return(tx2, nil).Once()
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1, 2}, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, tx2).Return([]int{1, 2}, nil)
		f.tx.On("Rollback").Return(nil)
		tx2.On("Rollback").Return(nil)

		session := f.service().NewSession()

		_, err := session.AvailableSeats(ctx, true)
		require.NoError(t, err)
		_, err = session.AvailableSeats(ctx, true)
		require.NoError(t, err)

		f.tx.AssertCalled(t, "Rollback")

		session.Close()
		tx2.AssertCalled(t, "Rollback")
	})
}

// === AvailableSeatCount / cache ===

func TestSession_AvailableSeatCount(t *testing.T) {
	ctx := context.Background()

	t.Run("キャッシュヒット時はストアに問い合わせない", func(t *testing.T) {
		f := newServiceMocks()
		cache := new(MockAvailabilityCache)
		cache.On("GetAvailableCount", ctx).Return(7, nil)

		svc := NewBookingService(f.txm, f.seats, f.categories, f.bookings, cache, nil)
		session := svc.NewSession()
		defer session.Close()

		count, err := session.AvailableSeatCount(ctx)

		require.NoError(t, err)
		assert.Equal(t, 7, count)
		f.seats.AssertNotCalled(t, "CountAvailable")
	})

	t.Run("キャッシュミス時はストアから取得してキャッシュする", func(t *testing.T) {
		f := newServiceMocks()
		cache := new(MockAvailabilityCache)
		cache.On("GetAvailableCount", ctx).Return(0, errors.New("キャッシュミス"))
		cache.On("SetAvailableCount", ctx, 4, mock.AnythingOfType("time.Duration")).Return(nil)
		f.seats.On("CountAvailable", ctx).Return(4, nil)

		svc := NewBookingService(f.txm, f.seats, f.categories, f.bookings, cache, nil)
		session := svc.NewSession()
		defer session.Close()

		count, err := session.AvailableSeatCount(ctx)

		require.NoError(t, err)
		assert.Equal(t, 4, count)
		cache.AssertExpectations(t)
	})

	t.Run("キャッシュなしでも動作する", func(t *testing.T) {
		f := newServiceMocks()
		f.seats.On("CountAvailable", ctx).Return(2, nil)

		session := f.service().NewSession()
		defer session.Close()

		count, err := session.AvailableSeatCount(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

// === 書き込み成功後の副作用 ===

func TestBookingService_AfterWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("予約成功でキャッシュが無効化されイベントが通知される", func(t *testing.T) {
		f := newServiceMocks()
		cache := new(MockAvailabilityCache)
		publisher := new(MockEventPublisher)
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.bookings.On("Create", ctx, f.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)
		f.seats.On("SetAvailability", ctx, f.tx, []int{1}, false).Return(nil)
		f.tx.On("Commit").Return(nil)
		f.tx.On("Rollback").Return(nil)
		cache.On("Invalidate", ctx).Return(nil)
		publisher.On("BookingsCreated", ctx, mock.AnythingOfType("[]*booking.Booking")).Return(nil)

		svc := NewBookingService(f.txm, f.seats, f.categories, f.bookings, cache, publisher)
		session := svc.NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{1}, false)

		require.NoError(t, err)
		require.Len(t, result, 1)
		cache.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("通知の失敗は予約の結果に影響しない", func(t *testing.T) {
		f := newServiceMocks()
		publisher := new(MockEventPublisher)
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{1}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.bookings.On("Create", ctx, f.tx, mock.AnythingOfType("*booking.Booking")).Return(nil)
		f.seats.On("SetAvailability", ctx, f.tx, []int{1}, false).Return(nil)
		f.tx.On("Commit").Return(nil)
		f.tx.On("Rollback").Return(nil)
		publisher.On("BookingsCreated", ctx, mock.AnythingOfType("[]*booking.Booking")).
			Return(errors.New("ブローカー停止中"))

		svc := NewBookingService(f.txm, f.seats, f.categories, f.bookings, nil, publisher)
		session := svc.NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{1}, false)

		require.NoError(t, err)
		require.Len(t, result, 1)
	})

	t.Run("拒否時は無効化も通知も行われない", func(t *testing.T) {
		f := newServiceMocks()
		cache := new(MockAvailabilityCache)
		publisher := new(MockEventPublisher)
		f.txm.On("Begin", ctx).Return(f.tx, nil)
		f.seats.On("AvailableNumbersForUpdate", ctx, f.tx).Return([]int{}, nil)
		f.categories.On("PricesForBooking", ctx, f.tx).Return([]float64{100.0}, nil)
		f.tx.On("Rollback").Return(nil)

		svc := NewBookingService(f.txm, f.seats, f.categories, f.bookings, cache, publisher)
		session := svc.NewSession()
		defer session.Close()

		result, err := session.BookByCount(ctx, "yamada", []int{1}, false)

		require.NoError(t, err)
		assert.Empty(t, result)
		cache.AssertNotCalled(t, "Invalidate")
		publisher.AssertNotCalled(t, "BookingsCreated")
	})
}

// === Bookings ===

func TestSession_Bookings(t *testing.T) {
	ctx := context.Background()

	t.Run("顧客指定で予約を取得できる", func(t *testing.T) {
		f := newServiceMocks()
		b, err := booking.NewIdentified(1, 3, "yamada", 0, 100.0)
		require.NoError(t, err)
		f.bookings.On("ByCustomer", ctx, "yamada").Return([]*booking.Booking{b}, nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.Bookings(ctx, "yamada")

		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, 3, result[0].Seat)
	})

	t.Run("空文字列で全件を取得できる", func(t *testing.T) {
		f := newServiceMocks()
		f.bookings.On("ByCustomer", ctx, "").Return([]*booking.Booking{}, nil)

		session := f.service().NewSession()
		defer session.Close()

		result, err := session.Bookings(ctx, "")

		require.NoError(t, err)
		assert.Empty(t, result)
	})
}
