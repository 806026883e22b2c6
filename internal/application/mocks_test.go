package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sc941432/Atlan/internal/domain/booking"
	"github.com/sc941432/Atlan/internal/domain/event"
	"github.com/sc941432/Atlan/internal/domain/seat"
	"github.com/sc941432/Atlan/internal/domain/transaction"
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

// newTxPair はコミット・ロールバックを許可したトランザクションのモックを返す
func newTxPair() (*MockTxManager, *MockTx) {
	tx := new(MockTx)
	tx.On("Commit").Return(nil).Maybe()
	tx.On("Rollback").Return(nil).Maybe()
	txManager := new(MockTxManager)
	txManager.On("Begin", mock.Anything).Return(tx, nil).Maybe()
	return txManager, tx
}

// MockEventRepository implements event.Repository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, e *event.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id int64) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*event.Event, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*event.Event), args.Int(1), args.Error(2)
}

func (m *MockEventRepository) ListAll(ctx context.Context) ([]*event.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockEventRepository) Update(ctx context.Context, tx transaction.Tx, e *event.Event) error {
	args := m.Called(ctx, tx, e)
	return args.Error(0)
}

func (m *MockEventRepository) AddBookedCount(ctx context.Context, tx transaction.Tx, id int64, delta int) error {
	args := m.Called(ctx, tx, id, delta)
	return args.Error(0)
}

func (m *MockEventRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSeatRepository implements seat.Repository
type MockSeatRepository struct {
	mock.Mock
}

func (m *MockSeatRepository) CreateBulk(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	args := m.Called(ctx, tx, seats)
	return args.Error(0)
}

func (m *MockSeatRepository) ListByEvent(ctx context.Context, eventID int64) ([]*seat.Seat, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) HasSeats(ctx context.Context, tx transaction.Tx, eventID int64) (bool, error) {
	args := m.Called(ctx, tx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeatRepository) CountByEvent(ctx context.Context, tx transaction.Tx, eventID int64) (int, error) {
	args := m.Called(ctx, tx, eventID)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatRepository) LockAvailable(ctx context.Context, tx transaction.Tx, eventID int64, limit int) ([]*seat.Seat, error) {
	args := m.Called(ctx, tx, eventID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) LockByIDs(ctx context.Context, tx transaction.Tx, eventID int64, seatIDs []int64) ([]*seat.Seat, error) {
	args := m.Called(ctx, tx, eventID, seatIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatRepository) Assign(ctx context.Context, tx transaction.Tx, seatIDs []int64, bookingID int64) error {
	args := m.Called(ctx, tx, seatIDs, bookingID)
	return args.Error(0)
}

func (m *MockSeatRepository) ReleaseByBooking(ctx context.Context, tx transaction.Tx, bookingID int64) error {
	args := m.Called(ctx, tx, bookingID)
	return args.Error(0)
}

func (m *MockSeatRepository) LabelsForBooking(ctx context.Context, bookingID int64) ([]string, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSeatRepository) UnreservedTailIDs(ctx context.Context, tx transaction.Tx, eventID int64, limit int) ([]int64, error) {
	args := m.Called(ctx, tx, eventID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockSeatRepository) DeleteByIDs(ctx context.Context, tx transaction.Tx, seatIDs []int64) error {
	args := m.Called(ctx, tx, seatIDs)
	return args.Error(0)
}

// MockBookingRepository implements booking.Repository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*booking.Booking, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByIdempotencyKey(ctx context.Context, userID, eventID int64, key string) (*booking.Booking, error) {
	args := m.Called(ctx, userID, eventID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, id int64, status booking.Status) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockBookingRepository) OldestWaitlisted(ctx context.Context, tx transaction.Tx, eventID int64) (*booking.Booking, error) {
	args := m.Called(ctx, tx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListWaitlisted(ctx context.Context, tx transaction.Tx, eventID int64) ([]*booking.Booking, error) {
	args := m.Called(ctx, tx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) ExistsForEvent(ctx context.Context, eventID int64) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) CountWaitlistedByEvents(ctx context.Context, eventIDs []int64) (map[int64]int, error) {
	args := m.Called(ctx, eventIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int), args.Error(1)
}

func (m *MockBookingRepository) DailyCounts(ctx context.Context, status booking.Status, since time.Time) ([]booking.DayCount, error) {
	args := m.Called(ctx, status, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.DayCount), args.Error(1)
}

// MockStatsCache implements StatsCache
type MockStatsCache struct {
	mock.Mock
}

func (m *MockStatsCache) GetSummary(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStatsCache) SetSummary(ctx context.Context, data []byte, ttl time.Duration) error {
	args := m.Called(ctx, data, ttl)
	return args.Error(0)
}

func (m *MockStatsCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPublisher implements EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

var _ transaction.Manager = (*MockTxManager)(nil)
var _ event.Repository = (*MockEventRepository)(nil)
var _ seat.Repository = (*MockSeatRepository)(nil)
var _ booking.Repository = (*MockBookingRepository)(nil)
