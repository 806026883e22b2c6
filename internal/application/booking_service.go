package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sc941432/Atlan/internal/domain/booking"
	"github.com/sc941432/Atlan/internal/domain/event"
	"github.com/sc941432/Atlan/internal/domain/seat"
	"github.com/sc941432/Atlan/internal/domain/transaction"
	"github.com/sc941432/Atlan/internal/pkg/logger"
	"github.com/sc941432/Atlan/internal/pkg/metrics"
)

// BookingService は予約の作成・取得・キャンセルを担う
type BookingService struct {
	txManager       transaction.Manager
	bookingRepo     booking.Repository
	eventRepo       event.Repository
	seatRepo        seat.Repository
	promoter        *WaitlistPromoter
	cache           StatsCache
	publisher       EventPublisher
	metrics         *metrics.Metrics
	seedSeatsPerRow int
}

// NewBookingService はBookingServiceを作成する
// cache と publisher は任意の機能で、nil のとき無効になる
func NewBookingService(
	txManager transaction.Manager,
	bookingRepo booking.Repository,
	eventRepo event.Repository,
	seatRepo seat.Repository,
	promoter *WaitlistPromoter,
	cache StatsCache,
	publisher EventPublisher,
	m *metrics.Metrics,
	seedSeatsPerRow int,
) *BookingService {
	if seedSeatsPerRow < 1 {
		seedSeatsPerRow = 10
	}
	return &BookingService{
		txManager:       txManager,
		bookingRepo:     bookingRepo,
		eventRepo:       eventRepo,
		seatRepo:        seatRepo,
		promoter:        promoter,
		cache:           cache,
		publisher:       publisher,
		metrics:         m,
		seedSeatsPerRow: seedSeatsPerRow,
	}
}

// CreateBookingInput は予約作成の入力
type CreateBookingInput struct {
	UserID         int64
	EventID        int64
	Qty            int
	IdempotencyKey *string
	AllowWaitlist  bool
	// SeatIDs を指定すると該当座席を明示的に予約する。件数はQtyと一致が必須
	SeatIDs []int64
}

// CreateBooking は予約を作成する
//
// 同一 (ユーザー, イベント, 冪等性キー) の再送には既存予約をそのまま返す。
// イベント行の排他ロックが同一イベントに対する全操作を直列化する。
// 座席未作成かつ収容数>0のイベントは初回予約時に座席グリッドを自動生成する
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*booking.Result, error) {
	if input.Qty <= 0 {
		return nil, booking.ErrInvalidQty
	}

	// 冪等性チェック（高速パス）
	if input.IdempotencyKey != nil {
		existing, err := s.bookingRepo.GetByIdempotencyKey(ctx, input.UserID, input.EventID, *input.IdempotencyKey)
		if err == nil {
			if s.metrics != nil {
				s.metrics.IdempotentHitsTotal.WithLabelValues("fast_path").Inc()
			}
			return s.resolveResult(ctx, existing)
		}
		if !errors.Is(err, booking.ErrBookingNotFound) {
			return nil, fmt.Errorf("冪等性チェックに失敗: %w", err)
		}
	}

	result, err := s.allocate(ctx, input)
	if err != nil {
		// 挿入競合の敗者は勝者の予約行へリダイレクトする
		// 一意制約違反が勝者を決めるので、ここではエラーにしない
		if errors.Is(err, booking.ErrDuplicateIdempotencyKey) && input.IdempotencyKey != nil {
			winner, qerr := s.bookingRepo.GetByIdempotencyKey(ctx, input.UserID, input.EventID, *input.IdempotencyKey)
			if qerr != nil {
				return nil, fmt.Errorf("重複予約の再取得に失敗: %w", qerr)
			}
			if s.metrics != nil {
				s.metrics.IdempotentHitsTotal.WithLabelValues("insert_race").Inc()
			}
			return s.resolveResult(ctx, winner)
		}
		s.countOutcome(err)
		return nil, err
	}

	s.afterBooking(ctx, result.Booking)
	return result, nil
}

// allocate は1トランザクションで座席割当（または収容数カウント）を行う
func (s *BookingService) allocate(ctx context.Context, input CreateBookingInput) (*booking.Result, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	ev, err := s.eventRepo.GetByIDForUpdate(ctx, tx, input.EventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsActive() {
		return nil, event.ErrEventNotActive
	}

	hasSeats, err := s.seatRepo.HasSeats(ctx, tx, input.EventID)
	if err != nil {
		return nil, err
	}
	if !hasSeats && ev.Capacity > 0 {
		if err := s.seedGrid(ctx, tx, ev); err != nil {
			return nil, err
		}
		hasSeats = true
	}

	if hasSeats {
		return s.allocateSeats(ctx, tx, ev, input)
	}
	return s.allocateCapacity(ctx, tx, ev, input)
}

// seedGrid は収容数ぶんの座席グリッドを行優先で生成する
func (s *BookingService) seedGrid(ctx context.Context, tx transaction.Tx, ev *event.Event) error {
	seats := make([]*seat.Seat, ev.Capacity)
	for i := 0; i < ev.Capacity; i++ {
		rowLabel, colNumber, label := seat.GridPosition(i, s.seedSeatsPerRow)
		seats[i] = seat.NewSeat(ev.ID, rowLabel, colNumber, label)
	}
	if err := s.seatRepo.CreateBulk(ctx, tx, seats); err != nil {
		return err
	}
	logger.Info("座席グリッドを自動生成しました",
		zap.Int64("event_id", ev.ID),
		zap.Int("seats", ev.Capacity))
	return nil
}

// allocateSeats は座席ありイベントの割当を行う
func (s *BookingService) allocateSeats(ctx context.Context, tx transaction.Tx, ev *event.Event, input CreateBookingInput) (*booking.Result, error) {
	var seats []*seat.Seat

	if len(input.SeatIDs) > 0 {
		// 明示指定: 件数一致が必須
		if len(input.SeatIDs) != input.Qty {
			return nil, booking.ErrSeatCountMismatch
		}
		locked, err := s.seatRepo.LockByIDs(ctx, tx, input.EventID, input.SeatIDs)
		if err != nil {
			return nil, err
		}
		if len(locked) != input.Qty {
			return nil, seat.ErrSeatNotFound
		}
		var unavailable []string
		for _, se := range locked {
			if !se.IsAvailable() {
				unavailable = append(unavailable, se.Label)
			}
		}
		if len(unavailable) > 0 {
			if input.AllowWaitlist {
				return s.createWaitlisted(ctx, tx, input)
			}
			return nil, &seat.UnavailableError{Labels: unavailable}
		}
		seats = locked
	} else {
		// 自動選択: (行, 列, ラベル) 順で決定的に先頭から埋める
		locked, err := s.seatRepo.LockAvailable(ctx, tx, input.EventID, input.Qty)
		if err != nil {
			return nil, err
		}
		if len(locked) < input.Qty {
			if input.AllowWaitlist {
				return s.createWaitlisted(ctx, tx, input)
			}
			return nil, seat.ErrNotEnoughSeats
		}
		seats = locked
	}

	b := booking.New(input.UserID, input.EventID, input.Qty, booking.StatusConfirmed, input.IdempotencyKey)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
		return nil, err
	}

	seatIDs := make([]int64, len(seats))
	labels := make([]string, len(seats))
	for i, se := range seats {
		seatIDs[i] = se.ID
		labels[i] = se.Label
	}
	if err := s.seatRepo.Assign(ctx, tx, seatIDs, b.ID); err != nil {
		return nil, err
	}
	if err := s.eventRepo.AddBookedCount(ctx, tx, input.EventID, input.Qty); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return &booking.Result{Booking: b, SeatLabels: labels}, nil
}

// allocateCapacity は座席を持たないイベントの収容数カウント割当を行う
func (s *BookingService) allocateCapacity(ctx context.Context, tx transaction.Tx, ev *event.Event, input CreateBookingInput) (*booking.Result, error) {
	if ev.BookedCount+input.Qty > ev.Capacity {
		if input.AllowWaitlist {
			return s.createWaitlisted(ctx, tx, input)
		}
		return nil, event.ErrCapacityExceeded
	}

	b := booking.New(input.UserID, input.EventID, input.Qty, booking.StatusConfirmed, input.IdempotencyKey)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := s.eventRepo.AddBookedCount(ctx, tx, input.EventID, input.Qty); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return &booking.Result{Booking: b}, nil
}

// createWaitlisted はWAITLISTED予約を作成してコミットする
func (s *BookingService) createWaitlisted(ctx context.Context, tx transaction.Tx, input CreateBookingInput) (*booking.Result, error) {
	b := booking.New(input.UserID, input.EventID, input.Qty, booking.StatusWaitlisted, input.IdempotencyKey)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return &booking.Result{Booking: b}, nil
}

// CancelBooking は予約をキャンセルする
// イベント行ロックの下で予約を再読し、その時点の状態に従って処理する。
// WAITLISTEDのつもりで呼ばれても、昇格と競合して既にCONFIRMEDなら
// 座席解放・カウント減算を行う。CANCELLEDは終端なので、再キャンセルは
// カウントに一切触れず予約をそのまま返す
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID int64, isAdmin bool) (*booking.Result, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actorID && !isAdmin {
		return nil, booking.ErrForbidden
	}
	if b.IsTerminal() {
		return &booking.Result{Booking: b}, nil
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	// 昇格・同時キャンセルとの直列化点。WAITLISTEDでも必ずロックする
	if _, err := s.eventRepo.GetByIDForUpdate(ctx, tx, b.EventID); err != nil {
		return nil, err
	}
	// ロック取得後にトランザクション内で再読し、最新状態で分岐する
	b, err = s.bookingRepo.GetByIDForUpdate(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.IsTerminal() {
		return &booking.Result{Booking: b}, nil
	}

	wasConfirmed := b.Status == booking.StatusConfirmed
	if wasConfirmed {
		if err := s.seatRepo.ReleaseByBooking(ctx, tx, b.ID); err != nil {
			return nil, err
		}
		if err := s.eventRepo.AddBookedCount(ctx, tx, b.EventID, -b.Qty); err != nil {
			return nil, err
		}
	}
	if err := s.bookingRepo.UpdateStatus(ctx, tx, b.ID, booking.StatusCancelled); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	b.Status = booking.StatusCancelled

	if s.metrics != nil {
		s.metrics.CancellationsTotal.Inc()
	}
	invalidateStats(ctx, s.cache)
	publishEvent(ctx, s.publisher, RouteBookingCancelled, BookingEvent{
		BookingID: b.ID, UserID: b.UserID, EventID: b.EventID,
		Qty: b.Qty, Status: string(b.Status), At: time.Now().UTC(),
	})

	// 解放した分をウェイトリストへ再配分する
	if wasConfirmed && s.promoter != nil {
		if _, err := s.promoter.TryPromote(ctx, b.EventID); err != nil {
			logger.Warn("キャンセル後の昇格に失敗しました",
				zap.Int64("event_id", b.EventID),
				zap.Error(err))
		}
	}
	return &booking.Result{Booking: b}, nil
}

// GetBooking は予約を取得する。本人か管理者のみ参照できる
func (s *BookingService) GetBooking(ctx context.Context, bookingID, actorID int64, isAdmin bool) (*booking.Result, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actorID && !isAdmin {
		return nil, booking.ErrForbidden
	}
	return s.resolveResult(ctx, b)
}

// ListUserBookings はユーザー自身の予約一覧を返す
func (s *BookingService) ListUserBookings(ctx context.Context, userID int64, limit, offset int) ([]*booking.Result, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	bookings, err := s.bookingRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	results := make([]*booking.Result, len(bookings))
	for i, b := range bookings {
		r, err := s.resolveResult(ctx, b)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

// resolveResult はCONFIRMED予約の座席ラベルを解決してResultにまとめる
func (s *BookingService) resolveResult(ctx context.Context, b *booking.Booking) (*booking.Result, error) {
	result := &booking.Result{Booking: b}
	if b.Status == booking.StatusConfirmed {
		labels, err := s.seatRepo.LabelsForBooking(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		result.SeatLabels = labels
	}
	return result, nil
}

// afterBooking はコミット後の副作用（ログ、メトリクス、キャッシュ、発行）を行う
func (s *BookingService) afterBooking(ctx context.Context, b *booking.Booking) {
	logger.Info("予約を作成しました",
		zap.Int64("booking_id", b.ID),
		zap.Int64("event_id", b.EventID),
		zap.Int64("user_id", b.UserID),
		zap.String("status", string(b.Status)))

	route := RouteBookingConfirmed
	outcome := "confirmed"
	if b.Status == booking.StatusWaitlisted {
		route = RouteBookingWaitlisted
		outcome = "waitlisted"
	}
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(outcome).Inc()
	}
	invalidateStats(ctx, s.cache)
	publishEvent(ctx, s.publisher, route, BookingEvent{
		BookingID: b.ID, UserID: b.UserID, EventID: b.EventID,
		Qty: b.Qty, Status: string(b.Status), At: time.Now().UTC(),
	})
}

// countOutcome は失敗した予約試行をメトリクスに記録する
func (s *BookingService) countOutcome(err error) {
	if s.metrics == nil {
		return
	}
	var unavailable *seat.UnavailableError
	switch {
	case errors.Is(err, event.ErrCapacityExceeded),
		errors.Is(err, seat.ErrNotEnoughSeats),
		errors.Is(err, event.ErrEventNotActive),
		errors.As(err, &unavailable):
		s.metrics.BookingsTotal.WithLabelValues("conflict").Inc()
	default:
		s.metrics.BookingsTotal.WithLabelValues("error").Inc()
	}
}
