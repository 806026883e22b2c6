package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sc941432/Atlan/internal/domain/booking"
	"github.com/sc941432/Atlan/internal/domain/event"
	"github.com/sc941432/Atlan/internal/domain/seat"
	"github.com/sc941432/Atlan/internal/domain/transaction"
	"github.com/sc941432/Atlan/internal/pkg/logger"
)

// EventService はイベントの管理操作を担う
type EventService struct {
	txManager   transaction.Manager
	eventRepo   event.Repository
	seatRepo    seat.Repository
	bookingRepo booking.Repository
	promoter    *WaitlistPromoter
	cache       StatsCache
}

// NewEventService はEventServiceを作成する
func NewEventService(
	txManager transaction.Manager,
	eventRepo event.Repository,
	seatRepo seat.Repository,
	bookingRepo booking.Repository,
	promoter *WaitlistPromoter,
	cache StatsCache,
) *EventService {
	return &EventService{
		txManager:   txManager,
		eventRepo:   eventRepo,
		seatRepo:    seatRepo,
		bookingRepo: bookingRepo,
		promoter:    promoter,
		cache:       cache,
	}
}

// CreateEventInput はイベント作成の入力
type CreateEventInput struct {
	Name      string
	Venue     string
	StartTime time.Time
	EndTime   time.Time
	Capacity  int
	CreatedBy int64
}

// CreateEvent は新しいイベントを作成する
// 座席はこの時点では作らない。初回予約時の自動生成か、
// 明示的なグリッド生成で作られる
func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	ev := event.NewEvent(input.Name, input.Venue, input.StartTime, input.EndTime, input.Capacity, input.CreatedBy)
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	if err := s.eventRepo.Create(ctx, ev); err != nil {
		return nil, err
	}
	logger.Info("イベントを作成しました",
		zap.Int64("event_id", ev.ID),
		zap.String("name", ev.Name))
	invalidateStats(ctx, s.cache)
	return ev, nil
}

// GetEvent はイベントを取得する
func (s *EventService) GetEvent(ctx context.Context, id int64) (*event.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

// ListEvents はイベント一覧と総件数を返す
func (s *EventService) ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.eventRepo.List(ctx, limit, offset)
}

// UpdateEventInput はイベント更新の入力。nil のフィールドは変更しない
type UpdateEventInput struct {
	Name      *string
	Venue     *string
	StartTime *time.Time
	EndTime   *time.Time
	Capacity  *int
	Status    *string
}

// UpdateEvent はイベントを更新する
//
// 収容数の変更は同一トランザクション内で座席数の照合（増設・縮小）を行い、
// コミット後にウェイトリスト昇格を起動する。縮小は未予約の末尾座席が
// 足りなければ全体を失敗させ、座席は1つも削除しない
func (s *EventService) UpdateEvent(ctx context.Context, id int64, input UpdateEventInput) (*event.Event, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	ev, err := s.eventRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		ev.Name = *input.Name
	}
	if input.Venue != nil {
		ev.Venue = *input.Venue
	}
	if input.StartTime != nil {
		ev.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		ev.EndTime = *input.EndTime
	}
	if input.Status != nil {
		ev.Status = event.Status(*input.Status)
	}

	capacityChanged := false
	if input.Capacity != nil && *input.Capacity != ev.Capacity {
		if *input.Capacity < ev.BookedCount {
			return nil, event.ErrCapacityBelowBooked
		}
		ev.Capacity = *input.Capacity
		capacityChanged = true
	}

	if err := ev.Validate(); err != nil {
		return nil, err
	}

	if capacityChanged {
		if err := s.syncSeatsToCapacity(ctx, tx, ev); err != nil {
			return nil, err
		}
	}
	if err := s.eventRepo.Update(ctx, tx, ev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	if capacityChanged {
		// 増枠で空きが生まれた可能性があるため昇格を試みる
		if s.promoter != nil {
			if _, err := s.promoter.TryPromote(ctx, id); err != nil {
				logger.Warn("収容数変更後の昇格に失敗しました",
					zap.Int64("event_id", id),
					zap.Error(err))
			}
		}
	}
	invalidateStats(ctx, s.cache)
	return ev, nil
}

// syncSeatsToCapacity は座席数を収容数に合わせる
// 不足分は既存の採番を引き継いで末尾に増設し、超過分は未予約の
// 末尾座席から削除する。削除候補が足りなければ何も消さずに失敗する
func (s *EventService) syncSeatsToCapacity(ctx context.Context, tx transaction.Tx, ev *event.Event) error {
	count, err := s.seatRepo.CountByEvent(ctx, tx, ev.ID)
	if err != nil {
		return err
	}

	switch {
	case count == ev.Capacity:
		return nil

	case count < ev.Capacity:
		seats := make([]*seat.Seat, 0, ev.Capacity-count)
		for idx := count + 1; idx <= ev.Capacity; idx++ {
			rowLabel, colNumber, label := seat.ReconcilePosition(idx)
			seats = append(seats, seat.NewSeat(ev.ID, rowLabel, colNumber, label))
		}
		return s.seatRepo.CreateBulk(ctx, tx, seats)

	default:
		need := count - ev.Capacity
		ids, err := s.seatRepo.UnreservedTailIDs(ctx, tx, ev.ID, need)
		if err != nil {
			return err
		}
		if len(ids) < need {
			return seat.ErrShrinkBlocked
		}
		return s.seatRepo.DeleteByIDs(ctx, tx, ids)
	}
}

// DeactivateEvent はイベントを予約停止状態にする
func (s *EventService) DeactivateEvent(ctx context.Context, id int64) (*event.Event, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	ev, err := s.eventRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	ev.Status = event.StatusInactive
	if err := s.eventRepo.Update(ctx, tx, ev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	invalidateStats(ctx, s.cache)
	return ev, nil
}

// DeleteEvent はイベントを削除する。予約が1件でも存在すれば拒否する
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	exists, err := s.bookingRepo.ExistsForEvent(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return event.ErrEventHasBookings
	}
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return err
	}
	invalidateStats(ctx, s.cache)
	return nil
}
