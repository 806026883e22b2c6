package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sc941432/Atlan/internal/domain/event"
	"github.com/sc941432/Atlan/internal/domain/seat"
	"github.com/sc941432/Atlan/internal/domain/transaction"
	"github.com/sc941432/Atlan/internal/pkg/logger"
)

// グリッド生成の上限。行は A〜Z まで
const (
	maxGridRows = 26
	maxGridCols = 200
)

// SeatService は座席の参照と管理操作を担う
type SeatService struct {
	txManager transaction.Manager
	seatRepo  seat.Repository
	eventRepo event.Repository
	cache     StatsCache
}

// NewSeatService はSeatServiceを作成する
func NewSeatService(
	txManager transaction.Manager,
	seatRepo seat.Repository,
	eventRepo event.Repository,
	cache StatsCache,
) *SeatService {
	return &SeatService{
		txManager: txManager,
		seatRepo:  seatRepo,
		eventRepo: eventRepo,
		cache:     cache,
	}
}

// ListByEvent はイベントの座席一覧を返す
func (s *SeatService) ListByEvent(ctx context.Context, eventID int64) ([]*seat.Seat, error) {
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.seatRepo.ListByEvent(ctx, eventID)
}

// GenerateGrid は rows×cols の座席グリッドを明示的に生成する
// 既に座席が存在するイベントには生成できない。
// 生成後はイベントの収容数を座席数に合わせて更新する
func (s *SeatService) GenerateGrid(ctx context.Context, eventID int64, rows, cols int) ([]*seat.Seat, error) {
	if rows < 1 || rows > maxGridRows || cols < 1 || cols > maxGridCols {
		return nil, seat.ErrInvalidGrid
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	ev, err := s.eventRepo.GetByIDForUpdate(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}

	hasSeats, err := s.seatRepo.HasSeats(ctx, tx, eventID)
	if err != nil {
		return nil, err
	}
	if hasSeats {
		return nil, seat.ErrSeatsExist
	}

	seats := make([]*seat.Seat, 0, rows*cols)
	for r := 0; r < rows; r++ {
		rowLabel := seat.RowLetters(r)
		for c := 1; c <= cols; c++ {
			label := fmt.Sprintf("%s-%d", rowLabel, c)
			seats = append(seats, seat.NewSeat(eventID, rowLabel, c, label))
		}
	}
	if err := s.seatRepo.CreateBulk(ctx, tx, seats); err != nil {
		return nil, err
	}

	// 収容数を座席数に同期する
	ev.Capacity = rows * cols
	if err := s.eventRepo.Update(ctx, tx, ev); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	logger.Info("座席グリッドを生成しました",
		zap.Int64("event_id", eventID),
		zap.Int("rows", rows),
		zap.Int("cols", cols))
	invalidateStats(ctx, s.cache)
	return seats, nil
}

// CountAvailable はイベントの空き数を返す
// 座席ありイベントは未予約座席数、座席なしイベントは収容数の残りを数える
func (s *SeatService) CountAvailable(ctx context.Context, eventID int64) (int, error) {
	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	seats, err := s.seatRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if len(seats) == 0 {
		return ev.FreeCapacity(), nil
	}
	available := 0
	for _, se := range seats {
		if se.IsAvailable() {
			available++
		}
	}
	return available, nil
}
