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

// WaitlistPromoter はウェイトリスト予約を空き状況に応じて昇格させる
//
// 座席ありイベント: 最古のウェイトリストから厳密なFIFOで1件ずつ昇格する。
// 先頭の予約が満たせない場合はそこで停止し、後続の小さい予約を先に
// 昇格させることはない。
//
// 収容数のみのイベント: 空き数を一度計算し、古い順に収まるものを詰め込む。
// 収まらない予約はスキップされるが後続を妨げない（ベストエフォート詰め込み）。
// この両モードの非対称は意図した挙動で、テストでも明示している。
type WaitlistPromoter struct {
	txManager   transaction.Manager
	bookingRepo booking.Repository
	eventRepo   event.Repository
	seatRepo    seat.Repository
	cache       StatsCache
	publisher   EventPublisher
	metrics     *metrics.Metrics
}

// NewWaitlistPromoter はWaitlistPromoterを作成する
func NewWaitlistPromoter(
	txManager transaction.Manager,
	bookingRepo booking.Repository,
	eventRepo event.Repository,
	seatRepo seat.Repository,
	cache StatsCache,
	publisher EventPublisher,
	m *metrics.Metrics,
) *WaitlistPromoter {
	return &WaitlistPromoter{
		txManager:   txManager,
		bookingRepo: bookingRepo,
		eventRepo:   eventRepo,
		seatRepo:    seatRepo,
		cache:       cache,
		publisher:   publisher,
		metrics:     m,
	}
}

// TryPromote は昇格できるウェイトリスト予約をすべて昇格させ、件数を返す
// 冪等で、空きが増えた可能性のある操作の後ならいつ呼んでも安全。
// 昇格1件ごとに独立してコミットするため、途中で中断しても進捗は失われない
func (p *WaitlistPromoter) TryPromote(ctx context.Context, eventID int64) (int, error) {
	promoted := 0
	for {
		n, done, err := p.promotePass(ctx, eventID)
		promoted += n
		if err != nil {
			if promoted > 0 {
				invalidateStats(ctx, p.cache)
			}
			return promoted, err
		}
		if done {
			break
		}
	}
	if promoted > 0 {
		invalidateStats(ctx, p.cache)
	}
	return promoted, nil
}

// promotePass はイベント行をロックし直して1回分の昇格を行う
// 座席ありイベントは1件だけ昇格して done=false を返す（呼び出し側がループ）。
// 収容数のみのイベントは1トランザクションで全件を処理し done=true を返す
func (p *WaitlistPromoter) promotePass(ctx context.Context, eventID int64) (int, bool, error) {
	tx, err := p.txManager.Begin(ctx)
	if err != nil {
		return 0, true, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	ev, err := p.eventRepo.GetByIDForUpdate(ctx, tx, eventID)
	if err != nil {
		return 0, true, err
	}
	// 非アクティブなイベントでは昇格しない
	if !ev.IsActive() {
		return 0, true, nil
	}

	hasSeats, err := p.seatRepo.HasSeats(ctx, tx, eventID)
	if err != nil {
		return 0, true, err
	}

	if hasSeats {
		return p.promoteOneSeatMapped(ctx, tx, ev)
	}
	return p.promoteCapacityOnly(ctx, tx, ev)
}

// promoteOneSeatMapped は最古のウェイトリスト予約を1件だけ昇格する
func (p *WaitlistPromoter) promoteOneSeatMapped(ctx context.Context, tx transaction.Tx, ev *event.Event) (int, bool, error) {
	oldest, err := p.bookingRepo.OldestWaitlisted(ctx, tx, ev.ID)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			return 0, true, nil
		}
		return 0, true, err
	}

	seats, err := p.seatRepo.LockAvailable(ctx, tx, ev.ID, oldest.Qty)
	if err != nil {
		return 0, true, err
	}
	if len(seats) < oldest.Qty {
		// 先頭が満たせなければ後続も昇格させない（厳密FIFO）
		return 0, true, nil
	}

	seatIDs := make([]int64, len(seats))
	for i, s := range seats {
		seatIDs[i] = s.ID
	}
	if err := p.seatRepo.Assign(ctx, tx, seatIDs, oldest.ID); err != nil {
		return 0, true, err
	}
	if err := p.bookingRepo.UpdateStatus(ctx, tx, oldest.ID, booking.StatusConfirmed); err != nil {
		return 0, true, err
	}
	if err := p.eventRepo.AddBookedCount(ctx, tx, ev.ID, oldest.Qty); err != nil {
		return 0, true, err
	}
	if err := tx.Commit(); err != nil {
		return 0, true, fmt.Errorf("コミットに失敗: %w", err)
	}

	p.afterPromotion(ctx, oldest, "seatmap")
	return 1, false, nil
}

// promoteCapacityOnly は空き数に収まるウェイトリスト予約をまとめて昇格する
func (p *WaitlistPromoter) promoteCapacityOnly(ctx context.Context, tx transaction.Tx, ev *event.Event) (int, bool, error) {
	free := ev.Capacity - ev.BookedCount
	if free <= 0 {
		return 0, true, nil
	}

	waiters, err := p.bookingRepo.ListWaitlisted(ctx, tx, ev.ID)
	if err != nil {
		return 0, true, err
	}

	promoted := make([]*booking.Booking, 0, len(waiters))
	for _, w := range waiters {
		if w.Qty > free {
			// 収まらない予約は飛ばすだけで、後続の検討は続ける
			continue
		}
		if err := p.bookingRepo.UpdateStatus(ctx, tx, w.ID, booking.StatusConfirmed); err != nil {
			return 0, true, err
		}
		if err := p.eventRepo.AddBookedCount(ctx, tx, ev.ID, w.Qty); err != nil {
			return 0, true, err
		}
		free -= w.Qty
		promoted = append(promoted, w)
	}

	if len(promoted) == 0 {
		return 0, true, nil
	}
	if err := tx.Commit(); err != nil {
		return 0, true, fmt.Errorf("コミットに失敗: %w", err)
	}

	for _, w := range promoted {
		p.afterPromotion(ctx, w, "capacity")
	}
	return len(promoted), true, nil
}

func (p *WaitlistPromoter) afterPromotion(ctx context.Context, b *booking.Booking, mode string) {
	logger.Info("ウェイトリスト予約を昇格しました",
		zap.Int64("booking_id", b.ID),
		zap.Int64("event_id", b.EventID),
		zap.String("mode", mode))
	if p.metrics != nil {
		p.metrics.WaitlistPromotionsTotal.WithLabelValues(mode).Inc()
	}
	publishEvent(ctx, p.publisher, RouteWaitlistPromoted, BookingEvent{
		BookingID: b.ID,
		UserID:    b.UserID,
		EventID:   b.EventID,
		Qty:       b.Qty,
		Status:    string(booking.StatusConfirmed),
		At:        time.Now().UTC(),
	})
}
