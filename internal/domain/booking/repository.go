package booking

import (
	"context"
	"time"

	"github.com/sc941432/Atlan/internal/domain/transaction"
)

// DayCount は日別の予約件数
type DayCount struct {
	Date  string
	Count int
}

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	// (user, event, idempotency_key) の一意制約違反は ErrDuplicateIdempotencyKey を返す
	Create(ctx context.Context, tx transaction.Tx, b *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id int64) (*Booking, error)

	// GetByIDForUpdate はIDから予約をロックして取得する（トランザクション必須）
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*Booking, error)

	// GetByIdempotencyKey は (user, event, key) から予約を取得する
	GetByIdempotencyKey(ctx context.Context, userID, eventID int64, key string) (*Booking, error)

	// ListByUser はユーザーの予約一覧を作成日時の降順で取得する
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*Booking, error)

	// UpdateStatus は予約の状態を更新する（トランザクション必須）
	UpdateStatus(ctx context.Context, tx transaction.Tx, id int64, status Status) error

	// OldestWaitlisted は最古のWAITLISTED予約を取得する
	// 順序は created_at 昇順、同時刻なら id 昇順。存在しなければ ErrBookingNotFound
	OldestWaitlisted(ctx context.Context, tx transaction.Tx, eventID int64) (*Booking, error)

	// ListWaitlisted はWAITLISTED予約を到着順で取得する（トランザクション必須）
	ListWaitlisted(ctx context.Context, tx transaction.Tx, eventID int64) ([]*Booking, error)

	// ExistsForEvent はイベントに予約（状態問わず）が存在するかを返す
	ExistsForEvent(ctx context.Context, eventID int64) (bool, error)

	// CountWaitlistedByEvents はイベントごとのWAITLISTED件数を返す
	CountWaitlistedByEvents(ctx context.Context, eventIDs []int64) (map[int64]int, error)

	// DailyCounts は since 以降の指定状態の予約を日別に集計する
	DailyCounts(ctx context.Context, status Status, since time.Time) ([]DayCount, error)
}
