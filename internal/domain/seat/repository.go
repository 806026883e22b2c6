package seat

import (
	"context"

	"github.com/sc941432/Atlan/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
// 座席行はロック済みイベントのトランザクション内でのみロックされ、
// 単独でロックされることはない
type Repository interface {
	// CreateBulk は複数の座席を一括作成する（トランザクション必須）
	CreateBulk(ctx context.Context, tx transaction.Tx, seats []*Seat) error

	// ListByEvent はイベントの座席一覧を (row, col, label) 順で取得する
	ListByEvent(ctx context.Context, eventID int64) ([]*Seat, error)

	// HasSeats はイベントに座席行が存在するかを返す（トランザクション必須）
	HasSeats(ctx context.Context, tx transaction.Tx, eventID int64) (bool, error)

	// CountByEvent はイベントの座席数を取得する（トランザクション必須）
	CountByEvent(ctx context.Context, tx transaction.Tx, eventID int64) (int, error)

	// LockAvailable は未予約座席を (row, col, label) 順で最大 limit 件ロックして取得する
	LockAvailable(ctx context.Context, tx transaction.Tx, eventID int64, limit int) ([]*Seat, error)

	// LockByIDs は指定IDの座席をロックして取得する（イベント外のIDは無視される）
	LockByIDs(ctx context.Context, tx transaction.Tx, eventID int64, seatIDs []int64) ([]*Seat, error)

	// Assign は座席を予約済みにし、予約への参照を設定する（トランザクション必須）
	Assign(ctx context.Context, tx transaction.Tx, seatIDs []int64, bookingID int64) error

	// ReleaseByBooking は予約を参照する座席をすべて解放する（トランザクション必須）
	ReleaseByBooking(ctx context.Context, tx transaction.Tx, bookingID int64) error

	// LabelsForBooking は予約に割り当てられた座席ラベルを (row, col, label) 順で返す
	LabelsForBooking(ctx context.Context, bookingID int64) ([]string, error)

	// UnreservedTailIDs は末尾（row, col, id の降順）から未予約座席のIDを最大 limit 件返す
	UnreservedTailIDs(ctx context.Context, tx transaction.Tx, eventID int64, limit int) ([]int64, error)

	// DeleteByIDs は指定IDの座席を削除する（トランザクション必須）
	DeleteByIDs(ctx context.Context, tx transaction.Tx, seatIDs []int64) error
}
