package event

import (
	"context"

	"github.com/sc941432/Atlan/internal/domain/transaction"
)

// Repository はイベントリポジトリのインターフェース
// GetByIDForUpdate がイベント単位の直列化ポイント：カウンタや座席を
// 読み書きする操作は必ずこのロック取得から始める
type Repository interface {
	// Create は新しいイベントを作成する
	Create(ctx context.Context, event *Event) error

	// GetByID はIDからイベントを取得する
	GetByID(ctx context.Context, id int64) (*Event, error)

	// GetByIDForUpdate はイベント行を排他ロックして取得する（トランザクション必須）
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*Event, error)

	// List はイベント一覧をページングで取得し、総件数も返す
	List(ctx context.Context, limit, offset int) ([]*Event, int, error)

	// ListAll は全イベントを開始時刻昇順で取得する（集計用）
	ListAll(ctx context.Context) ([]*Event, error)

	// Update はイベントを更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, event *Event) error

	// AddBookedCount は booked_count に delta を加算する（0未満にはならない、トランザクション必須）
	AddBookedCount(ctx context.Context, tx transaction.Tx, id int64, delta int) error

	// Delete はイベントを削除する
	Delete(ctx context.Context, id int64) error
}
