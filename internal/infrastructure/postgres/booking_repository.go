package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sc941432/Atlan/internal/domain/booking"
	"github.com/sc941432/Atlan/internal/domain/transaction"
)

// bookingRow はDBの行を表す構造体
type bookingRow struct {
	ID             int64     `db:"id"`
	UserID         int64     `db:"user_id"`
	EventID        int64     `db:"event_id"`
	Qty            int       `db:"qty"`
	Status         string    `db:"status"`
	IdempotencyKey *string   `db:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID:             r.ID,
		UserID:         r.UserID,
		EventID:        r.EventID,
		Qty:            r.Qty,
		Status:         booking.Status(r.Status),
		IdempotencyKey: r.IdempotencyKey,
		CreatedAt:      r.CreatedAt,
	}
}

const bookingColumns = `id, user_id, event_id, qty, status, idempotency_key, created_at`

// BookingRepository は予約リポジトリのPostgreSQL実装
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository はBookingRepositoryを作成する
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create はトランザクション内で予約を作成する
// (user_id, event_id, idempotency_key) の部分一意制約違反は
// ErrDuplicateIdempotencyKey に変換する
func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}

	query := `
		INSERT INTO bookings (user_id, event_id, qty, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := sqlxTx.QueryRowContext(ctx, query,
		b.UserID, b.EventID, b.Qty, string(b.Status), b.IdempotencyKey, b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return booking.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("予約作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はIDから予約を取得する
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var row bookingRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// GetByIDForUpdate はIDから予約をロックして取得する
// キャンセルと昇格の競合を避けるため、状態遷移前の再読で使用する
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*booking.Booking, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが不正です")
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	var row bookingRow
	err := sqlxTx.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// GetByIdempotencyKey は (ユーザー, イベント, キー) の組で予約を検索する
func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, userID, eventID int64, key string) (*booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE user_id = $1 AND event_id = $2 AND idempotency_key = $3
	`

	var row bookingRow
	err := r.db.GetContext(ctx, &row, query, userID, eventID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// ListByUser はユーザーの予約を新しい順にページングで取得する
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*booking.Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗しました: %w", err)
	}

	bookings := make([]*booking.Booking, len(rows))
	for i, row := range rows {
		bookings[i] = row.toEntity()
	}
	return bookings, nil
}

// UpdateStatus は予約ステータスを更新する
func (r *BookingRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, id int64, status booking.Status) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}

	result, err := sqlxTx.ExecContext(ctx,
		`UPDATE bookings SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("予約ステータス更新に失敗しました: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// OldestWaitlisted はイベントの最古のウェイトリスト予約をロックして取得する
// 作成時刻昇順、同時刻はID昇順で先頭を選ぶ
func (r *BookingRepository) OldestWaitlisted(ctx context.Context, tx transaction.Tx, eventID int64) (*booking.Booking, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが不正です")
	}

	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE event_id = $1 AND status = 'WAITLISTED'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE
	`

	var row bookingRow
	err := sqlxTx.GetContext(ctx, &row, query, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("ウェイトリスト取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// ListWaitlisted はイベントのウェイトリスト予約を古い順にロックして取得する
func (r *BookingRepository) ListWaitlisted(ctx context.Context, tx transaction.Tx, eventID int64) ([]*booking.Booking, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが不正です")
	}

	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE event_id = $1 AND status = 'WAITLISTED'
		ORDER BY created_at ASC, id ASC
		FOR UPDATE
	`

	var rows []bookingRow
	if err := sqlxTx.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, fmt.Errorf("ウェイトリスト取得に失敗しました: %w", err)
	}

	bookings := make([]*booking.Booking, len(rows))
	for i, row := range rows {
		bookings[i] = row.toEntity()
	}
	return bookings, nil
}

// ExistsForEvent はイベントに紐づく予約が存在するか確認する
func (r *BookingRepository) ExistsForEvent(ctx context.Context, eventID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE event_id = $1)`, eventID)
	if err != nil {
		return false, fmt.Errorf("予約有無の確認に失敗しました: %w", err)
	}
	return exists, nil
}

// CountWaitlistedByEvents はイベントごとのウェイトリスト件数を集計する
func (r *BookingRepository) CountWaitlistedByEvents(ctx context.Context, eventIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT event_id, COUNT(*) AS count
		FROM bookings
		WHERE event_id = ANY($1) AND status = 'WAITLISTED'
		GROUP BY event_id
	`

	var rows []struct {
		EventID int64 `db:"event_id"`
		Count   int   `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(eventIDs)); err != nil {
		return nil, fmt.Errorf("ウェイトリスト集計に失敗しました: %w", err)
	}

	for _, row := range rows {
		counts[row.EventID] = row.Count
	}
	return counts, nil
}

// DailyCounts は指定ステータスの日別件数を集計する
func (r *BookingRepository) DailyCounts(ctx context.Context, status booking.Status, since time.Time) ([]booking.DayCount, error) {
	query := `
		SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD') AS date, COUNT(*) AS count
		FROM bookings
		WHERE status = $1 AND created_at >= $2
		GROUP BY created_at::date
		ORDER BY created_at::date ASC
	`

	var rows []struct {
		Date  string `db:"date"`
		Count int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, string(status), since); err != nil {
		return nil, fmt.Errorf("日別集計に失敗しました: %w", err)
	}

	counts := make([]booking.DayCount, len(rows))
	for i, row := range rows {
		counts[i] = booking.DayCount{Date: row.Date, Count: row.Count}
	}
	return counts, nil
}

// インターフェースを満たしているか確認
var _ booking.Repository = (*BookingRepository)(nil)
