package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sc941432/Atlan/internal/domain/event"
	"github.com/sc941432/Atlan/internal/domain/transaction"
)

// eventRow はDBの行を表す構造体
type eventRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Venue       string    `db:"venue"`
	StartTime   time.Time `db:"start_time"`
	EndTime     time.Time `db:"end_time"`
	Capacity    int       `db:"capacity"`
	BookedCount int       `db:"booked_count"`
	Status      string    `db:"status"`
	CreatedBy   *int64    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// toEntity はeventRowをEventエンティティに変換する
func (r *eventRow) toEntity() *event.Event {
	return &event.Event{
		ID:          r.ID,
		Name:        r.Name,
		Venue:       r.Venue,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Capacity:    r.Capacity,
		BookedCount: r.BookedCount,
		Status:      event.Status(r.Status),
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const eventColumns = `id, name, venue, start_time, end_time, capacity, booked_count, status, created_by, created_at, updated_at`

// EventRepository はイベントリポジトリのPostgreSQL実装
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository はEventRepositoryを作成する
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create は新しいイベントを作成する
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO events (name, venue, start_time, end_time, capacity, booked_count, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		e.Name, e.Venue, e.StartTime, e.EndTime, e.Capacity, e.BookedCount, string(e.Status), e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はIDからイベントを取得する
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	var row eventRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// GetByIDForUpdate はイベント行を排他ロックして取得する
// このロックが同一イベントに対する割当・キャンセル・昇格・収容数変更を直列化する
func (r *EventRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*event.Event, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが不正です")
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`

	var row eventRow
	err := sqlxTx.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベントロック取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

// List はイベント一覧をページングで取得し、総件数も返す
func (r *EventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM events`); err != nil {
		return nil, 0, fmt.Errorf("イベント件数取得に失敗しました: %w", err)
	}

	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_time ASC LIMIT $1 OFFSET $2`

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("イベント一覧取得に失敗しました: %w", err)
	}

	events := make([]*event.Event, len(rows))
	for i, row := range rows {
		events[i] = row.toEntity()
	}
	return events, total, nil
}

// ListAll は全イベントを開始時刻昇順で取得する
func (r *EventRepository) ListAll(ctx context.Context) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_time ASC`

	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("イベント一覧取得に失敗しました: %w", err)
	}

	events := make([]*event.Event, len(rows))
	for i, row := range rows {
		events[i] = row.toEntity()
	}
	return events, nil
}

// Update はイベントを更新する
func (r *EventRepository) Update(ctx context.Context, tx transaction.Tx, e *event.Event) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}

	query := `
		UPDATE events
		SET name = $1, venue = $2, start_time = $3, end_time = $4,
		    capacity = $5, status = $6, updated_at = NOW()
		WHERE id = $7
	`
	result, err := sqlxTx.ExecContext(ctx, query,
		e.Name, e.Venue, e.StartTime, e.EndTime, e.Capacity, string(e.Status), e.ID,
	)
	if err != nil {
		return fmt.Errorf("イベント更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return event.ErrEventNotFound
	}
	return nil
}

// AddBookedCount は booked_count に delta を加算する（下限0）
func (r *EventRepository) AddBookedCount(ctx context.Context, tx transaction.Tx, id int64, delta int) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}

	query := `UPDATE events SET booked_count = GREATEST(booked_count + $1, 0), updated_at = NOW() WHERE id = $2`
	result, err := sqlxTx.ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("予約数更新に失敗しました: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return event.ErrEventNotFound
	}
	return nil
}

// Delete はイベントを削除する
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("イベント削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return event.ErrEventNotFound
	}
	return nil
}

// インターフェースを満たしているか確認
var _ event.Repository = (*EventRepository)(nil)
