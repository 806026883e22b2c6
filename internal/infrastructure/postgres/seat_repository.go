package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sc941432/Atlan/internal/domain/seat"
	"github.com/sc941432/Atlan/internal/domain/transaction"
)

type seatRow struct {
	ID                int64  `db:"id"`
	EventID           int64  `db:"event_id"`
	Label             string `db:"label"`
	RowLabel          string `db:"row_label"`
	ColNumber         int    `db:"col_number"`
	Reserved          bool   `db:"reserved"`
	ReservedBookingID *int64 `db:"reserved_booking_id"`
}

func (r *seatRow) toEntity() *seat.Seat {
	return &seat.Seat{
		ID: r.ID, EventID: r.EventID, Label: r.Label,
		RowLabel: r.RowLabel, ColNumber: r.ColNumber,
		Reserved: r.Reserved, ReservedBookingID: r.ReservedBookingID,
	}
}

const seatColumns = `id, event_id, label, row_label, col_number, reserved, reserved_booking_id`

// SeatRepository は座席リポジトリのPostgreSQL実装
type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) CreateBulk(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}
	if len(seats) == 0 {
		return nil
	}

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 1000
	for i := 0; i < len(seats); i += batchSize {
		end := i + batchSize
		if end > len(seats) {
			end = len(seats)
		}
		if err := r.createBulkBatch(ctx, sqlxTx, seats[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// createBulkBatch はバッチ単位でマルチバリューINSERTを実行
func (r *SeatRepository) createBulkBatch(ctx context.Context, tx *sqlx.Tx, seats []*seat.Seat) error {
	query := `INSERT INTO seats (event_id, label, row_label, col_number, reserved) VALUES `
	args := make([]interface{}, 0, len(seats)*5)
	placeholders := make([]string, 0, len(seats))

	for i, s := range seats {
		base := i * 5
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, s.EventID, s.Label, s.RowLabel, s.ColNumber, s.Reserved)
	}

	query += strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) ListByEvent(ctx context.Context, eventID int64) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE event_id = $1 ORDER BY row_label, col_number, label`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	seats := make([]*seat.Seat, len(rows))
	for i, row := range rows {
		seats[i] = row.toEntity()
	}
	return seats, nil
}

func (r *SeatRepository) HasSeats(ctx context.Context, tx transaction.Tx, eventID int64) (bool, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return false, fmt.Errorf("トランザクションが不正です")
	}
	var exists bool
	err := sqlxTx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM seats WHERE event_id = $1)`, eventID)
	if err != nil {
		return false, fmt.Errorf("座席有無の確認に失敗: %w", err)
	}
	return exists, nil
}

func (r *SeatRepository) CountByEvent(ctx context.Context, tx transaction.Tx, eventID int64) (int, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return 0, fmt.Errorf("トランザクションが不正です")
	}
	var count int
	err := sqlxTx.GetContext(ctx, &count, `SELECT COUNT(*) FROM seats WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("座席数取得に失敗: %w", err)
	}
	return count, nil
}

// LockAvailable は未予約座席を決定的な順序（行・列・ラベル）でロックして取得する
func (r *SeatRepository) LockAvailable(ctx context.Context, tx transaction.Tx, eventID int64, limit int) ([]*seat.Seat, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが不正です")
	}
	query := `
		SELECT ` + seatColumns + ` FROM seats
		WHERE event_id = $1 AND reserved = FALSE
		ORDER BY row_label, col_number, label
		LIMIT $2
		FOR UPDATE
	`
	var rows []seatRow
	if err := sqlxTx.SelectContext(ctx, &rows, query, eventID, limit); err != nil {
		return nil, fmt.Errorf("空席ロック取得に失敗: %w", err)
	}
	seats := make([]*seat.Seat, len(rows))
	for i, row := range rows {
		seats[i] = row.toEntity()
	}
	return seats, nil
}

func (r *SeatRepository) LockByIDs(ctx context.Context, tx transaction.Tx, eventID int64, seatIDs []int64) ([]*seat.Seat, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが不正です")
	}
	if len(seatIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + seatColumns + ` FROM seats
		WHERE id = ANY($1) AND event_id = $2
		ORDER BY row_label, col_number, label
		FOR UPDATE
	`
	var rows []seatRow
	if err := sqlxTx.SelectContext(ctx, &rows, query, pq.Array(seatIDs), eventID); err != nil {
		return nil, fmt.Errorf("座席ロック取得に失敗: %w", err)
	}
	seats := make([]*seat.Seat, len(rows))
	for i, row := range rows {
		seats[i] = row.toEntity()
	}
	return seats, nil
}

func (r *SeatRepository) Assign(ctx context.Context, tx transaction.Tx, seatIDs []int64, bookingID int64) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}
	if len(seatIDs) == 0 {
		return nil
	}
	query := `UPDATE seats SET reserved = TRUE, reserved_booking_id = $1 WHERE id = ANY($2) AND reserved = FALSE`
	result, err := sqlxTx.ExecContext(ctx, query, bookingID, pq.Array(seatIDs))
	if err != nil {
		return fmt.Errorf("座席割当に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if int(rows) != len(seatIDs) {
		return seat.ErrNotEnoughSeats
	}
	return nil
}

func (r *SeatRepository) ReleaseByBooking(ctx context.Context, tx transaction.Tx, bookingID int64) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}
	query := `UPDATE seats SET reserved = FALSE, reserved_booking_id = NULL WHERE reserved_booking_id = $1`
	if _, err := sqlxTx.ExecContext(ctx, query, bookingID); err != nil {
		return fmt.Errorf("座席解放に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) LabelsForBooking(ctx context.Context, bookingID int64) ([]string, error) {
	var labels []string
	query := `SELECT label FROM seats WHERE reserved_booking_id = $1 ORDER BY row_label, col_number, label`
	if err := r.db.SelectContext(ctx, &labels, query, bookingID); err != nil {
		return nil, fmt.Errorf("座席ラベル取得に失敗: %w", err)
	}
	return labels, nil
}

// UnreservedTailIDs は末尾側の未予約座席IDを返す（縮小時の削除候補）
func (r *SeatRepository) UnreservedTailIDs(ctx context.Context, tx transaction.Tx, eventID int64, limit int) ([]int64, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが不正です")
	}
	query := `
		SELECT id FROM seats
		WHERE event_id = $1 AND reserved = FALSE
		ORDER BY row_label DESC, col_number DESC, id DESC
		LIMIT $2
		FOR UPDATE
	`
	var ids []int64
	if err := sqlxTx.SelectContext(ctx, &ids, query, eventID, limit); err != nil {
		return nil, fmt.Errorf("削除候補座席の取得に失敗: %w", err)
	}
	return ids, nil
}

func (r *SeatRepository) DeleteByIDs(ctx context.Context, tx transaction.Tx, seatIDs []int64) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}
	if len(seatIDs) == 0 {
		return nil
	}
	if _, err := sqlxTx.ExecContext(ctx, `DELETE FROM seats WHERE id = ANY($1)`, pq.Array(seatIDs)); err != nil {
		return fmt.Errorf("座席削除に失敗: %w", err)
	}
	return nil
}

var _ seat.Repository = (*SeatRepository)(nil)
