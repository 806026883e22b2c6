package booking

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusConfirmed  Status = "CONFIRMED"
	StatusWaitlisted Status = "WAITLISTED"
	StatusCancelled  Status = "CANCELLED"
)

// Booking は予約エンティティを表す
// 遷移は WAITLISTED→CONFIRMED / WAITLISTED→CANCELLED / CONFIRMED→CANCELLED のみ。
// CANCELLED は終端状態で、そこから戻る遷移はない。
type Booking struct {
	ID             int64
	UserID         int64
	EventID        int64
	Qty            int
	Status         Status
	IdempotencyKey *string
	CreatedAt      time.Time
}

// Result は予約と解決済み座席ラベルをまとめた戻り値
// 座席ラベルは取得後に動的属性として付けるのではなく、明示的な型で返す
type Result struct {
	Booking    *Booking
	SeatLabels []string
}

// New は新しい予約を作成する
func New(userID, eventID int64, qty int, status Status, idempotencyKey *string) *Booking {
	return &Booking{
		UserID:         userID,
		EventID:        eventID,
		Qty:            qty,
		Status:         status,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now(),
	}
}

// IsTerminal は予約が終端状態（CANCELLED）かを返す
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCancelled
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.UserID == 0 {
		return ErrUserIDRequired
	}
	if b.EventID == 0 {
		return ErrEventIDRequired
	}
	if b.Qty <= 0 {
		return ErrInvalidQty
	}
	return nil
}
