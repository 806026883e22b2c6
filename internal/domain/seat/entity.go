package seat

// Seat は座席エンティティを表す
// Reserved が true のとき ReservedBookingID は CONFIRMED 予約を指す
type Seat struct {
	ID                int64
	EventID           int64
	Label             string
	RowLabel          string
	ColNumber         int
	Reserved          bool
	ReservedBookingID *int64
}

// NewSeat は新しい座席を作成する
func NewSeat(eventID int64, rowLabel string, colNumber int, label string) *Seat {
	return &Seat{
		EventID:   eventID,
		RowLabel:  rowLabel,
		ColNumber: colNumber,
		Label:     label,
	}
}

// IsAvailable は座席が予約可能かを返す
func (s *Seat) IsAvailable() bool {
	return !s.Reserved
}

// Validate は座席の検証を行う
func (s *Seat) Validate() error {
	if s.EventID == 0 {
		return ErrEventIDRequired
	}
	if s.Label == "" {
		return ErrLabelRequired
	}
	return nil
}
