package event

import "time"

// Status はイベントの状態を表す
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Event はイベントエンティティを表す
// BookedCount は CONFIRMED 予約の数量合計であり、常に Capacity 以下
type Event struct {
	ID          int64
	Name        string
	Venue       string
	StartTime   time.Time
	EndTime     time.Time
	Capacity    int
	BookedCount int
	Status      Status
	CreatedBy   *int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEvent は新しいイベントを作成する
func NewEvent(name, venue string, startTime, endTime time.Time, capacity int, createdBy int64) *Event {
	now := time.Now()
	return &Event{
		Name:        name,
		Venue:       venue,
		StartTime:   startTime,
		EndTime:     endTime,
		Capacity:    capacity,
		BookedCount: 0,
		Status:      StatusActive,
		CreatedBy:   &createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsActive はイベントが予約を受け付けているかを返す
func (e *Event) IsActive() bool {
	return e.Status == StatusActive
}

// FreeCapacity は残り収容数を返す（座席なしイベント用）
func (e *Event) FreeCapacity() int {
	free := e.Capacity - e.BookedCount
	if free < 0 {
		return 0
	}
	return free
}

// Validate はイベントの検証を行う
func (e *Event) Validate() error {
	if e.Name == "" {
		return ErrEventNameRequired
	}
	if e.Capacity < 1 {
		return ErrInvalidCapacity
	}
	if e.EndTime.Before(e.StartTime) {
		return ErrInvalidEventTime
	}
	if e.Status != StatusActive && e.Status != StatusInactive {
		return ErrInvalidStatus
	}
	return nil
}
