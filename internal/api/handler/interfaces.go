package handler

import (
	"context"

	"github.com/sc941432/Atlan/internal/application"
	"github.com/sc941432/Atlan/internal/domain/booking"
	"github.com/sc941432/Atlan/internal/domain/event"
	"github.com/sc941432/Atlan/internal/domain/seat"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, id int64) (*event.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, int, error)
	UpdateEvent(ctx context.Context, id int64, input application.UpdateEventInput) (*event.Event, error)
	DeactivateEvent(ctx context.Context, id int64) (*event.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Result, error)
	GetBooking(ctx context.Context, bookingID, actorID int64, isAdmin bool) (*booking.Result, error)
	CancelBooking(ctx context.Context, bookingID, actorID int64, isAdmin bool) (*booking.Result, error)
	ListUserBookings(ctx context.Context, userID int64, limit, offset int) ([]*booking.Result, error)
}

// SeatServiceInterface は座席サービスのインターフェース
type SeatServiceInterface interface {
	ListByEvent(ctx context.Context, eventID int64) ([]*seat.Seat, error)
	GenerateGrid(ctx context.Context, eventID int64, rows, cols int) ([]*seat.Seat, error)
	CountAvailable(ctx context.Context, eventID int64) (int, error)
}

// AnalyticsServiceInterface は集計サービスのインターフェース
type AnalyticsServiceInterface interface {
	GetSummary(ctx context.Context) (*application.Summary, error)
}
