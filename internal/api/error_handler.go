package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sc941432/Atlan/internal/domain/booking"
	"github.com/sc941432/Atlan/internal/domain/event"
	"github.com/sc941432/Atlan/internal/domain/seat"
	"github.com/sc941432/Atlan/internal/domain/user"
	"github.com/sc941432/Atlan/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error string   `json:"error"`
	Code  int      `json:"code,omitempty"`
	Seats []string `json:"seats,omitempty"`
}

// statusForError はドメインエラーをHTTPステータスに対応付ける
func statusForError(err error) int {
	switch {
	case errors.Is(err, event.ErrEventNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, seat.ErrSeatNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, event.ErrEventNotActive),
		errors.Is(err, event.ErrCapacityExceeded),
		errors.Is(err, event.ErrCapacityBelowBooked),
		errors.Is(err, event.ErrEventHasBookings),
		errors.Is(err, seat.ErrNotEnoughSeats),
		errors.Is(err, seat.ErrShrinkBlocked),
		errors.Is(err, seat.ErrSeatsExist),
		errors.Is(err, booking.ErrSeatCountMismatch):
		return http.StatusConflict

	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, booking.ErrInvalidQty),
		errors.Is(err, booking.ErrUserIDRequired),
		errors.Is(err, booking.ErrEventIDRequired),
		errors.Is(err, seat.ErrInvalidGrid),
		errors.Is(err, event.ErrEventNameRequired),
		errors.Is(err, event.ErrInvalidCapacity),
		errors.Is(err, event.ErrInvalidEventTime),
		errors.Is(err, event.ErrInvalidStatus):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ドメインの番兵エラーをHTTPステータスへ変換して統一フォーマットで返す
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    int
		message string
		seats   []string
	)

	var he *echo.HTTPError
	var unavailable *seat.UnavailableError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	case errors.As(err, &unavailable):
		code = http.StatusConflict
		message = unavailable.Error()
		seats = unavailable.Labels
	default:
		code = statusForError(err)
		if code == http.StatusInternalServerError {
			message = "内部サーバーエラー"
		} else {
			message = err.Error()
		}
	}

	// 5xxのみエラーログを出力
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if err := c.JSON(code, ErrorResponse{
		Error: message,
		Code:  code,
		Seats: seats,
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
