package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sc941432/Atlan/internal/api/middleware"
	"github.com/sc941432/Atlan/internal/application"
	"github.com/sc941432/Atlan/internal/domain/booking"
)

// BookingHandler は予約のHTTPハンドラー
type BookingHandler struct {
	service BookingServiceInterface
}

func NewBookingHandler(s BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type CreateBookingRequest struct {
	EventID        int64   `json:"event_id" validate:"required" example:"1"`
	Qty            int     `json:"qty" validate:"required,min=1" example:"2"`
	IdempotencyKey *string `json:"idempotency_key,omitempty" example:"order-2026-001"`
	Waitlist       bool    `json:"waitlist" example:"true"`
	SeatIDs        []int64 `json:"seat_ids,omitempty"`
}

type BookingResponse struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	EventID        int64     `json:"event_id"`
	Qty            int       `json:"qty"`
	Status         string    `json:"status"`
	SeatLabels     []string  `json:"seat_labels,omitempty"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toBookingResponse(r *booking.Result) BookingResponse {
	b := r.Booking
	return BookingResponse{
		ID:             b.ID,
		UserID:         b.UserID,
		EventID:        b.EventID,
		Qty:            b.Qty,
		Status:         string(b.Status),
		SeatLabels:     r.SeatLabels,
		IdempotencyKey: b.IdempotencyKey,
		CreatedAt:      b.CreatedAt,
	}
}

// Create godoc
// @Summary 予約を作成
// @Description 満席時は waitlist=true でウェイトリストに入る。
// @Description 同じ idempotency_key の再送には既存の予約を返す
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header int true "ユーザーID"
// @Param request body CreateBookingRequest true "予約内容"
// @Success 201 {object} BookingResponse
// @Failure 409 {object} api.ErrorResponse "満席・座席重複・非アクティブイベント"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.service.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		UserID:         middleware.CurrentUserID(c),
		EventID:        req.EventID,
		Qty:            req.Qty,
		IdempotencyKey: req.IdempotencyKey,
		AllowWaitlist:  req.Waitlist,
		SeatIDs:        req.SeatIDs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookingResponse(result))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags bookings
// @Produce json
// @Param X-User-ID header int true "ユーザーID"
// @Param id path int true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	result, err := h.service.GetBooking(c.Request().Context(), id,
		middleware.CurrentUserID(c), middleware.CurrentUserIsAdmin(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(result))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description キャンセルで空いた分はウェイトリストの先頭から自動昇格する
// @Tags bookings
// @Produce json
// @Param X-User-ID header int true "ユーザーID"
// @Param id path int true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 403 {object} api.ErrorResponse
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	result, err := h.service.CancelBooking(c.Request().Context(), id,
		middleware.CurrentUserID(c), middleware.CurrentUserIsAdmin(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(result))
}

// ListMine godoc
// @Summary 自分の予約一覧を取得
// @Tags bookings
// @Produce json
// @Param X-User-ID header int true "ユーザーID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Router /bookings [get]
func (h *BookingHandler) ListMine(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	results, err := h.service.ListUserBookings(c.Request().Context(),
		middleware.CurrentUserID(c), limit, offset)
	if err != nil {
		return err
	}

	resp := make([]BookingResponse, len(results))
	for i, r := range results {
		resp[i] = toBookingResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}
