package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sc941432/Atlan/internal/api/middleware"
	"github.com/sc941432/Atlan/internal/application"
	"github.com/sc941432/Atlan/internal/domain/event"
)

// EventHandler はイベント管理のHTTPハンドラー
type EventHandler struct {
	service EventServiceInterface
}

func NewEventHandler(s EventServiceInterface) *EventHandler {
	return &EventHandler{service: s}
}

type CreateEventRequest struct {
	Name      string    `json:"name" validate:"required" example:"夏フェス 2026"`
	Venue     string    `json:"venue" example:"幕張メッセ"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Capacity  int       `json:"capacity" validate:"required,min=1" example:"500"`
}

type UpdateEventRequest struct {
	Name      *string    `json:"name,omitempty"`
	Venue     *string    `json:"venue,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Capacity  *int       `json:"capacity,omitempty" validate:"omitempty,min=1"`
	Status    *string    `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

type EventResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Venue       string    `json:"venue"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Capacity    int       `json:"capacity"`
	BookedCount int       `json:"booked_count"`
	Available   int       `json:"available"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func toEventResponse(e *event.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Venue:       e.Venue,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Capacity:    e.Capacity,
		BookedCount: e.BookedCount,
		Available:   e.FreeCapacity(),
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
	}
}

// Create godoc
// @Summary イベントを作成（管理者）
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /admin/events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ev, err := h.service.CreateEvent(c.Request().Context(), application.CreateEventInput{
		Name:      req.Name,
		Venue:     req.Venue,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Capacity:  req.Capacity,
		CreatedBy: middleware.CurrentUserID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEventResponse(ev))
}

// GetByID godoc
// @Summary イベントを取得
// @Tags events
// @Produce json
// @Param id path int true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ev, err := h.service.GetEvent(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(ev))
}

// List godoc
// @Summary イベント一覧を取得
// @Tags events
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {object} EventListResponse
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	events, total, err := h.service.ListEvents(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}

	resp := EventListResponse{
		Events: make([]EventResponse, len(events)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i, ev := range events {
		resp.Events[i] = toEventResponse(ev)
	}
	return c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary イベントを更新（管理者）
// @Description 収容数の変更は座席数の照合（増設・縮小）を伴う
// @Tags events
// @Accept json
// @Produce json
// @Param id path int true "イベントID"
// @Param request body UpdateEventRequest true "更新内容"
// @Success 200 {object} EventResponse
// @Failure 409 {object} api.ErrorResponse "縮小に必要な未予約座席が不足"
// @Router /admin/events/{id} [put]
func (h *EventHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ev, err := h.service.UpdateEvent(c.Request().Context(), id, application.UpdateEventInput{
		Name:      req.Name,
		Venue:     req.Venue,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Capacity:  req.Capacity,
		Status:    req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(ev))
}

// Deactivate godoc
// @Summary イベントを予約停止にする（管理者）
// @Tags events
// @Produce json
// @Param id path int true "イベントID"
// @Success 200 {object} EventResponse
// @Router /admin/events/{id}/deactivate [post]
func (h *EventHandler) Deactivate(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ev, err := h.service.DeactivateEvent(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(ev))
}

// Delete godoc
// @Summary イベントを削除（管理者）
// @Description 予約が存在するイベントは削除できない
// @Tags events
// @Param id path int true "イベントID"
// @Success 204
// @Failure 409 {object} api.ErrorResponse
// @Router /admin/events/{id} [delete]
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.DeleteEvent(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// parseID はパスパラメータを数値IDとして読み取る
func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "IDが不正です")
	}
	return id, nil
}
