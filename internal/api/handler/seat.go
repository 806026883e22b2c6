package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sc941432/Atlan/internal/domain/seat"
)

// SeatHandler は座席のHTTPハンドラー
type SeatHandler struct {
	service SeatServiceInterface
}

func NewSeatHandler(s SeatServiceInterface) *SeatHandler {
	return &SeatHandler{service: s}
}

type GenerateGridRequest struct {
	Rows int `json:"rows" validate:"required,min=1,max=26" example:"10"`
	Cols int `json:"cols" validate:"required,min=1,max=200" example:"20"`
}

type SeatResponse struct {
	ID        int64  `json:"id"`
	EventID   int64  `json:"event_id"`
	Label     string `json:"label"`
	RowLabel  string `json:"row_label"`
	ColNumber int    `json:"col_number"`
	Reserved  bool   `json:"reserved"`
}

func toSeatResponse(s *seat.Seat) SeatResponse {
	return SeatResponse{
		ID:        s.ID,
		EventID:   s.EventID,
		Label:     s.Label,
		RowLabel:  s.RowLabel,
		ColNumber: s.ColNumber,
		Reserved:  s.Reserved,
	}
}

// ListByEvent godoc
// @Summary イベントの座席一覧を取得
// @Tags seats
// @Produce json
// @Param id path int true "イベントID"
// @Success 200 {array} SeatResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id}/seats [get]
func (h *SeatHandler) ListByEvent(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	seats, err := h.service.ListByEvent(c.Request().Context(), eventID)
	if err != nil {
		return err
	}
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = toSeatResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

// GenerateGrid godoc
// @Summary 座席グリッドを生成（管理者）
// @Description rows×cols の座席を作成し、収容数を座席数に同期する
// @Tags seats
// @Accept json
// @Produce json
// @Param id path int true "イベントID"
// @Param request body GenerateGridRequest true "グリッド指定"
// @Success 201 {array} SeatResponse
// @Failure 409 {object} api.ErrorResponse "座席が既に存在する"
// @Router /admin/events/{id}/seats [post]
func (h *SeatHandler) GenerateGrid(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req GenerateGridRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	seats, err := h.service.GenerateGrid(c.Request().Context(), eventID, req.Rows, req.Cols)
	if err != nil {
		return err
	}
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = toSeatResponse(s)
	}
	return c.JSON(http.StatusCreated, resp)
}

// CountAvailable godoc
// @Summary イベントの空き数を取得
// @Tags seats
// @Produce json
// @Param id path int true "イベントID"
// @Success 200 {object} map[string]int
// @Router /events/{id}/availability [get]
func (h *SeatHandler) CountAvailable(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	count, err := h.service.CountAvailable(c.Request().Context(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"available": count})
}
