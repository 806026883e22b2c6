package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AnalyticsHandler は集計のHTTPハンドラー
type AnalyticsHandler struct {
	service AnalyticsServiceInterface
}

func NewAnalyticsHandler(s AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{service: s}
}

// Summary godoc
// @Summary 予約状況の集計サマリーを取得（管理者）
// @Description 総数・イベント別利用率・上位5件・直近7日の日別確定数を返す
// @Tags analytics
// @Produce json
// @Success 200 {object} application.Summary
// @Router /admin/analytics/summary [get]
func (h *AnalyticsHandler) Summary(c echo.Context) error {
	summary, err := h.service.GetSummary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
