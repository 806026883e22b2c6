package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sc941432/Atlan/internal/domain/user"
)

// コンテキストに格納するキー
const (
	ContextKeyUserID  = "user_id"
	ContextKeyIsAdmin = "is_admin"
)

// Identity は X-User-ID ヘッダーから利用者を解決するミドルウェア
// 解決したユーザーIDと管理者フラグをコンテキストに積む
func Identity(userRepo user.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("X-User-ID")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
			}
			userID, err := strconv.ParseInt(header, 10, 64)
			if err != nil || userID <= 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが不正です")
			}

			u, err := userRepo.GetByID(c.Request().Context(), userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーが見つかりません")
			}

			c.Set(ContextKeyUserID, u.ID)
			c.Set(ContextKeyIsAdmin, u.IsAdmin())
			return next(c)
		}
	}
}

// RequireAdmin は管理者のみ通すミドルウェア。Identity の後段に置く
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !CurrentUserIsAdmin(c) {
				return echo.NewHTTPError(http.StatusForbidden, "管理者権限が必要です")
			}
			return next(c)
		}
	}
}

// CurrentUserID はコンテキストからユーザーIDを取り出す
func CurrentUserID(c echo.Context) int64 {
	if v, ok := c.Get(ContextKeyUserID).(int64); ok {
		return v
	}
	return 0
}

// CurrentUserIsAdmin はコンテキストから管理者フラグを取り出す
func CurrentUserIsAdmin(c echo.Context) bool {
	if v, ok := c.Get(ContextKeyIsAdmin).(bool); ok {
		return v
	}
	return false
}
