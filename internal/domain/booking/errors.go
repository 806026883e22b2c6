package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound         = errors.New("予約が見つかりません")
	ErrForbidden               = errors.New("この予約を操作する権限がありません")
	ErrInvalidQty              = errors.New("数量は1以上である必要があります")
	ErrSeatCountMismatch       = errors.New("数量と座席IDの数が一致しません")
	ErrUserIDRequired          = errors.New("ユーザーIDは必須です")
	ErrEventIDRequired         = errors.New("イベントIDは必須です")
	ErrDuplicateIdempotencyKey = errors.New("同じ冪等性キーの予約が既に存在します")
)
