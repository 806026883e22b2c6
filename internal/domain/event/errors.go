package event

import "errors"

// Event ドメインのエラー定義
var (
	ErrEventNotFound       = errors.New("イベントが見つかりません")
	ErrEventNameRequired   = errors.New("イベント名は必須です")
	ErrInvalidCapacity     = errors.New("収容数は1以上である必要があります")
	ErrInvalidEventTime    = errors.New("終了時刻は開始時刻より後である必要があります")
	ErrInvalidStatus       = errors.New("ステータスは active または inactive である必要があります")
	ErrEventNotActive      = errors.New("イベントは予約を受け付けていません")
	ErrCapacityExceeded    = errors.New("収容数を超過しています")
	ErrCapacityBelowBooked = errors.New("収容数を予約済み数より小さくできません")
	ErrEventHasBookings    = errors.New("予約が存在するイベントは削除できません")
)
