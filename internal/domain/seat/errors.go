package seat

import (
	"errors"
	"fmt"
	"strings"
)

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound    = errors.New("座席が見つかりません")
	ErrNotEnoughSeats  = errors.New("十分な空席がありません")
	ErrShrinkBlocked   = errors.New("縮小に必要な未予約座席が不足しています。先に予約をキャンセルしてください")
	ErrSeatsExist      = errors.New("このイベントには既に座席が存在します")
	ErrInvalidGrid     = errors.New("座席グリッドの行・列の指定が不正です")
	ErrEventIDRequired = errors.New("イベントIDは必須です")
	ErrLabelRequired   = errors.New("座席ラベルは必須です")
)

// UnavailableError は指名された座席のうち予約済みのものを列挙するエラー
type UnavailableError struct {
	Labels []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("座席は利用できません: %s", strings.Join(e.Labels, ", "))
}
