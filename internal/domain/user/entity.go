package user

import "time"

// Role はユーザーの権限を表す
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User はユーザーエンティティを表す
// 認証（トークン発行・パスワード検証）はこのサービスの範囲外で、
// ここでは予約の所有者判定と管理者判定にのみ使う
type User struct {
	ID        int64
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// IsAdmin はユーザーが管理者かを返す
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
