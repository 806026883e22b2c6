package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sc941432/Atlan/internal/domain/user"
)

type userRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *userRow) toEntity() *user.User {
	return &user.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Role:      user.Role(r.Role),
		CreatedAt: r.CreatedAt,
	}
}

// UserRepository はユーザーリポジトリのPostgreSQL実装
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID はIDからユーザーを取得する
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT id, name, email, role, created_at FROM users WHERE id = $1`

	var row userRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("ユーザー取得に失敗しました: %w", err)
	}
	return row.toEntity(), nil
}

var _ user.Repository = (*UserRepository)(nil)
