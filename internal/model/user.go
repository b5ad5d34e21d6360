package model

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleMember     Role = "member"
)

// Valid проверяет что роль известна
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleInstructor || r == RoleMember
}

type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Role       Role      `json:"role"`
	IsActive   bool      `json:"is_active"`
	TelegramID *int64    `json:"telegram_id"` // чат для уведомлений, nil - не подключён
	CreatedAt  time.Time `json:"created_at"`
}

// IsInstructor проверяет что пользователь - действующий инструктор
func (u *User) IsInstructor() bool {
	return u.IsActive && u.Role == RoleInstructor
}
