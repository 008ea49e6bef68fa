package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)"     json:"id"`
	Name         string     `gorm:"size:100;not null"               json:"name"`
	Email        string     `gorm:"size:320;uniqueIndex;not null"   json:"email"`
	PasswordHash string     `gorm:"not null"                        json:"-"`
	CompanyName  *string    `gorm:"size:200"                        json:"company_name"`
	Role         string     `gorm:"size:16;not null"                json:"role"`
	IsVerified   bool       `gorm:"not null"                        json:"is_verified"`
	IsActive     bool       `gorm:"not null"                        json:"is_active"`
	CreatedAt    time.Time  `                                       json:"created_at"`
	LastLogin    *time.Time `                                       json:"last_login"`
	UpdatedAt    time.Time  `                                       json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RefreshToken stores the sha256 of an issued refresh JWT, never the raw value.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"                      json:"id"`
	Token     string    `gorm:"size:64;uniqueIndex;not null"    json:"-"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null"                  json:"expires_at"`
	IsRevoked bool      `gorm:"not null"                        json:"is_revoked"`
	CreatedAt time.Time `                                       json:"created_at"`

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
