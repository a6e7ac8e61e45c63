package entity

import (
	"database/sql"
	"time"
)

type User struct {
	ID           uint64
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	IsActive     bool
	LastLogin    sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is what outbound emails address the user by.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
