package domain

import "time"

// User is a ShipKeep account.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"size:80;not null;uniqueIndex:uk_users_username"`
	Email        string    `gorm:"size:120;not null;uniqueIndex:uk_users_email"`
	PasswordHash string    `gorm:"size:128;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName pins the table name for gorm.
func (User) TableName() string {
	return "users"
}
