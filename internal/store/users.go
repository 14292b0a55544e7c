// Package store keeps ShipKeep accounts in a sqlite database through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/timekeepco/timekeep/internal/domain"
)

var (
	// ErrDuplicate reports a unique constraint violation on username or email.
	ErrDuplicate = errors.New("user already exists")
	// ErrNotFound reports that no user matched the lookup.
	ErrNotFound = errors.New("user not found")
)

// Users is the account store.
type Users struct {
	db *gorm.DB
}

// Open connects to the sqlite database at path and migrates the users table.
// ":memory:" is accepted for throwaway databases.
func Open(path string) (*Users, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// sqlite serialises writers; a single connection also keeps ":memory:" databases alive.
	sqlDB.SetMaxOpenConns(1)

	users := &Users{db: db}
	if err := users.AutoMigrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return users, nil
}

// AutoMigrate creates or updates the users table.
func (u *Users) AutoMigrate() error {
	if err := u.db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

// Create inserts a new user and fills in its ID.
func (u *Users) Create(ctx context.Context, user *domain.User) error {
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return nil
}

// GetByUsername retrieves a user by exact username.
func (u *Users) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return u.first(ctx, "username = ?", username)
}

// GetByEmail retrieves a user by email, ignoring case.
func (u *Users) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return u.first(ctx, "LOWER(email) = LOWER(?)", email)
}

// Count returns the number of registered users.
func (u *Users) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := u.db.WithContext(ctx).Model(&domain.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Ping checks that the database still answers.
func (u *Users) Ping(ctx context.Context) error {
	sqlDB, err := u.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection.
func (u *Users) Close() error {
	sqlDB, err := u.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (u *Users) first(ctx context.Context, query string, arg string) (*domain.User, error) {
	var user domain.User
	err := u.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
