package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/autonome/autonome/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrMissingFields = errors.New("fullName, email, password and telegramUsername are required")
	ErrUserNotFound  = errors.New("user not found")
)

// hashCost is lowered in tests
var hashCost = bcrypt.DefaultCost

// User is a registered account as returned to clients. The password hash never
// leaves the store.
type User struct {
	ID               string    `json:"id"`
	FullName         string    `json:"fullName"`
	Email            string    `json:"email"`
	TelegramUsername string    `json:"telegramUsername"`
	Monitoring       bool      `json:"monitoring"`
	CreatedAt        time.Time `json:"createdAt"`
}

type Registration struct {
	FullName         string `json:"fullName"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	TelegramUsername string `json:"telegramUsername"`
}

// Validate trims the fields and checks that all are present
func (r *Registration) Validate() error {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.TelegramUsername = NormalizeUsername(r.TelegramUsername)
	if r.FullName == "" || r.Email == "" || r.Password == "" || r.TelegramUsername == "" {
		return ErrMissingFields
	}
	return nil
}

// Store keeps registered users and their monitoring state
type Store interface {
	Register(ctx context.Context, reg Registration) (*User, error)
	List(ctx context.Context) ([]User, error)
	StartMonitoring(ctx context.Context, telegramUsername string) (*User, error)
	IsMonitoring(ctx context.Context, telegramUsername string) (bool, error)
	Close() error
}

// Open picks the Postgres store when a DSN is configured and the JSON file store otherwise
func Open(dsn, usersPath string) (Store, error) {
	if dsn != "" {
		store, err := NewPostgresStore(dsn)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	logger.Info("Using file user store", map[string]interface{}{
		"path": usersPath,
	})
	return NewFileStore(usersPath), nil
}

// NormalizeUsername strips the leading @ and lowercases a Telegram username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
