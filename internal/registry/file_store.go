package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/autonome/autonome/internal/logger"
	"github.com/google/uuid"
)

type fileUser struct {
	User
	PasswordHash string `json:"passwordHash"`
}

type usersFile struct {
	Users []fileUser `json:"users"`
}

// FileStore keeps users in a single JSON document
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) Register(ctx context.Context, reg Registration) (*User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	hash, err := hashPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, u := range data.Users {
		if u.Email == reg.Email {
			return nil, ErrEmailTaken
		}
	}

	user := User{
		ID:               uuid.NewString(),
		FullName:         reg.FullName,
		Email:            reg.Email,
		TelegramUsername: reg.TelegramUsername,
		CreatedAt:        s.now().UTC(),
	}
	data.Users = append(data.Users, fileUser{User: user, PasswordHash: hash})

	if err := s.write(data); err != nil {
		return nil, err
	}

	logger.Info("Registered user", map[string]interface{}{
		"user_id":           user.ID,
		"telegram_username": user.TelegramUsername,
	})
	return &user, nil
}

func (s *FileStore) List(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(data.Users))
	for _, u := range data.Users {
		users = append(users, u.User)
	}
	return users, nil
}

func (s *FileStore) StartMonitoring(ctx context.Context, telegramUsername string) (*User, error) {
	username := NormalizeUsername(telegramUsername)

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range data.Users {
		if data.Users[i].TelegramUsername != username {
			continue
		}
		data.Users[i].Monitoring = true
		if err := s.write(data); err != nil {
			return nil, err
		}
		user := data.Users[i].User
		return &user, nil
	}
	return nil, ErrUserNotFound
}

func (s *FileStore) IsMonitoring(ctx context.Context, telegramUsername string) (bool, error) {
	username := NormalizeUsername(telegramUsername)

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return false, err
	}
	for _, u := range data.Users {
		if u.TelegramUsername == username && u.Monitoring {
			return true, nil
		}
	}
	return false, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (*usersFile, error) {
	data := &usersFile{}
	content, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, nil
		}
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	if len(content) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(content, data); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}
	return data, nil
}

func (s *FileStore) write(data *usersFile) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create users dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace users file: %w", err)
	}
	return nil
}
