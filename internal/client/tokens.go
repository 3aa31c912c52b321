package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore remembers the session token between CLI runs.
type FileTokenStore struct {
	Path string
	now  func() time.Time
}

type tokenFile struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path, now: time.Now}
}

// Load returns "" when nothing has been saved.
func (s *FileTokenStore) Load() (string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", fmt.Errorf("parse token file: %w", err)
	}
	return tf.Token, nil
}

func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	b, err := json.Marshal(tokenFile{Token: token, SavedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return os.Rename(tmp, s.Path)
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
