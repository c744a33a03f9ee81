package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// User is the signed-in account.
type User struct {
	UID           string `yaml:"uid" json:"uid"`
	Email         string `yaml:"email" json:"email"`
	DisplayName   string `yaml:"display_name" json:"displayName"`
	PhotoURL      string `yaml:"photo_url" json:"photoURL"`
	EmailVerified bool   `yaml:"email_verified" json:"emailVerified"`
}

type session struct {
	User         User      `yaml:"user"`
	IDToken      string    `yaml:"id_token"`
	RefreshToken string    `yaml:"refresh_token"`
	ExpiresAt    time.Time `yaml:"expires_at"`
}

func loadSession(path string) (*session, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}

	var s session
	if err := yaml.Unmarshal(contents, &s); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal(%s) > %w", path, err)
	}
	if s.IDToken == "" {
		return nil, nil
	}
	return &s, nil
}

func saveSession(path string, s *session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("os.MkdirAll > %w", err)
	}
	contents, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("yaml.Marshal > %w", err)
	}
	if err := os.WriteFile(path, contents, 0o600); err != nil {
		return fmt.Errorf("os.WriteFile(%s) > %w", path, err)
	}
	return nil
}

func removeSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.Remove(%s) > %w", path, err)
	}
	return nil
}
