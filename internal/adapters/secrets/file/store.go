package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
)

const (
	accountDirMode = 0o700
	credentialMode = 0o600
	tempPattern    = ".credential-*.tmp"
)

// Store keeps one file per credential under root, grouped by account:
// chatlink://work/password lives at <root>/work/password.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	ref, err := s.resolve(ctx, key)
	if err != nil {
		return err
	}
	path := s.path(ref)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), accountDirMode); err != nil {
		return fmt.Errorf("create credential directory for %s: %w", ref.Account, err)
	}
	if err := writeCredential(path, value); err != nil {
		return fmt.Errorf("write credential %s: %w", ref, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	ref, err := s.resolve(ctx, key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(ref))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("credential %s: %w", ref, domain.ErrSecretNotFound)
		}
		return "", fmt.Errorf("read credential %s: %w", ref, err)
	}
	return string(data), nil
}

// Delete removes the credential and, once it held nothing else, the
// account's directory. Missing credentials are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	ref, err := s.resolve(ctx, key)
	if err != nil {
		return err
	}
	path := s.path(ref)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete credential %s: %w", ref, err)
	}
	s.pruneEmptyDirs(filepath.Dir(path))
	return nil
}

func (s *Store) resolve(ctx context.Context, key string) (domain.CredentialRef, error) {
	if err := ctx.Err(); err != nil {
		return domain.CredentialRef{}, err
	}
	return domain.ParseCredentialRef(key)
}

func (s *Store) path(ref domain.CredentialRef) string {
	return filepath.Join(s.root, filepath.FromSlash(ref.Path()))
}

// pruneEmptyDirs walks up from dir to root removing empty directories.
func (s *Store) pruneEmptyDirs(dir string) {
	for dir != s.root && len(dir) > len(s.root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func writeCredential(path, value string) error {
	temp, err := os.CreateTemp(filepath.Dir(path), tempPattern)
	if err != nil {
		return err
	}
	tempName := temp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if err := temp.Chmod(credentialMode); err != nil {
		_ = temp.Close()
		return err
	}
	if _, err := temp.WriteString(value); err != nil {
		_ = temp.Close()
		return err
	}
	if err := temp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tempName, path); err != nil {
		return err
	}
	cleanup = false
	return nil
}
