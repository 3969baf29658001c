package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/chatlink/internal/adapters/secrets/file"
	passstore "github.com/bnema/chatlink/internal/adapters/secrets/pass"
	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	"github.com/rs/zerolog"
)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

// Store resolves credential references against a primary backend and a
// fallback one. A credential lives in exactly one of them: the primary
// when it accepts writes, the fallback otherwise.
type Store struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
	logger   zerolog.Logger
}

var _ ports.SecretStore = (*Store)(nil)

func New(primary ports.SecretStore, fallback ports.SecretStore, logger zerolog.Logger) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}
	return &Store{primary: primary, fallback: fallback, logger: logger}, nil
}

// NewPassWithFileFallback prefers pass and keeps credentials as files
// under fileRoot when pass is missing or fails.
func NewPassWithFileFallback(fileRoot string, logger zerolog.Logger) (*Store, error) {
	return New(passstore.NewStore(), filestore.NewStore(fileRoot), logger)
}

// Put writes to the primary and drops any older copy left in the fallback,
// so a later primary outage cannot surface a stale password.
func (s *Store) Put(ctx context.Context, key string, value string) error {
	ref, err := domain.ParseCredentialRef(key)
	if err != nil {
		return err
	}
	key = ref.String()

	err = s.primary.Put(ctx, key, value)
	if err == nil {
		if err := s.fallback.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
			s.logger.Warn().Err(err).Str("account", string(ref.Account)).Str("item", ref.Item).Msg("drop fallback copy of credential")
		}
		return nil
	}
	if stopsChain(err) {
		return err
	}
	s.logFallback("put", ref, err)

	if fallbackErr := s.fallback.Put(ctx, key, value); fallbackErr != nil {
		return fmt.Errorf("store credential %s: primary: %w; fallback: %w", ref, err, fallbackErr)
	}
	return nil
}

// Get reads the primary first. When neither backend has the credential the
// error matches domain.ErrSecretNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	ref, err := domain.ParseCredentialRef(key)
	if err != nil {
		return "", err
	}
	key = ref.String()

	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if stopsChain(err) {
		return "", err
	}
	s.logFallback("get", ref, err)

	value, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr != nil {
		return "", fmt.Errorf("resolve credential %s: primary: %w; fallback: %w", ref, err, fallbackErr)
	}
	return value, nil
}

// Delete clears the credential from both backends. Missing copies are not
// an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	ref, err := domain.ParseCredentialRef(key)
	if err != nil {
		return err
	}
	key = ref.String()

	primaryErr := ignoreMissing(s.primary.Delete(ctx, key))
	if primaryErr != nil && stopsChain(primaryErr) {
		return primaryErr
	}
	fallbackErr := ignoreMissing(s.fallback.Delete(ctx, key))

	switch {
	case primaryErr == nil && fallbackErr == nil:
		return nil
	case primaryErr != nil && fallbackErr != nil:
		return fmt.Errorf("delete credential %s: primary: %w; fallback: %w", ref, primaryErr, fallbackErr)
	case primaryErr != nil:
		// The primary may simply be unavailable; the fallback copy is gone.
		s.logFallback("delete", ref, primaryErr)
		return nil
	default:
		return fmt.Errorf("delete credential %s: fallback: %w", ref, fallbackErr)
	}
}

func (s *Store) logFallback(op string, ref domain.CredentialRef, err error) {
	s.logger.Debug().Err(err).Str("op", op).Str("account", string(ref.Account)).Str("item", ref.Item).Msg("primary secret backend failed, trying fallback")
}

func ignoreMissing(err error) error {
	if errors.Is(err, domain.ErrSecretNotFound) {
		return nil
	}
	return err
}

// stopsChain reports errors the fallback could not do better on.
func stopsChain(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domain.ErrInvalidCredentialRef)
}
