package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
)

var (
	ErrInvalidAccountID  = errors.New("account id is empty")
	ErrForeignCredential = errors.New("credential reference belongs to another account")
)

// Service manages the configuration store on behalf of the CLI.
type Service struct {
	repo  ports.AccountRepository
	store ports.SecretStore
}

func NewService(repo ports.AccountRepository, store ports.SecretStore) *Service {
	return &Service{
		repo:  repo,
		store: store,
	}
}

// SaveAccount creates an account or updates its connection settings. An
// update that changes connection-relevant settings marks the account dirty.
func (s *Service) SaveAccount(ctx context.Context, cmd SaveAccountCommand) (domain.AccountConfig, error) {
	if strings.TrimSpace(string(cmd.ID)) == "" {
		return domain.AccountConfig{}, ErrInvalidAccountID
	}

	accounts, err := s.repo.List(ctx)
	if err != nil {
		return domain.AccountConfig{}, fmt.Errorf("list accounts: %w", err)
	}

	var (
		existing  domain.AccountConfig
		found     bool
		hardwareN int
	)
	for _, account := range accounts {
		if account.ID == cmd.ID {
			existing = account
			found = true
			continue
		}
		if account.RequestHardwareStandby {
			hardwareN++
		}
	}

	if !found && len(accounts) >= domain.MaxAccounts {
		return domain.AccountConfig{}, fmt.Errorf("%w: at most %d accounts", domain.ErrAccountLimit, domain.MaxAccounts)
	}
	if cmd.RequestHardwareStandby && hardwareN >= domain.MaxHardwareSlots {
		return domain.AccountConfig{}, fmt.Errorf("%w: at most %d accounts", domain.ErrHardwareSlotLimit, domain.MaxHardwareSlots)
	}

	account := existing
	if !found {
		account = domain.AccountConfig{ID: cmd.ID, State: domain.AccountStateDisabled}
	}
	account.Title = cmd.Title
	account.Color = cmd.Color
	account.JID = cmd.JID
	account.Host = cmd.Host
	account.Port = cmd.Port
	account.TLS = cmd.TLS
	account.Mechanisms = cmd.Mechanisms
	account.RequestHardwareStandby = cmd.RequestHardwareStandby
	account.ApplyDefaults()

	if account.Title == "" {
		account.Title = string(account.ID)
	}
	if !found || !account.ConnectionRelevantEqual(existing) {
		account.SettingsChanged = true
	}

	if err := s.repo.Save(ctx, account); err != nil {
		return domain.AccountConfig{}, fmt.Errorf("save account: %w", err)
	}

	return account, nil
}

// SetEnabled changes the desired state. Enabling clears force-disabled.
func (s *Service) SetEnabled(ctx context.Context, id domain.AccountID, enabled bool) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	state := domain.AccountStateDisabled
	if enabled {
		state = domain.AccountStateEnabled
		account.ForceDisabled = false
	}
	if account.State != state {
		account.State = state
		account.SettingsChanged = true
	}

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account state: %w", err)
	}

	return nil
}

// RemoveAccount deletes the account and its stored credential. If the
// credential cannot be deleted the account is restored.
func (s *Service) RemoveAccount(ctx context.Context, id domain.AccountID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if account.CredentialRef == "" {
		return nil
	}

	if err := s.store.Delete(ctx, account.CredentialRef); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		if restoreErr := s.repo.Save(ctx, account); restoreErr != nil {
			return fmt.Errorf("delete account credential and restore account: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("delete account credential: %w", err)
	}

	return nil
}

// SetAuth stores the credential under secretKey and points the account at
// it. An empty secretKey means the account's password reference; any other
// reference must name the same account. A previously referenced credential
// is deleted afterwards.
func (s *Service) SetAuth(ctx context.Context, id domain.AccountID, secretKey, secretValue string) error {
	ref, err := credentialRefFor(id, secretKey)
	if err != nil {
		return err
	}
	secretKey = ref.String()

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}
	originalAccount := account
	previousRef := account.CredentialRef

	if err := s.store.Put(ctx, secretKey, secretValue); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}

	account.CredentialRef = secretKey
	account.SettingsChanged = true

	if err := s.repo.Save(ctx, account); err != nil {
		if rollbackErr := s.store.Delete(ctx, secretKey); rollbackErr != nil {
			return fmt.Errorf("save account credential and rollback stored secret: %w", errors.Join(err, rollbackErr))
		}

		return fmt.Errorf("save account credential: %w", err)
	}

	if previousRef == "" || previousRef == secretKey {
		return nil
	}

	if err := s.store.Delete(ctx, previousRef); err != nil {
		var rollbackErr error
		if restoreErr := s.repo.Save(ctx, originalAccount); restoreErr != nil {
			rollbackErr = errors.Join(rollbackErr, restoreErr)
		}
		if newSecretDeleteErr := s.store.Delete(ctx, secretKey); newSecretDeleteErr != nil {
			rollbackErr = errors.Join(rollbackErr, newSecretDeleteErr)
		}
		if rollbackErr != nil {
			return fmt.Errorf("delete previous credential and rollback credential update: %w", errors.Join(err, rollbackErr))
		}
		return fmt.Errorf("delete previous credential: %w", err)
	}

	return nil
}

func credentialRefFor(id domain.AccountID, secretKey string) (domain.CredentialRef, error) {
	if strings.TrimSpace(secretKey) == "" {
		return domain.PasswordRef(id), nil
	}
	ref, err := domain.ParseCredentialRef(secretKey)
	if err != nil {
		return domain.CredentialRef{}, err
	}
	if ref.Account != id {
		return domain.CredentialRef{}, fmt.Errorf("%w: %s is not under %s", ErrForeignCredential, ref, domain.PasswordRef(id).Account)
	}
	return ref, nil
}

func (s *Service) RemoveAuth(ctx context.Context, id domain.AccountID) error {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get account by id: %w", err)
	}
	originalAccount := account

	secretRef := account.CredentialRef
	if secretRef == "" {
		return nil
	}

	account.CredentialRef = ""
	account.SettingsChanged = true

	if err := s.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account credential: %w", err)
	}

	if err := s.store.Delete(ctx, secretRef); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		if restoreErr := s.repo.Save(ctx, originalAccount); restoreErr != nil {
			return fmt.Errorf("delete credential and restore account: %w", errors.Join(err, restoreErr))
		}
		return fmt.Errorf("delete credential: %w", err)
	}

	return nil
}

func (s *Service) SetPresence(ctx context.Context, presence domain.Presence) error {
	if err := s.repo.SetPresence(ctx, presence); err != nil {
		return fmt.Errorf("save presence: %w", err)
	}
	return nil
}

func (s *Service) GetStatus(ctx context.Context, id domain.AccountID) (Status, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Status{}, fmt.Errorf("get account by id: %w", err)
	}

	return statusFromAccount(account), nil
}

func (s *Service) Overview(ctx context.Context) (Overview, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list accounts: %w", err)
	}

	presence, err := s.repo.Presence(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("read presence: %w", err)
	}

	statuses := make([]Status, 0, len(accounts))
	for _, account := range accounts {
		statuses = append(statuses, statusFromAccount(account))
	}

	return Overview{Presence: presence, Accounts: statuses}, nil
}

func statusFromAccount(account domain.AccountConfig) Status {
	return Status{
		Account:       account,
		HasCredential: account.CredentialRef != "",
	}
}
