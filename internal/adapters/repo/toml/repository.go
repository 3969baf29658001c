package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/chatlink/internal/domain"
	"github.com/bnema/chatlink/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName         = "config"
	configType         = "toml"
	accountsPathKey    = "accounts.path"
	accountsFileMode   = 0o600
	accountsDirMode    = 0o700
	accountsConfigDir  = ".chatlink"
	accountsConfigFile = "accounts.toml"
	tempFilePattern    = ".accounts-*.toml.tmp"
)

type Repository struct {
	accountsPath string
	mu           *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var (
	_ ports.AccountRepository  = (*Repository)(nil)
	_ ports.ConfigurationStore = (*Repository)(nil)
)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, accountsConfigDir, accountsConfigFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, accountsConfigDir))
	cfg.SetDefault(accountsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	accountsPath := cfg.GetString(accountsPathKey)
	if accountsPath == "" {
		return nil, errors.New("accounts path is empty")
	}
	accountsPath, err = normalizeAccountsPath(accountsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{accountsPath: accountsPath, mu: lockForPath(accountsPath)}, nil
}

func (r *Repository) Path() string {
	return r.accountsPath
}

func (r *Repository) Save(ctx context.Context, account domain.AccountConfig) error {
	return r.update(ctx, func(file *fileSchema) error {
		encoded := toSchema(account)
		for i := range file.Accounts {
			if file.Accounts[i].ID == encoded.ID {
				file.Accounts[i] = encoded
				return nil
			}
		}

		file.Accounts = append(file.Accounts, encoded)
		return nil
	})
}

func (r *Repository) Delete(ctx context.Context, id domain.AccountID) error {
	return r.update(ctx, func(file *fileSchema) error {
		for i := range file.Accounts {
			if file.Accounts[i].ID == string(id) {
				file.Accounts = append(file.Accounts[:i], file.Accounts[i+1:]...)
				return nil
			}
		}
		return domain.ErrAccountNotFound
	})
}

// ResetChanged clears the settings-changed flag. The file is only rewritten
// when the flag was set.
func (r *Repository) ResetChanged(ctx context.Context, id domain.AccountID) error {
	return r.updateAccount(ctx, id, func(account *accountSchema) bool {
		if !account.SettingsChanged {
			return false
		}
		account.SettingsChanged = false
		return true
	})
}

func (r *Repository) Deactivate(ctx context.Context, id domain.AccountID) error {
	return r.updateAccount(ctx, id, func(account *accountSchema) bool {
		if account.State == string(domain.AccountStateDisabled) && account.ForceDisabled {
			return false
		}
		account.State = string(domain.AccountStateDisabled)
		account.ForceDisabled = true
		account.SettingsChanged = true
		return true
	})
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.AccountConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.AccountConfig{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.AccountConfig{}, err
	}

	for _, entry := range file.Accounts {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.AccountConfig{}, domain.ErrAccountNotFound
}

func (r *Repository) List(ctx context.Context) ([]domain.AccountConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.AccountConfig, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, fromSchema(entry))
	}

	return accounts, nil
}

func (r *Repository) Presence(ctx context.Context) (domain.Presence, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return "", err
	}

	presence, err := domain.ParsePresence(file.Presence)
	if err != nil {
		return "", fmt.Errorf("decode presence: %w", err)
	}
	return presence, nil
}

func (r *Repository) SetPresence(ctx context.Context, presence domain.Presence) error {
	if _, err := domain.ParsePresence(string(presence)); err != nil {
		return err
	}
	return r.update(ctx, func(file *fileSchema) error {
		file.Presence = string(presence)
		return nil
	})
}

func (r *Repository) update(ctx context.Context, mutate func(*fileSchema) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	if err := mutate(&file); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) updateAccount(ctx context.Context, id domain.AccountID, mutate func(*accountSchema) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	for i := range file.Accounts {
		if file.Accounts[i].ID != string(id) {
			continue
		}
		if !mutate(&file.Accounts[i]) {
			return nil
		}
		return r.writeSchema(file)
	}

	return domain.ErrAccountNotFound
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.accountsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read accounts file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode accounts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeAccountsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve accounts path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.accountsPath), accountsDirMode); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode accounts file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.accountsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp accounts file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp accounts file: %w", err)
	}

	if err := tempFile.Chmod(accountsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp accounts file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp accounts file: %w", err)
	}

	if err := os.Rename(tempName, r.accountsPath); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.accountsPath, accountsFileMode); err != nil {
		return fmt.Errorf("chmod accounts file: %w", err)
	}

	return nil
}

func toSchema(account domain.AccountConfig) accountSchema {
	account.ApplyDefaults()

	return accountSchema{
		ID:                     string(account.ID),
		Title:                  account.Title,
		Color:                  account.Color,
		JID:                    account.JID,
		Host:                   account.Host,
		Port:                   account.Port,
		CredentialRef:          account.CredentialRef,
		TLS:                    string(account.TLS),
		Mechanisms:             account.Mechanisms.Names(),
		State:                  string(account.State),
		RequestHardwareStandby: account.RequestHardwareStandby,
		SettingsChanged:        account.SettingsChanged,
		ForceDisabled:          account.ForceDisabled,
	}
}

// fromSchema is lenient: unknown TLS modes, mechanisms or states fall back
// to defaults so that one bad entry does not hide the others.
func fromSchema(account accountSchema) domain.AccountConfig {
	tls, err := domain.ParseTLSMode(account.TLS)
	if err != nil {
		tls = domain.TLSModeNone
	}

	mechanisms, err := domain.ParseMechanisms(account.Mechanisms)
	if err != nil {
		mechanisms = domain.MechanismNone
	}

	state, _ := domain.ParseAccountState(account.State)

	config := domain.AccountConfig{
		ID:                     domain.AccountID(account.ID),
		Title:                  account.Title,
		Color:                  account.Color,
		JID:                    account.JID,
		Host:                   account.Host,
		Port:                   account.Port,
		CredentialRef:          account.CredentialRef,
		TLS:                    tls,
		Mechanisms:             mechanisms,
		State:                  state,
		RequestHardwareStandby: account.RequestHardwareStandby,
		SettingsChanged:        account.SettingsChanged,
		ForceDisabled:          account.ForceDisabled,
	}
	config.ApplyDefaults()
	return config
}
