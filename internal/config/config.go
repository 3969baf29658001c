// Package config resolves runtime settings from ~/.chatlink/config.toml and
// CHATLINK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".chatlink"
	envPrefix  = "CHATLINK"
)

const (
	KeyAccountsPath          = "accounts.path"
	KeyQueuePath             = "queue.path"
	KeySecretsPath           = "secrets.path"
	KeyRetryDelay            = "session.retry_delay"
	KeyLockTimeout           = "session.lock_timeout"
	KeyMaxRetryPasses        = "session.max_retry_passes"
	KeyProcessingTimeout     = "session.processing_timeout"
	KeyKeepAliveInterval     = "keepalive.interval"
	KeyKeepAliveMinInterval  = "keepalive.min_interval"
	KeyStandbyHardwareSlots  = "standby.hardware_slots"
	KeyLifecycleDelay        = "lifecycle.delay"
	KeyLogLevel              = "log.level"
	defaultRetryDelay        = 3 * time.Second
	defaultLockTimeout       = 4 * time.Second
	defaultMaxRetryPasses    = 5
	defaultProcessingTimeout = 4 * time.Second
	defaultKeepAlive         = 15 * time.Minute
	defaultKeepAliveMin      = time.Minute
	defaultHardwareSlots     = 2
	defaultLifecycleDelay    = 3 * time.Second
)

type Settings struct {
	AccountsPath         string
	QueuePath            string
	SecretsPath          string
	RetryDelay           time.Duration
	LockTimeout          time.Duration
	MaxRetryPasses       int
	ProcessingTimeout    time.Duration
	KeepAliveInterval    time.Duration
	KeepAliveMinInterval time.Duration
	HardwareSlots        int
	LifecycleDelay       time.Duration
	LogLevel             string
}

// Load applies defaults to cfg, reads the optional config file and returns
// the resolved settings. A nil cfg uses a fresh viper instance.
func Load(cfg *viper.Viper) (Settings, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Settings{}, fmt.Errorf("resolve home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, configDir)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(baseDir)
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetDefault(KeyAccountsPath, filepath.Join(baseDir, "accounts.toml"))
	cfg.SetDefault(KeyQueuePath, filepath.Join(baseDir, "queue.db"))
	cfg.SetDefault(KeySecretsPath, filepath.Join(baseDir, "secrets"))
	cfg.SetDefault(KeyRetryDelay, defaultRetryDelay)
	cfg.SetDefault(KeyLockTimeout, defaultLockTimeout)
	cfg.SetDefault(KeyMaxRetryPasses, defaultMaxRetryPasses)
	cfg.SetDefault(KeyProcessingTimeout, defaultProcessingTimeout)
	cfg.SetDefault(KeyKeepAliveInterval, defaultKeepAlive)
	cfg.SetDefault(KeyKeepAliveMinInterval, defaultKeepAliveMin)
	cfg.SetDefault(KeyStandbyHardwareSlots, defaultHardwareSlots)
	cfg.SetDefault(KeyLifecycleDelay, defaultLifecycleDelay)
	cfg.SetDefault(KeyLogLevel, "info")

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
	}

	settings := Settings{
		AccountsPath:         cfg.GetString(KeyAccountsPath),
		QueuePath:            cfg.GetString(KeyQueuePath),
		SecretsPath:          cfg.GetString(KeySecretsPath),
		RetryDelay:           cfg.GetDuration(KeyRetryDelay),
		LockTimeout:          cfg.GetDuration(KeyLockTimeout),
		MaxRetryPasses:       cfg.GetInt(KeyMaxRetryPasses),
		ProcessingTimeout:    cfg.GetDuration(KeyProcessingTimeout),
		KeepAliveInterval:    cfg.GetDuration(KeyKeepAliveInterval),
		KeepAliveMinInterval: cfg.GetDuration(KeyKeepAliveMinInterval),
		HardwareSlots:        cfg.GetInt(KeyStandbyHardwareSlots),
		LifecycleDelay:       cfg.GetDuration(KeyLifecycleDelay),
		LogLevel:             cfg.GetString(KeyLogLevel),
	}

	if err := settings.validate(); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

func (s Settings) validate() error {
	if strings.TrimSpace(s.AccountsPath) == "" {
		return errors.New("accounts path is empty")
	}
	if strings.TrimSpace(s.QueuePath) == "" {
		return errors.New("queue path is empty")
	}
	if s.MaxRetryPasses < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyMaxRetryPasses, s.MaxRetryPasses)
	}
	if s.KeepAliveMinInterval > s.KeepAliveInterval {
		return fmt.Errorf("%s (%s) exceeds %s (%s)", KeyKeepAliveMinInterval, s.KeepAliveMinInterval, KeyKeepAliveInterval, s.KeepAliveInterval)
	}
	if s.HardwareSlots < 0 {
		return fmt.Errorf("%s must not be negative", KeyStandbyHardwareSlots)
	}
	return nil
}
