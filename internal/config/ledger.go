package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// LedgerConfig holds reconciliation settings that can change at runtime.
type LedgerConfig struct {
	// ZeroMemberPolicy is "floor" or "suppress".
	ZeroMemberPolicy string `mapstructure:"zeroMemberPolicy"`
	// DisplayScale is the number of decimal places used for rounded display fields.
	DisplayScale int32 `mapstructure:"displayScale"`
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		ZeroMemberPolicy: "floor",
		DisplayScale:     2,
	}
}

type LedgerConfigHolder struct {
	current atomic.Value // holds LedgerConfig
}

// NewStaticLedgerConfigHolder returns a holder that never reloads.
func NewStaticLedgerConfigHolder(cfg LedgerConfig) *LedgerConfigHolder {
	holder := &LedgerConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewLedgerConfigHolder reads ledger.yml and reloads it whenever it changes.
// A missing file falls back to defaults.
func NewLedgerConfigHolder(cfg Config, log *zap.Logger) (*LedgerConfigHolder, error) {
	log = log.Named("config.ledger")
	v := viper.New()

	if path := strings.TrimSpace(cfg.LedgerConfigPath); path != "" {
		v.SetConfigFile(filepath.Clean(path))
	} else {
		v.SetConfigName("ledger")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/messledger")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MESSLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLedgerConfig()
	v.SetDefault("ledger.zeroMemberPolicy", defaults.ZeroMemberPolicy)
	v.SetDefault("ledger.displayScale", defaults.DisplayScale)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Info("ledger config file not found, using defaults")
		fileLoaded = false
	}

	var ledgerCfg LedgerConfig
	if err := v.UnmarshalKey("ledger", &ledgerCfg); err != nil {
		return nil, err
	}
	if err := validateLedgerConfig(ledgerCfg); err != nil {
		return nil, err
	}

	holder := NewStaticLedgerConfigHolder(ledgerCfg)
	if !fileLoaded {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LedgerConfig
		if err := v.UnmarshalKey("ledger", &updated); err != nil {
			log.Warn("ledger config reload failed", zap.Error(err))
			return
		}
		if err := validateLedgerConfig(updated); err != nil {
			log.Warn("invalid ledger config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("ledger config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *LedgerConfigHolder) Get() LedgerConfig {
	return h.current.Load().(LedgerConfig)
}

func validateLedgerConfig(cfg LedgerConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.ZeroMemberPolicy)) {
	case "floor", "suppress":
	default:
		return errors.New("ledger.zeroMemberPolicy must be floor or suppress")
	}
	if cfg.DisplayScale < 0 || cfg.DisplayScale > 8 {
		return errors.New("ledger.displayScale must be between 0 and 8")
	}
	return nil
}
