package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/rentsoft/internal/calendar"
	"github.com/smallbiznis/rentsoft/internal/proration"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// StatementConfig tunes statement computation. It is reloaded at runtime
// when statement.yml changes.
type StatementConfig struct {
	DefaultTimeZone               string        `mapstructure:"defaultTimeZone"`
	DefaultMonthlyProrationMethod string        `mapstructure:"defaultMonthlyProrationMethod"`
	SegmentLimit                  int           `mapstructure:"segmentLimit"`
	Concurrency                   int           `mapstructure:"concurrency"`
	SettingsTTL                   time.Duration `mapstructure:"settingsTTL"`
	YearTotalsTTL                 time.Duration `mapstructure:"yearTotalsTTL"`
}

func DefaultStatementConfig() StatementConfig {
	return StatementConfig{
		DefaultTimeZone:               "UTC",
		DefaultMonthlyProrationMethod: string(proration.MonthlyByHours),
		SegmentLimit:                  calendar.DefaultSegmentLimit,
		Concurrency:                   8,
		SettingsTTL:                   time.Minute,
		YearTotalsTTL:                 10 * time.Minute,
	}
}

type StatementConfigHolder struct {
	current atomic.Value // holds StatementConfig
}

// NewStatementConfigHolder reads statement.yml from the standard locations,
// falling back to defaults when no file exists, and watches it for changes.
func NewStatementConfigHolder(log *zap.Logger) (*StatementConfigHolder, error) {
	return loadStatementConfig(log, "/var/lib/rentsoft/config", "/etc/rentsoft", ".")
}

// NewStaticStatementConfigHolder returns a holder that never reloads.
func NewStaticStatementConfigHolder(cfg StatementConfig) *StatementConfigHolder {
	holder := &StatementConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func loadStatementConfig(log *zap.Logger, paths ...string) (*StatementConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("statement-config")

	v := viper.New()
	v.SetConfigName("statement")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("RENTSOFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Binding each key makes RENTSOFT_STATEMENT_<KEY> visible to Unmarshal.
	defaults := DefaultStatementConfig()
	for key, value := range map[string]any{
		"statement.defaultTimeZone":               defaults.DefaultTimeZone,
		"statement.defaultMonthlyProrationMethod": defaults.DefaultMonthlyProrationMethod,
		"statement.segmentLimit":                  defaults.SegmentLimit,
		"statement.concurrency":                   defaults.Concurrency,
		"statement.settingsTTL":                   defaults.SettingsTTL,
		"statement.yearTotalsTTL":                 defaults.YearTotalsTTL,
	} {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeStatementConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticStatementConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeStatementConfig(v)
		if err != nil {
			log.Warn("invalid statement config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("statement config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

type statementFile struct {
	Statement StatementConfig `mapstructure:"statement"`
}

// decodeStatementConfig merges file values, env overrides and defaults.
// Keys missing from the file keep their defaults.
func decodeStatementConfig(v *viper.Viper) (StatementConfig, error) {
	file := statementFile{Statement: DefaultStatementConfig()}
	if err := v.Unmarshal(&file); err != nil {
		return StatementConfig{}, err
	}
	cfg := file.Statement
	if err := validateStatementConfig(cfg); err != nil {
		return StatementConfig{}, err
	}
	cfg.DefaultTimeZone = calendar.NormalizeZoneName(cfg.DefaultTimeZone)
	return cfg, nil
}

func (h *StatementConfigHolder) Get() StatementConfig {
	return h.current.Load().(StatementConfig)
}

func validateStatementConfig(cfg StatementConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.DefaultMonthlyProrationMethod)) {
	case string(proration.MonthlyByDays), string(proration.MonthlyByHours):
	default:
		return fmt.Errorf("statement.defaultMonthlyProrationMethod %q is not days or hours", cfg.DefaultMonthlyProrationMethod)
	}
	if cfg.SegmentLimit <= 0 {
		return errors.New("statement.segmentLimit must be positive")
	}
	if cfg.Concurrency <= 0 {
		return errors.New("statement.concurrency must be positive")
	}
	if cfg.SettingsTTL < 0 || cfg.YearTotalsTTL < 0 {
		return errors.New("statement cache TTLs cannot be negative")
	}
	return nil
}
