package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// IntelligenceConfig controls engagement risk banding. Days are measured
// from a client's last observed activity.
type IntelligenceConfig struct {
	// GreenMaxDays is the last day (inclusive) still considered green.
	GreenMaxDays int `mapstructure:"greenMaxDays"`
	// YellowMaxDays is the last day (inclusive) still considered yellow.
	// Anything beyond it, or a client with no activity at all, is red.
	YellowMaxDays int `mapstructure:"yellowMaxDays"`
}

func DefaultIntelligenceConfig() IntelligenceConfig {
	return IntelligenceConfig{
		GreenMaxDays:  2,
		YellowMaxDays: 5,
	}
}

// IntelligenceConfigHolder serves the current config and hot-reloads it
// when intelligence.yml changes on disk.
type IntelligenceConfigHolder struct {
	current atomic.Value // holds IntelligenceConfig
}

func NewIntelligenceConfigHolder() (*IntelligenceConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("intelligence")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/nutrikit/config")
	v.AddConfigPath("/etc/nutrikit")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NUTRIKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultIntelligenceConfig()
	v.SetDefault("intelligence.greenMaxDays", defaults.GreenMaxDays)
	v.SetDefault("intelligence.yellowMaxDays", defaults.YellowMaxDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg IntelligenceConfig
	if err := v.UnmarshalKey("intelligence", &cfg); err != nil {
		return nil, err
	}
	if err := validateIntelligenceConfig(cfg); err != nil {
		return nil, err
	}

	holder := &IntelligenceConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated IntelligenceConfig
		if err := v.UnmarshalKey("intelligence", &updated); err != nil {
			log.Printf("[intelligence-config] reload failed: %v", err)
			return
		}
		if err := validateIntelligenceConfig(updated); err != nil {
			log.Printf("[intelligence-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[intelligence-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticIntelligenceHolder pins the holder to a fixed config with no
// file watching. Used in tests.
func NewStaticIntelligenceHolder(cfg IntelligenceConfig) *IntelligenceConfigHolder {
	holder := &IntelligenceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *IntelligenceConfigHolder) Get() IntelligenceConfig {
	if h == nil {
		return DefaultIntelligenceConfig()
	}
	if cfg, ok := h.current.Load().(IntelligenceConfig); ok {
		return cfg
	}
	return DefaultIntelligenceConfig()
}

func validateIntelligenceConfig(cfg IntelligenceConfig) error {
	if cfg.GreenMaxDays < 0 || cfg.YellowMaxDays < 0 {
		return errors.New("risk thresholds must be non-negative")
	}
	if cfg.YellowMaxDays <= cfg.GreenMaxDays {
		return errors.New("yellowMaxDays must be greater than greenMaxDays")
	}
	return nil
}
