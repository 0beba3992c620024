package matching

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const priorityKey = "reference_qualifier_priority"

// DefaultQualifierPriority is used when no matching configuration is
// available.
var DefaultQualifierPriority = []string{"1K", "D9", "F8", "9A"}

// Config holds matching preferences. It is loaded once and shared
// read-only by every Matcher.
type Config struct {
	ReferenceQualifierPriority []string `mapstructure:"reference_qualifier_priority" json:"reference_qualifier_priority"`
}

// DefaultConfig returns a Config carrying DefaultQualifierPriority.
func DefaultConfig() *Config {
	return &Config{
		ReferenceQualifierPriority: append([]string(nil), DefaultQualifierPriority...),
	}
}

// LoadConfig reads a JSON matching configuration from path. A blank path or
// a missing file yields DefaultConfig. An unreadable or malformed file also
// yields DefaultConfig, together with the error so the caller can log it.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return DefaultConfig(), fmt.Errorf("matching: read config %s: %w", path, err)
	}

	raw, ok := v.Get(priorityKey).([]interface{})
	if !ok {
		return DefaultConfig(), nil
	}

	cfg := &Config{}
	for _, q := range raw {
		s := strings.TrimSpace(fmt.Sprint(q))
		if s != "" {
			cfg.ReferenceQualifierPriority = append(cfg.ReferenceQualifierPriority, s)
		}
	}
	if len(cfg.ReferenceQualifierPriority) == 0 {
		return DefaultConfig(), nil
	}
	return cfg, nil
}
