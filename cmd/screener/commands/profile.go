package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// profile is the optional per-user CLI settings file.
// Precedence: explicit flags > profile > environment config > built-in defaults.
type profile struct {
	APIURL   string `mapstructure:"api_url"`
	Preset   string `mapstructure:"preset"`
	PageSize int    `mapstructure:"page_size"`
	NoColor  bool   `mapstructure:"no_color"`
}

// loadProfile reads the profile.
// Search order without --config:
//  1. ./screener.yaml
//  2. ~/.config/screener/screener.yaml
//
// SCREENER_<KEY> environment variables override file values.
func loadProfile(path string) (*profile, error) {
	v := viper.New()

	v.SetDefault("api_url", "")
	v.SetDefault("preset", "")
	v.SetDefault("page_size", 0)
	v.SetDefault("no_color", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("screener")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "screener"))
		}
	}

	v.SetEnvPrefix("SCREENER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 명시적으로 지정한 파일은 반드시 있어야 함
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read profile: %w", err)
		}
	}

	var p profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	// 프리셋 경로는 프로필 파일 기준 상대경로
	if p.Preset != "" && !filepath.IsAbs(p.Preset) && v.ConfigFileUsed() != "" {
		p.Preset = filepath.Join(filepath.Dir(v.ConfigFileUsed()), p.Preset)
	}

	return &p, nil
}
