// Package catalogconfig loads catalogd's startup configuration: the
// backing-store connection, the secret-store backend, and server listen
// settings. It follows the donor project's viper-based config idiom
// (env-var binding with a prefix, YAML file, explicit defaults) rather
// than the donor's own internal/config package, which is saturated with
// issue-tracker-specific settings that don't generalize to this domain.
package catalogconfig

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is catalogd's full startup configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Secrets SecretsConfig `mapstructure:"secrets"`
}

type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen-addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type StoreConfig struct {
	ServerMode     bool   `mapstructure:"server-mode"`
	Path           string `mapstructure:"path"`
	Database       string `mapstructure:"database"`
	ServerHost     string `mapstructure:"server-host"`
	ServerPort     int    `mapstructure:"server-port"`
	ServerUser     string `mapstructure:"server-user"`
	ServerPassword string `mapstructure:"server-password"`
	MaxOpenConns   int    `mapstructure:"max-open-conns"`
	MaxIdleConns   int    `mapstructure:"max-idle-conns"`
}

type SecretsConfig struct {
	// Backend selects "memory" (test/dev only) or "vault".
	Backend    string `mapstructure:"backend"`
	VaultAddr  string `mapstructure:"vault-addr"`
	VaultMount string `mapstructure:"vault-mount"`
	VaultToken string `mapstructure:"vault-token"`
}

// Load builds the config from (in increasing precedence) defaults, an
// optional YAML file at path, and CATALOGD_-prefixed environment
// variables, mirroring the donor's own env-override-over-file precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("server.listen-addr", "0.0.0.0:8181")
	v.SetDefault("server.shutdown-timeout", "15s")
	v.SetDefault("store.server-mode", false)
	v.SetDefault("store.path", "./catalogd-data")
	v.SetDefault("store.database", "catalogd")
	v.SetDefault("store.server-host", "127.0.0.1")
	v.SetDefault("store.server-port", 3306)
	v.SetDefault("store.server-user", "root")
	v.SetDefault("store.max-open-conns", 16)
	v.SetDefault("store.max-idle-conns", 4)
	v.SetDefault("secrets.backend", "memory")
	v.SetDefault("secrets.vault-mount", "secret")

	v.SetEnvPrefix("CATALOGD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("catalogconfig: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("catalogconfig: unmarshal: %w", err)
	}
	return &cfg, nil
}
