package config

import (
	"fmt"
	"strings"
)

// StoreMode selects the token-store backend.
type StoreMode string

const (
	// StoreModeFile keeps tokens in a JSON document under the user config dir.
	StoreModeFile StoreMode = "file"
	// StoreModeRedis keeps tokens in Redis (kiosk / shared-terminal deployments).
	StoreModeRedis StoreMode = "redis"
	// StoreModeMemory keeps tokens in process memory only.
	StoreModeMemory StoreMode = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreMode.
func (s *StoreMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "file", "redis", "memory":
		*s = StoreMode(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreMode: %q (valid options: file, redis, memory)", v)
	}
}

// RedisConfig contains Redis connection settings for the redis token store.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// StoreConfig contains token-store configuration.
type StoreConfig struct {
	// Mode selects the backend.
	Mode StoreMode `env:"TOKEN_STORE" envDefault:"file"`

	// Path overrides the token file location (file mode). Empty means
	// <user config dir>/fieldlink/tokens.json.
	Path string `env:"TOKEN_STORE_PATH" envDefault:""`

	// Namespace prefixes the persisted keys so several deployments can
	// share one Redis instance.
	Namespace string `env:"TOKEN_STORE_NAMESPACE" envDefault:"fieldlink"`

	// Redis connection settings (redis mode).
	Redis RedisConfig `envPrefix:"REDIS_"`
}
