package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ArchiveNone   = ""
	ArchiveRedis  = "redis"
	ArchiveSQLite = "sqlite"
)

type Config struct {
	LogLevel           string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	TCPPort            string        `yaml:"tcp-port" env:"TCP_PORT" env-default:"1234"`
	WSPort             string        `yaml:"ws-port" env:"WS_PORT"`
	HTTPPort           string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	ClockCheckInterval time.Duration `yaml:"clock-check-interval" env:"CLOCK_CHECK_INTERVAL" env-default:"1s"`
	AIThinkingDelay    time.Duration `yaml:"ai-thinking-delay" env:"AI_THINKING_DELAY" env-default:"1s"`
	FinishedGameTTL    time.Duration `yaml:"finished-game-ttl" env:"FINISHED_GAME_TTL" env-default:"10m"`
	CleanupInterval    time.Duration `yaml:"cleanup-interval" env:"CLEANUP_INTERVAL" env-default:"1m"`
	Archive            Archive       `yaml:"archive"`
	Redis              Redis         `yaml:"redis"`
	SQLiteStoragePath  string        `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"hexgame.db"`
}

// Archive selects where evicted games are kept. An empty driver keeps nothing.
type Archive struct {
	Driver    string        `yaml:"driver" env:"ARCHIVE_DRIVER"`
	ResultTTL time.Duration `yaml:"result-ttl" env:"ARCHIVE_RESULT_TTL" env-default:"168h"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load reads path, applies environment overrides and checks the archive driver.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	switch config.Archive.Driver {
	case ArchiveNone, ArchiveRedis, ArchiveSQLite:
	default:
		return nil, fmt.Errorf("unknown archive driver %q", config.Archive.Driver)
	}

	return config, nil
}

// GetRedisAddr returns host:port, or "" when no host is set.
func (that *Redis) GetRedisAddr() string {
	if that.Host == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
