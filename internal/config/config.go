package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	ReadLimit  int64  `mapstructure:"read_limit"`
	Secret     string `mapstructure:"secret"`

	ProbeInterval     time.Duration `mapstructure:"probe_interval"`
	HostGrace         time.Duration `mapstructure:"host_grace"`
	FollowerGrace     time.Duration `mapstructure:"follower_grace"`
	ChunkInterval     time.Duration `mapstructure:"chunk_interval"`
	DiscoveryInterval time.Duration `mapstructure:"discovery_interval"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	SendBuffer        int           `mapstructure:"send_buffer"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("probe_interval", "3s")
	v.SetDefault("host_grace", "10s")
	v.SetDefault("follower_grace", "5s")
	v.SetDefault("chunk_interval", "50ms")
	v.SetDefault("discovery_interval", "5s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 256)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
