package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	DataPath   string        `mapstructure:"data_path"`

	JoinTimeout    time.Duration `mapstructure:"join_timeout"`
	SyncTolerance  float64       `mapstructure:"sync_tolerance"`
	SyncQuorum     float64       `mapstructure:"sync_quorum"`
	SyncMinReports int           `mapstructure:"sync_min_reports"`

	ChatRateLimit  int           `mapstructure:"chat_rate_limit"`
	ChatRateWindow time.Duration `mapstructure:"chat_rate_window"`
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
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("data_path", "")
	v.SetDefault("join_timeout", "10s")
	v.SetDefault("sync_tolerance", 3.0)
	v.SetDefault("sync_quorum", 0.8)
	v.SetDefault("sync_min_reports", 2)
	v.SetDefault("chat_rate_limit", 10)
	v.SetDefault("chat_rate_window", "10s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
