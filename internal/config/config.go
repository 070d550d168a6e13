package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = EnvLocal
	defaultConfigDir     = ".careline"
)

type Config struct {
	Env            string `mapstructure:"app_env"`
	ServerAddress  string `mapstructure:"server_address"`
	LogLevel       string `mapstructure:"log_level"`
	ConfigDir      string `mapstructure:"config_dir"`
	DataPath       string `mapstructure:"data_path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	DeviceID       string `mapstructure:"device_id"`

	// Sync tuning, all in seconds.
	SyncInterval  int `mapstructure:"sync_interval_seconds"`
	ProbeInterval int `mapstructure:"probe_interval_seconds"`
	ActionTimeout int `mapstructure:"action_timeout_seconds"`

	MaxRetries   int `mapstructure:"max_retries"`
	HistoryLimit int `mapstructure:"history_limit"`

	// Comma-separated field=strategy pairs for automatic conflict
	// resolution, e.g. "note_text=client-wins,recorded_at=newest-timestamp-wins".
	ConflictPolicies string `mapstructure:"conflict_policies"`

	EnableTLS bool `mapstructure:"enable_tls"`
}

// MustLoad reads configuration from the environment, with an optional .env
// file on top, and panics on an unusable config.
func MustLoad() *Config {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("failed to load .env file: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("MIGRATIONS_PATH", "migrations")
	viper.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	viper.SetDefault("PROBE_INTERVAL_SECONDS", 10)
	viper.SetDefault("ACTION_TIMEOUT_SECONDS", 15)
	viper.SetDefault("MAX_RETRIES", 5)
	viper.SetDefault("HISTORY_LIMIT", 50)
	viper.SetDefault("CONFLICT_POLICIES", "")
	viper.SetDefault("ENABLE_TLS", false)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("failed to create config directory: %v\n", err)
	}

	dataPath := viper.GetString("DATA_PATH")
	if dataPath == "" {
		dataPath = filepath.Join(configDir, "careline.db")
	}

	config := &Config{
		Env:              viper.GetString("APP_ENV"),
		ServerAddress:    viper.GetString("SERVER_ADDRESS"),
		LogLevel:         viper.GetString("LOG_LEVEL"),
		ConfigDir:        configDir,
		DataPath:         dataPath,
		MigrationsPath:   viper.GetString("MIGRATIONS_PATH"),
		DeviceID:         viper.GetString("DEVICE_ID"),
		SyncInterval:     viper.GetInt("SYNC_INTERVAL_SECONDS"),
		ProbeInterval:    viper.GetInt("PROBE_INTERVAL_SECONDS"),
		ActionTimeout:    viper.GetInt("ACTION_TIMEOUT_SECONDS"),
		MaxRetries:       viper.GetInt("MAX_RETRIES"),
		HistoryLimit:     viper.GetInt("HISTORY_LIMIT"),
		ConflictPolicies: viper.GetString("CONFLICT_POLICIES"),
		EnableTLS:        viper.GetBool("ENABLE_TLS"),
	}

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}

	return config
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address must not be empty")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync_interval_seconds must be positive")
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
