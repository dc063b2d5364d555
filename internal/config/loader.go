package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"tronquery/internal/db"
	"tronquery/internal/tron"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// Config aggregates every runtime setting of the service.
type Config struct {
	DB             db.Config
	Server         ServerConfig
	Tron           tron.Config
	MigrationsPath string
}

// DefaultConfig returns the settings used when no config file or
// environment overrides exist.
func DefaultConfig() Config {
	return Config{
		DB: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Tron:           tron.DefaultConfig(),
		MigrationsPath: "./migrations",
	}
}

// Load reads config.yaml from configPath, with environment overrides.
func Load(configPath string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()              // allow environment overrides
	v.SetEnvPrefix("TRONQUERY")   // map env vars like TRONQUERY_DATABASE_HOST

	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("server.addr")
	v.BindEnv("tron.base_url")
	v.BindEnv("tron.api_key")
	v.BindEnv("migrations.path")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	// Override defaults if values exist
	if v.IsSet("database.host") {
		cfg.DB.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.DB.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.DB.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.DB.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DB.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.DB.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("tron.base_url") {
		cfg.Tron.BaseURL = v.GetString("tron.base_url")
	}
	if v.IsSet("tron.api_key") {
		cfg.Tron.APIKey = v.GetString("tron.api_key")
	}
	if v.IsSet("tron.timeout_seconds") {
		cfg.Tron.Timeout = time.Duration(v.GetInt("tron.timeout_seconds")) * time.Second
	}
	if v.IsSet("migrations.path") {
		cfg.MigrationsPath = v.GetString("migrations.path")
	}

	return cfg, nil
}
