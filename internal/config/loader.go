// Package config loads service settings from config.yaml, .env files and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rpattn/payrolldesk/internal/db"
)

// EnvPrefix prefixes every environment override, e.g. PAYROLL_SERVER_ADDR.
const EnvPrefix = "PAYROLL"

// Config is the complete service configuration.
type Config struct {
	Database db.Config
	Server   ServerConfig
	Upload   UploadConfig
	Log      LogConfig

	// Source is the config file that was read, empty when none was found.
	Source string
	// EnvFiles lists the .env files that were loaded.
	EnvFiles []string
}

type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string
}

type UploadConfig struct {
	BatchSize int
}

type LogConfig struct {
	Level  string
	Format string
}

var envFiles = []string{".env", ".env.local"}

// Legacy DB_* names are honoured alongside the PAYROLL_DATABASE_* ones.
var databaseEnv = map[string]string{
	"database.host":      "DB_HOST",
	"database.port":      "DB_PORT",
	"database.user":      "DB_USER",
	"database.password":  "DB_PASSWORD",
	"database.dbname":    "DB_NAME",
	"database.sslmode":   "DB_SSLMODE",
	"database.max_conns": "DB_MAX_CONNS",
}

func setDefaults(v *viper.Viper) {
	dbDefaults := db.DefaultConfig()
	v.SetDefault("database.host", dbDefaults.Host)
	v.SetDefault("database.port", dbDefaults.Port)
	v.SetDefault("database.user", dbDefaults.User)
	v.SetDefault("database.password", dbDefaults.Password)
	v.SetDefault("database.dbname", dbDefaults.DBName)
	v.SetDefault("database.sslmode", dbDefaults.SSLMode)
	v.SetDefault("database.max_conns", dbDefaults.MaxConns)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(32<<20))
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("upload.batch_size", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads .env files from configPath, then config.yaml, then applies
// environment overrides. A missing config file is not an error.
func Load(configPath string) (Config, error) {
	loaded, err := loadEnvFiles(configPath)
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range databaseEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := Config{EnvFiles: loaded}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		cfg.Source = v.ConfigFileUsed()
	}

	cfg.Database = db.Config{
		Host:     v.GetString("database.host"),
		Port:     v.GetInt("database.port"),
		User:     v.GetString("database.user"),
		Password: v.GetString("database.password"),
		DBName:   v.GetString("database.dbname"),
		SSLMode:  v.GetString("database.sslmode"),
		MaxConns: v.GetInt32("database.max_conns"),
	}
	cfg.Server = ServerConfig{
		Addr:           v.GetString("server.addr"),
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
		IdleTimeout:    v.GetDuration("server.idle_timeout"),
		MaxUploadBytes: v.GetInt64("server.max_upload_bytes"),
		AllowedOrigins: splitList(v.GetStringSlice("server.allowed_origins")),
	}
	cfg.Upload = UploadConfig{BatchSize: v.GetInt("upload.batch_size")}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDBConfig returns only the database section.
func LoadDBConfig(configPath string) (db.Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return db.Config{}, err
	}
	return cfg.Database, nil
}

func (c Config) validate() error {
	var errs []error
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("database.port %d out of range", c.Database.Port))
	}
	if strings.TrimSpace(c.Database.DBName) == "" {
		errs = append(errs, errors.New("database.dbname is required"))
	}
	if c.Upload.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("upload.batch_size must be positive, got %d", c.Upload.BatchSize))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	return errors.Join(errs...)
}

func loadEnvFiles(dir string) ([]string, error) {
	var existing []string
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	return existing, nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
