// Package config loads the bridge configuration from config.yaml, .env files
// and DBBRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/dbbridge/internal/backup"
	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "DBBRIDGE"
)

// Config keys.
const (
	KeyServerAddr     = "server.addr"
	KeyRequestTimeout = "server.request_timeout"
	KeyMongoURL       = "mongo.url"
	KeyMongoName      = "mongo.name"
	KeySQLitePath     = "sqlite.path"
	KeyBackupDir      = "backup.dir"
	KeyMetaFile       = "backup.meta_file"
	KeySkipPrefixes   = "backup.skip_prefixes"
	KeyLogLevel       = "log.level"
	KeyLogDevelopment = "log.development"
)

// Defaults returns the configuration used when nothing overrides it.
// dataDir anchors the sqlite file and backup directory.
func Defaults(dataDir string) types.Config {
	return types.Config{
		Server: types.ServerConfig{Addr: ":3000"},
		Mongo: types.MongoConfig{
			URL:  "mongodb://localhost:27017",
			Name: "dbbridge",
		},
		SQLite: types.SQLiteConfig{Path: filepath.Join(dataDir, "dbbridge.db")},
		Backup: types.BackupConfig{
			Dir:          filepath.Join(dataDir, "backups"),
			MetaFile:     "meta.json",
			SkipPrefixes: append([]string(nil), backup.DefaultSkipPrefixes...),
		},
		Log: types.LogConfig{Level: "info"},
	}
}

// Load reads config.yaml from configDir (a missing file is not an error),
// applies .env, .env.local and DBBRIDGE_* overrides, and validates the result.
func Load(configDir, dataDir string) (types.Config, error) {
	// .env files never override variables already set in the environment.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	setDefaults(v, Defaults(dataDir))

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault(KeyServerAddr, d.Server.Addr)
	v.SetDefault(KeyRequestTimeout, d.Server.RequestTimeout)
	v.SetDefault(KeyMongoURL, d.Mongo.URL)
	v.SetDefault(KeyMongoName, d.Mongo.Name)
	v.SetDefault(KeySQLitePath, d.SQLite.Path)
	v.SetDefault(KeyBackupDir, d.Backup.Dir)
	v.SetDefault(KeyMetaFile, d.Backup.MetaFile)
	v.SetDefault(KeySkipPrefixes, d.Backup.SkipPrefixes)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogDevelopment, d.Log.Development)
}

// WriteDefault writes config.yaml with default values into configDir unless
// the file already exists. It reports whether a file was written.
func WriteDefault(configDir, dataDir string) (string, bool, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", false, fmt.Errorf("create config directory: %w", err)
	}

	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return path, false, nil
	}
	if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(Defaults(dataDir))
	if err != nil {
		return "", false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", false, fmt.Errorf("write config: %w", err)
	}
	return path, true, nil
}
