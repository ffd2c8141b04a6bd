package types

import (
	"errors"
	"time"
)

// Config holds everything the bridge needs to connect to its engines,
// serve requests and write backups.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Mongo  MongoConfig  `mapstructure:"mongo" yaml:"mongo"`
	SQLite SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
	Backup BackupConfig `mapstructure:"backup" yaml:"backup"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// ServerConfig configures the HTTP dispatcher.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// MongoConfig holds the document engine connection parameters.
type MongoConfig struct {
	URL  string `mapstructure:"url" yaml:"url"`
	Name string `mapstructure:"name" yaml:"name"`
}

// SQLiteConfig holds the relational engine database file path.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// BackupConfig says where backups go and which collections they skip.
type BackupConfig struct {
	Dir          string   `mapstructure:"dir" yaml:"dir"`
	MetaFile     string   `mapstructure:"meta_file" yaml:"meta_file"`
	SkipPrefixes []string `mapstructure:"skip_prefixes" yaml:"skip_prefixes"`
}

// LogConfig selects the log level and encoder.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Config validation errors.
var (
	ErrMongoURLEmpty   = errors.New("mongo url must not be empty")
	ErrMongoNameEmpty  = errors.New("mongo database name must not be empty")
	ErrSQLitePathEmpty = errors.New("sqlite path must not be empty")
	ErrBackupDirEmpty  = errors.New("backup dir must not be empty")
	ErrMetaFileEmpty   = errors.New("backup meta file must not be empty")
	ErrTimeoutNegative = errors.New("request timeout must not be negative")
	ErrLogLevelUnknown = errors.New("unknown log level")
)

var knownLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the Config is well-formed and returns one of the
// sentinel errors above on failure.
func (c Config) Validate() error {
	if c.Mongo.URL == "" {
		return ErrMongoURLEmpty
	}
	if c.Mongo.Name == "" {
		return ErrMongoNameEmpty
	}
	if c.SQLite.Path == "" {
		return ErrSQLitePathEmpty
	}
	if c.Backup.Dir == "" {
		return ErrBackupDirEmpty
	}
	if c.Backup.MetaFile == "" {
		return ErrMetaFileEmpty
	}
	if c.Server.RequestTimeout < 0 {
		return ErrTimeoutNegative
	}
	if c.Log.Level != "" && !knownLogLevels[c.Log.Level] {
		return ErrLogLevelUnknown
	}
	return nil
}
