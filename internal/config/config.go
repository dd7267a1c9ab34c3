package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/libmocap/mocap/pkg/core"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "mocap.cfg.json"

// LogConfig holds logging sinks
type LogConfig struct {
	Level          string `json:"logLevel" mapstructure:"logLevel"`
	Dir            string `json:"logsDir" mapstructure:"logsDir"`
	GraylogEnabled bool   `json:"graylogEnabled" mapstructure:"graylogEnabled"`
	GraylogAddress string `json:"graylogAddress" mapstructure:"graylogAddress"`
}

// ResolverConfig tunes derived marker resolution
type ResolverConfig struct {
	MaxDepth             int    `json:"maxDepth" mapstructure:"maxDepth"`
	ThreePointsRatioSign string `json:"threePointsRatioSign" mapstructure:"threePointsRatioSign"`
}

// Options converts the configuration to resolver options.
func (c ResolverConfig) Options() (core.ResolveOptions, error) {
	sign, err := core.ParseSign(c.ThreePointsRatioSign)
	if err != nil {
		return core.ResolveOptions{}, fmt.Errorf("resolver.threePointsRatioSign: %w", err)
	}
	return core.ResolveOptions{MaxDepth: c.MaxDepth, ThreePointsRatioSign: sign}, nil
}

// PaletteConfig seeds the colours generated for unknown palette indices
type PaletteConfig struct {
	Seed uint64 `json:"seed" mapstructure:"seed"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path      string `json:"path" mapstructure:"path"`
	BatchSize int    `json:"batchSize" mapstructure:"batchSize"`
	DumpPath  string `json:"dumpPath" mapstructure:"dumpPath"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host      string `json:"host" mapstructure:"host"`
	Port      string `json:"port" mapstructure:"port"`
	Username  string `json:"username" mapstructure:"username"`
	Password  string `json:"password" mapstructure:"password"`
	Database  string `json:"database" mapstructure:"database"`
	BatchSize int    `json:"batchSize" mapstructure:"batchSize"`
}

// DSN builds the postgres connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`

	// BackupPath receives gzipped line protocol when the server is unreachable
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// URL returns the server address.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// StorageConfig selects and configures the export backend
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
	Influx   InfluxConfig   `json:"influx" mapstructure:"influx"`
}

// SetDefaults registers default values for every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./mocaplogs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("resolver.maxDepth", core.DefaultMaxDepth)
	viper.SetDefault("resolver.threePointsRatioSign", "minus")

	viper.SetDefault("palette.seed", 1)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./exports")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./mocap.db")
	viper.SetDefault("storage.sqlite.batchSize", 5000)
	viper.SetDefault("storage.sqlite.dumpPath", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "mocap")
	viper.SetDefault("db.batchSize", 5000)

	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "mocap")
	viper.SetDefault("influx.bucket", "trajectories")
	viper.SetDefault("influx.backupPath", "./mocap_influx_backup.lp.gz")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Environment
// variables prefixed MOCAP_ override file values (MOCAP_STORAGE_TYPE).
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix("mocap")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// IsNotFound reports whether Load failed only because no file exists.
func IsNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetLogConfig returns logging settings.
func GetLogConfig() LogConfig {
	return LogConfig{
		Level:          viper.GetString("logLevel"),
		Dir:            viper.GetString("logsDir"),
		GraylogEnabled: viper.GetBool("graylog.enabled"),
		GraylogAddress: viper.GetString("graylog.address"),
	}
}

// GetResolverConfig returns resolver settings.
func GetResolverConfig() ResolverConfig {
	return ResolverConfig{
		MaxDepth:             viper.GetInt("resolver.maxDepth"),
		ThreePointsRatioSign: viper.GetString("resolver.threePointsRatioSign"),
	}
}

// GetPaletteConfig returns palette settings.
func GetPaletteConfig() PaletteConfig {
	return PaletteConfig{Seed: viper.GetUint64("palette.seed")}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:      viper.GetString("storage.sqlite.path"),
			BatchSize: viper.GetInt("storage.sqlite.batchSize"),
			DumpPath:  viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: PostgresConfig{
			Host:      viper.GetString("db.host"),
			Port:      viper.GetString("db.port"),
			Username:  viper.GetString("db.username"),
			Password:  viper.GetString("db.password"),
			Database:  viper.GetString("db.database"),
			BatchSize: viper.GetInt("db.batchSize"),
		},
		Influx: InfluxConfig{
			Host:     viper.GetString("influx.host"),
			Port:     viper.GetString("influx.port"),
			Protocol: viper.GetString("influx.protocol"),
			Token:    viper.GetString("influx.token"),
			Org:      viper.GetString("influx.org"),
			Bucket:   viper.GetString("influx.bucket"),

			BackupPath: viper.GetString("influx.backupPath"),
		},
	}
}
