package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the JSON file Load looks for in the config directory.
const ConfigFileName = "classbuilder.cfg.json"

// MemoryConfig holds in-memory storage backend settings
type MemoryConfig struct {
	SnapshotPath string `json:"snapshotPath" mapstructure:"snapshotPath"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// BadgerConfig holds badger storage backend settings. An empty Path keeps
// the store in memory.
type BadgerConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// MongoConfig holds MongoDB storage backend settings
type MongoConfig struct {
	URI        string `json:"uri" mapstructure:"uri"`
	Database   string `json:"database" mapstructure:"database"`
	Collection string `json:"collection" mapstructure:"collection"`
}

// RemoteConfig holds settings for the backend that talks to another classbuilder API
type RemoteConfig struct {
	BaseURL string `json:"baseUrl" mapstructure:"baseUrl"`
	Token   string `json:"token" mapstructure:"token"`
	Actor   string `json:"actor" mapstructure:"actor"`
}

// DBConfig holds postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// StorageConfig selects and configures the class storage backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	Badger BadgerConfig `json:"badger" mapstructure:"badger"`
	Mongo  MongoConfig  `json:"mongo" mapstructure:"mongo"`
	Remote RemoteConfig `json:"remote" mapstructure:"remote"`
	DB     DBConfig     `json:"db" mapstructure:"db"`

	// CacheSize bounds the in-memory class read cache; 0 disables it.
	CacheSize int `json:"cacheSize" mapstructure:"cacheSize"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr           string  `json:"addr" mapstructure:"addr"`
	ViewerBaseURL  string  `json:"viewerBaseUrl" mapstructure:"viewerBaseUrl"`
	MaxUploadBytes int64   `json:"maxUploadBytes" mapstructure:"maxUploadBytes"`
	RateLimit      float64 `json:"rateLimit" mapstructure:"rateLimit"`
	RateBurst      int     `json:"rateBurst" mapstructure:"rateBurst"`
}

// LocalMediaConfig holds filesystem media store settings
type LocalMediaConfig struct {
	Dir     string `json:"dir" mapstructure:"dir"`
	BaseURL string `json:"baseUrl" mapstructure:"baseUrl"`
}

// GCSMediaConfig holds Google Cloud Storage media store settings
type GCSMediaConfig struct {
	Bucket          string `json:"bucket" mapstructure:"bucket"`
	Prefix          string `json:"prefix" mapstructure:"prefix"`
	CredentialsFile string `json:"credentialsFile" mapstructure:"credentialsFile"`
	PublicBaseURL   string `json:"publicBaseUrl" mapstructure:"publicBaseUrl"`
}

// MediaConfig selects and configures the image store
type MediaConfig struct {
	Type          string           `json:"type" mapstructure:"type"`
	Local         LocalMediaConfig `json:"local" mapstructure:"local"`
	GCS           GCSMediaConfig   `json:"gcs" mapstructure:"gcs"`
	OffloadInline bool             `json:"offloadInline" mapstructure:"offloadInline"`
}

// NATSConfig holds NATS event publisher settings
type NATSConfig struct {
	Enabled       bool   `json:"enabled" mapstructure:"enabled"`
	URL           string `json:"url" mapstructure:"url"`
	SubjectPrefix string `json:"subjectPrefix" mapstructure:"subjectPrefix"`
}

// InfluxConfig holds InfluxDB activity recorder settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`

	// BackupPath receives gzipped line protocol while the server is unreachable
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// EventsConfig holds class lifecycle event sink settings
type EventsConfig struct {
	BufferSize int          `json:"bufferSize" mapstructure:"bufferSize"`
	NATS       NATSConfig   `json:"nats" mapstructure:"nats"`
	Influx     InfluxConfig `json:"influx" mapstructure:"influx"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
	Prometheus   bool          `json:"prometheus" mapstructure:"prometheus"`
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	Secret string `json:"secret" mapstructure:"secret"`
	Issuer string `json:"issuer" mapstructure:"issuer"`
}

// GraylogConfig holds GELF output settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level   string        `json:"logLevel" mapstructure:"logLevel"`
	Dir     string        `json:"logsDir" mapstructure:"logsDir"`
	Graylog GraylogConfig `json:"graylog" mapstructure:"graylog"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults and
// CLASSBUILDER_* environment variables are in effect even when it fails.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix("CLASSBUILDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.snapshotPath", "")
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.badger.path", "./data/badger")
	viper.SetDefault("storage.mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("storage.mongo.database", "classbuilder")
	viper.SetDefault("storage.mongo.collection", "ar_classes")
	viper.SetDefault("storage.remote.baseUrl", "http://localhost:8080")
	viper.SetDefault("storage.remote.token", "")
	viper.SetDefault("storage.remote.actor", "local-user")
	viper.SetDefault("storage.cacheSize", 0)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "classbuilder")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.viewerBaseUrl", "https://areduca.example.com")
	viper.SetDefault("server.maxUploadBytes", 10<<20)
	viper.SetDefault("server.rateLimit", 20)
	viper.SetDefault("server.rateBurst", 40)

	viper.SetDefault("media.type", "local")
	viper.SetDefault("media.local.dir", "./uploads")
	viper.SetDefault("media.local.baseUrl", "/files")
	viper.SetDefault("media.gcs.bucket", "")
	viper.SetDefault("media.gcs.prefix", "classbuilder/")
	viper.SetDefault("media.gcs.credentialsFile", "")
	viper.SetDefault("media.gcs.publicBaseUrl", "https://storage.googleapis.com")
	viper.SetDefault("media.offloadInline", false)

	viper.SetDefault("events.bufferSize", 256)
	viper.SetDefault("events.nats.enabled", false)
	viper.SetDefault("events.nats.url", "nats://localhost:4222")
	viper.SetDefault("events.nats.subjectPrefix", "classbuilder")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "areduca")
	viper.SetDefault("influx.bucket", "classbuilder")
	viper.SetDefault("influx.backupPath", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "classbuilder")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.prometheus", true)

	viper.SetDefault("auth.secret", "")
	viper.SetDefault("auth.issuer", "")
}

// GetStorageConfig returns the storage settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:      viper.GetString("storage.type"),
		CacheSize: viper.GetInt("storage.cacheSize"),
		Memory: MemoryConfig{
			SnapshotPath: viper.GetString("storage.memory.snapshotPath"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Badger: BadgerConfig{
			Path: viper.GetString("storage.badger.path"),
		},
		Mongo: MongoConfig{
			URI:        viper.GetString("storage.mongo.uri"),
			Database:   viper.GetString("storage.mongo.database"),
			Collection: viper.GetString("storage.mongo.collection"),
		},
		Remote: RemoteConfig{
			BaseURL: viper.GetString("storage.remote.baseUrl"),
			Token:   viper.GetString("storage.remote.token"),
			Actor:   viper.GetString("storage.remote.actor"),
		},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetServerConfig returns the HTTP API settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           viper.GetString("server.addr"),
		ViewerBaseURL:  strings.TrimRight(viper.GetString("server.viewerBaseUrl"), "/"),
		MaxUploadBytes: viper.GetInt64("server.maxUploadBytes"),
		RateLimit:      viper.GetFloat64("server.rateLimit"),
		RateBurst:      viper.GetInt("server.rateBurst"),
	}
}

// GetMediaConfig returns the image store settings.
func GetMediaConfig() MediaConfig {
	return MediaConfig{
		Type: viper.GetString("media.type"),
		Local: LocalMediaConfig{
			Dir:     viper.GetString("media.local.dir"),
			BaseURL: viper.GetString("media.local.baseUrl"),
		},
		GCS: GCSMediaConfig{
			Bucket:          viper.GetString("media.gcs.bucket"),
			Prefix:          viper.GetString("media.gcs.prefix"),
			CredentialsFile: viper.GetString("media.gcs.credentialsFile"),
			PublicBaseURL:   viper.GetString("media.gcs.publicBaseUrl"),
		},
		OffloadInline: viper.GetBool("media.offloadInline"),
	}
}

// GetEventsConfig returns the event sink settings.
func GetEventsConfig() EventsConfig {
	return EventsConfig{
		BufferSize: viper.GetInt("events.bufferSize"),
		NATS: NATSConfig{
			Enabled:       viper.GetBool("events.nats.enabled"),
			URL:           viper.GetString("events.nats.url"),
			SubjectPrefix: viper.GetString("events.nats.subjectPrefix"),
		},
		Influx: InfluxConfig{
			Enabled:  viper.GetBool("influx.enabled"),
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

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
		Prometheus:   viper.GetBool("otel.prometheus"),
	}
}

// GetAuthConfig returns the bearer token settings.
func GetAuthConfig() AuthConfig {
	return AuthConfig{
		Secret: viper.GetString("auth.secret"),
		Issuer: viper.GetString("auth.issuer"),
	}
}

// GetLoggingConfig returns the log output settings.
func GetLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level: viper.GetString("logLevel"),
		Dir:   viper.GetString("logsDir"),
		Graylog: GraylogConfig{
			Enabled: viper.GetBool("graylog.enabled"),
			Address: viper.GetString("graylog.address"),
		},
	}
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
