package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Kafka           KafkaConfig           `mapstructure:"kafka"`
	Minio           MinioConfig           `mapstructure:"minio"`
	Auth            AuthConfig            `mapstructure:"auth"`
	Log             LogConfig             `mapstructure:"log"`
	Pipeline        PipelineConfig        `mapstructure:"pipeline"`
	Jobs            JobsConfig            `mapstructure:"jobs"`
	Worker          WorkerConfig          `mapstructure:"worker"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
	Profiling       ProfilingConfig       `mapstructure:"profiling"`
	Public          PublicConfig          `mapstructure:"public"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// KafkaConfig controls the optional job event stream.
type KafkaConfig struct {
	Enabled          bool              `mapstructure:"enabled"`
	BootstrapServers []string          `mapstructure:"bootstrap_servers"`
	ClientID         string            `mapstructure:"client_id"`
	Topics           KafkaTopicsConfig `mapstructure:"topics"`
}

type KafkaTopicsConfig struct {
	JobEvents string `mapstructure:"job_events"`
}

// MinioConfig holds object storage settings for published artifacts.
type MinioConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKey       string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// AuthConfig enables bearer-token verification on the public API.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
	Issuer  string `mapstructure:"issuer"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// PipelineConfig configures the external tools driven by stage adapters.
type PipelineConfig struct {
	OutputDir        string        `mapstructure:"output_dir"`
	YtdlpPath        string        `mapstructure:"ytdlp_path"`
	YtdlpFormat      string        `mapstructure:"ytdlp_format"`
	FFmpegPath       string        `mapstructure:"ffmpeg_path"`
	FFprobePath      string        `mapstructure:"ffprobe_path"`
	WhisperPath      string        `mapstructure:"whisper_path"`
	WhisperModelPath string        `mapstructure:"whisper_model_path"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	ConvertTimeout   time.Duration `mapstructure:"convert_timeout"`
	ClipTimeout      time.Duration `mapstructure:"clip_timeout"`
	ThumbnailTimeout time.Duration `mapstructure:"thumbnail_timeout"`
	TranscribeEnable bool          `mapstructure:"transcribe_enable"`
	TranscribeLang   string        `mapstructure:"transcribe_lang"`
	TranscribeLimit  time.Duration `mapstructure:"transcribe_timeout"`
	DefaultDuration  float64       `mapstructure:"default_duration"`
}

// JobsConfig configures job record retention.
type JobsConfig struct {
	RecordTTL time.Duration `mapstructure:"record_ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// WorkerConfig configures the dispatcher worker pool.
type WorkerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	WorkerID            string        `mapstructure:"worker_id"`
	Count               int           `mapstructure:"count"`
	QueueBackend        string        `mapstructure:"queue_backend"`
	QueueCapacity       int           `mapstructure:"queue_capacity"`
	LeaseDuration       time.Duration `mapstructure:"lease_duration"`
	LeaseRenewInterval  time.Duration `mapstructure:"lease_renew_interval"`
	ReclaimInterval     time.Duration `mapstructure:"reclaim_interval"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// ServiceRegistryConfig configures etcd registration.
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoints       []string      `mapstructure:"endpoints"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// ProfilingConfig enables continuous profiling.
type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"server_address"`
}

// PublicConfig configures externally visible URLs.
type PublicConfig struct {
	DownloadBase string `mapstructure:"download_base"`
	StorageBase  string `mapstructure:"storage_base"`
}

// Load reads the configuration file and applies env overrides.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("worker.enabled", true)
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.client_id", "ffmpeg-service")
	viper.SetDefault("kafka.bootstrap_servers", []string{"localhost:29092"})
	viper.SetDefault("kafka.topics.job_events", "media.job.events")
	viper.SetDefault("service_registry.enabled", false)
	viper.SetDefault("service_registry.service_name", "ffmpeg-service")

	viper.SetEnvPrefix("FFMPEG_SERVICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// normalize fills in defaults for settings the file leaves out.
func (c *Config) normalize() {
	if c.Minio.AccessKeyID == "" {
		c.Minio.AccessKeyID = c.Minio.AccessKey
	}
	if c.Minio.SecretAccessKey == "" {
		c.Minio.SecretAccessKey = c.Minio.SecretKey
	}

	if c.Pipeline.OutputDir == "" {
		c.Pipeline.OutputDir = filepath.Join(".", "outputs")
	}
	if c.Pipeline.YtdlpPath == "" {
		c.Pipeline.YtdlpPath = "yt-dlp"
	}
	if c.Pipeline.YtdlpFormat == "" {
		c.Pipeline.YtdlpFormat = "bestvideo+bestaudio/best"
	}
	if c.Pipeline.FFmpegPath == "" {
		c.Pipeline.FFmpegPath = "ffmpeg"
	}
	if c.Pipeline.FFprobePath == "" {
		c.Pipeline.FFprobePath = "ffprobe"
	}
	if c.Pipeline.WhisperPath == "" {
		c.Pipeline.WhisperPath = "whisper.cpp"
	}
	if c.Pipeline.FetchTimeout <= 0 {
		c.Pipeline.FetchTimeout = 5 * time.Minute
	}
	if c.Pipeline.ProbeTimeout <= 0 {
		c.Pipeline.ProbeTimeout = 30 * time.Second
	}
	if c.Pipeline.ConvertTimeout <= 0 {
		c.Pipeline.ConvertTimeout = 15 * time.Minute
	}
	if c.Pipeline.ClipTimeout <= 0 {
		c.Pipeline.ClipTimeout = 5 * time.Minute
	}
	if c.Pipeline.ThumbnailTimeout <= 0 {
		c.Pipeline.ThumbnailTimeout = time.Minute
	}
	if c.Pipeline.TranscribeLimit <= 0 {
		c.Pipeline.TranscribeLimit = 10 * time.Minute
	}
	if c.Pipeline.DefaultDuration <= 0 {
		c.Pipeline.DefaultDuration = 60
	}

	if c.Jobs.RecordTTL <= 0 {
		c.Jobs.RecordTTL = 24 * time.Hour
	}
	if c.Jobs.KeyPrefix == "" {
		c.Jobs.KeyPrefix = "job:"
	}

	if c.Worker.Count <= 0 {
		c.Worker.Count = 2
	}
	if c.Worker.QueueBackend == "" {
		c.Worker.QueueBackend = "redis"
	}
	if c.Worker.QueueCapacity <= 0 {
		c.Worker.QueueCapacity = c.Worker.Count * 10
	}
	if c.Worker.LeaseDuration <= 0 {
		c.Worker.LeaseDuration = 30 * time.Minute
	}
	if c.Worker.LeaseRenewInterval <= 0 {
		c.Worker.LeaseRenewInterval = c.Worker.LeaseDuration / 3
	}
	if c.Worker.ReclaimInterval <= 0 {
		c.Worker.ReclaimInterval = time.Minute
	}
	if c.Worker.ShutdownGracePeriod == 0 {
		c.Worker.ShutdownGracePeriod = 10 * time.Second
	}

	if c.ServiceRegistry.DialTimeout <= 0 {
		c.ServiceRegistry.DialTimeout = 5 * time.Second
	}
	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
}

// GetRedisAddr returns the host:port address for Redis.
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetMinioEndpoint returns the MinIO endpoint.
func (c *MinioConfig) GetMinioEndpoint() string {
	return c.Endpoint
}

var globalConfig *Config

// SetGlobalConfig stores the process-wide configuration.
func SetGlobalConfig(cfg *Config) {
	globalConfig = cfg
}

// GetGlobalConfig returns the process-wide configuration.
func GetGlobalConfig() *Config {
	return globalConfig
}
