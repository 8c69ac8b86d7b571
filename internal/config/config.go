package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Whisper   WhisperConfig   `mapstructure:"whisper"`
	Summary   SummaryConfig   `mapstructure:"summary"`
	Tagging   TaggingConfig   `mapstructure:"tagging"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite or postgres
	Path string `mapstructure:"path"` // sqlite file path
	DSN  string `mapstructure:"dsn"`  // postgres connection string
}

// StorageConfig configures the S3-compatible object store where lesson
// recordings are uploaded by the client apps.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // s3
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
}

// WhisperConfig configures the speech-to-text endpoint.
type WhisperConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Language       string `mapstructure:"language"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SummaryConfig configures the summarization endpoint.
type SummaryConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxInputChars  int    `mapstructure:"max_input_chars"`
}

// TaggingConfig configures the tag extraction endpoint.
type TaggingConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PipelineConfig holds the chunking and duration limits applied to
// every processed recording.
type PipelineConfig struct {
	MaxChunkSizeMB          float64 `mapstructure:"max_chunk_size_mb"`
	MaxAudioDurationSeconds int     `mapstructure:"max_audio_duration_seconds"`
	ChunkMode               string  `mapstructure:"chunk_mode"` // size or duration
	ChunkDurationSeconds    int     `mapstructure:"chunk_duration_seconds"`
	ChunkOverlapSeconds     int     `mapstructure:"chunk_overlap_seconds"`
	TempDir                 string  `mapstructure:"temp_dir"`
	FFmpegPath              string  `mapstructure:"ffmpeg_path"`
	FFprobePath             string  `mapstructure:"ffprobe_path"`
}

// DownloadsConfig configures the audio downloader.
type DownloadsConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	RetryCount     int `mapstructure:"retry_count"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./data/jobs.db")
	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "lesson-audio")
	v.SetDefault("whisper.base_url", "https://api.openai.com/v1")
	v.SetDefault("whisper.model", "whisper-1")
	v.SetDefault("whisper.language", "ja")
	v.SetDefault("whisper.timeout_seconds", 300)
	v.SetDefault("summary.timeout_seconds", 300)
	v.SetDefault("summary.max_input_chars", 30000)
	v.SetDefault("tagging.timeout_seconds", 60)
	v.SetDefault("pipeline.max_chunk_size_mb", 10)
	v.SetDefault("pipeline.max_audio_duration_seconds", 5400)
	v.SetDefault("pipeline.chunk_mode", "size")
	v.SetDefault("pipeline.chunk_duration_seconds", 600)
	v.SetDefault("pipeline.chunk_overlap_seconds", 20)
	v.SetDefault("pipeline.temp_dir", "")
	v.SetDefault("pipeline.ffmpeg_path", "ffmpeg")
	v.SetDefault("pipeline.ffprobe_path", "ffprobe")
	v.SetDefault("downloads.timeout_seconds", 60)
	v.SetDefault("downloads.retry_count", 3)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.dsn", "DATABASE_DSN")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.use_ssl", "STORAGE_USE_SSL")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("whisper.api_key", "OPENAI_API_KEY")
	v.BindEnv("whisper.base_url", "WHISPER_BASE_URL")
	v.BindEnv("summary.api_key", "DIFY_SUMMARY_API_KEY")
	v.BindEnv("summary.base_url", "DIFY_API_ENDPOINT")
	v.BindEnv("tagging.api_key", "DIFY_TAG_API_KEY")
	v.BindEnv("tagging.base_url", "DIFY_TAG_API_ENDPOINT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
