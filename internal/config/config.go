package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	VLM       VLMConfig       `mapstructure:"vlm"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Batch     BatchConfig     `mapstructure:"batch"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
	// MaxUploadMB caps the size of an uploaded menu photo.
	MaxUploadMB int `mapstructure:"max_upload_mb"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite or postgres
	Path            string `mapstructure:"path"`
	URL             string `mapstructure:"url"` // full postgres DSN, wins over the discrete fields
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
}

// DSN returns the postgres connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // r2, s3, s3compatible; empty to detect from endpoint
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type VLMConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Timeout   int    `mapstructure:"timeout"` // seconds
}

// SpeechConfig configures narration through an OpenAI-compatible TTS endpoint.
// APIKey and BaseURL fall back to the VLM values when empty.
type SpeechConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
	Voice   string `mapstructure:"voice"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

// RecommendConfig holds the heuristic thresholds of the recommendation core.
type RecommendConfig struct {
	CalorieTolerance float64 `mapstructure:"calorie_tolerance"`
	BudgetLimit      float64 `mapstructure:"budget_limit"`
	MidRangeLimit    float64 `mapstructure:"mid_range_limit"`
	TopN             int     `mapstructure:"top_n"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers"`
	// RootDir enables the admin batch endpoint; request paths resolve under it.
	RootDir string `mapstructure:"root_dir"`
}

// Load reads configuration from file and environment.
// Parameters:
//   - configPath: explicit config file; empty searches ./configs and the working directory.
// Returns:
//   - *Config: merged configuration.
//   - error: non-nil if the file exists but cannot be read or decoded.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment-specific values come from the environment.
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	_ = v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	_ = v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	_ = v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = v.BindEnv("vlm.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("vlm.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("vlm.model", "VLM_MODEL")
	_ = v.BindEnv("speech.api_key", "SPEECH_API_KEY")
	_ = v.BindEnv("embedding.api_key", "JINA_API_KEY")
	_ = v.BindEnv("qdrant.host", "QDRANT_HOST")
	_ = v.BindEnv("qdrant.port", "QDRANT_PORT")
	_ = v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Embedding.ResolveEnvVars()
	cfg.Speech.inherit(cfg.VLM)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/menubot.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "menubot")
	v.SetDefault("vlm.provider", "openai")
	v.SetDefault("vlm.model", "gpt-4o-mini")
	v.SetDefault("vlm.base_url", "https://api.openai.com/v1")
	v.SetDefault("vlm.max_tokens", 2000)
	v.SetDefault("vlm.timeout", 90)
	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.model", "tts-1")
	v.SetDefault("speech.voice", "alloy")
	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.provider", "jina")
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "menu_dishes")
	v.SetDefault("recommend.calorie_tolerance", 100.0)
	v.SetDefault("recommend.budget_limit", 50.0)
	v.SetDefault("recommend.mid_range_limit", 100.0)
	v.SetDefault("recommend.top_n", 3)
	v.SetDefault("batch.workers", 4)
}

func (s *SpeechConfig) inherit(vlm VLMConfig) {
	if s.APIKey == "" {
		s.APIKey = vlm.APIKey
	}
	if s.BaseURL == "" {
		s.BaseURL = vlm.BaseURL
	}
}

// Validate reports the first setting that would make the server unusable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("database.url or database.host is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if c.VLM.Model == "" {
		return fmt.Errorf("vlm.model is required")
	}
	if c.Recommend.CalorieTolerance < 0 || c.Recommend.BudgetLimit < 0 || c.Recommend.MidRangeLimit < 0 {
		return fmt.Errorf("recommend thresholds must not be negative")
	}
	if c.Recommend.MidRangeLimit > 0 && c.Recommend.MidRangeLimit < c.Recommend.BudgetLimit {
		return fmt.Errorf("recommend.mid_range_limit must be at least recommend.budget_limit")
	}
	if c.Embedding.Enabled {
		if err := c.Embedding.Validate(); err != nil {
			return err
		}
		if c.Qdrant.Collection == "" {
			return fmt.Errorf("qdrant.collection is required when embedding is enabled")
		}
	}
	return nil
}
