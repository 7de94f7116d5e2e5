package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Object store drivers.
const (
	ObjectStoreS3    = "s3"
	ObjectStoreLocal = "local"
)

const devTokenPepper = "dev_upload_token_pepper"

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Uploads       UploadsConfig
	ObjectStore   ObjectStoreConfig
	Notifications NotificationsConfig
	RateLimit     RateLimitConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig describes how staff bearer tokens issued by the identity service are verified.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadsConfig holds the quota defaults and token settings of the vendor upload gateway.
type UploadsConfig struct {
	TokenPepper          string
	DefaultTTL           time.Duration
	MaxTTL               time.Duration
	DefaultMaxFiles      int
	DefaultMaxTotalBytes int64
	MaxFileSizeBytes     int64
	AllowedMIMEs         []string
	DefaultDocTypes      []string
	SignedURLTTL         time.Duration
	PortalBaseURL        string
	ExpirySweepInterval  time.Duration
}

// ObjectStoreConfig selects and configures the storage collaborator issuing write URLs.
type ObjectStoreConfig struct {
	Driver          string
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Timeout         time.Duration

	LocalDir           string
	LocalSigningSecret string
	LocalPublicBaseURL string
}

// NotificationsConfig toggles delivery of portal links by email.
type NotificationsConfig struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
	FromName     string
	Workers      int
	Retries      int
}

// RateLimitConfig bounds failed token attempts against public upload routes.
type RateLimitConfig struct {
	Enabled     bool
	MaxFailures int
	Window      time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxFileSize := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	maxTotal := v.GetInt64("UPLOAD_DEFAULT_MAX_TOTAL_BYTES")
	if maxTotal <= 0 {
		maxTotal = 50 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		TokenPepper:          v.GetString("UPLOAD_TOKEN_PEPPER"),
		DefaultTTL:           parseDuration(v.GetString("UPLOAD_DEFAULT_TTL"), 72*time.Hour),
		MaxTTL:               parseDuration(v.GetString("UPLOAD_MAX_TTL"), 30*24*time.Hour),
		DefaultMaxFiles:      v.GetInt("UPLOAD_DEFAULT_MAX_FILES"),
		DefaultMaxTotalBytes: maxTotal,
		MaxFileSizeBytes:     maxFileSize,
		AllowedMIMEs:         splitAndTrim(v.GetString("UPLOAD_ALLOWED_MIME_TYPES")),
		DefaultDocTypes:      splitAndTrim(v.GetString("UPLOAD_DEFAULT_DOC_TYPES")),
		SignedURLTTL:         parseDuration(v.GetString("UPLOAD_SIGNED_URL_TTL"), 10*time.Minute),
		PortalBaseURL:        v.GetString("UPLOAD_PORTAL_BASE_URL"),
		ExpirySweepInterval:  parseDuration(v.GetString("UPLOAD_EXPIRY_SWEEP_INTERVAL"), 15*time.Minute),
	}

	cfg.ObjectStore = ObjectStoreConfig{
		Driver:             strings.ToLower(v.GetString("OBJECT_STORE_DRIVER")),
		Bucket:             v.GetString("OBJECT_STORE_BUCKET"),
		Region:             v.GetString("OBJECT_STORE_REGION"),
		Endpoint:           v.GetString("OBJECT_STORE_ENDPOINT"),
		AccessKeyID:        v.GetString("OBJECT_STORE_ACCESS_KEY_ID"),
		SecretAccessKey:    v.GetString("OBJECT_STORE_SECRET_ACCESS_KEY"),
		UsePathStyle:       v.GetBool("OBJECT_STORE_USE_PATH_STYLE"),
		Timeout:            parseDuration(v.GetString("OBJECT_STORE_TIMEOUT"), 5*time.Second),
		LocalDir:           v.GetString("OBJECT_STORE_LOCAL_DIR"),
		LocalSigningSecret: v.GetString("OBJECT_STORE_LOCAL_SIGNING_SECRET"),
		LocalPublicBaseURL: v.GetString("OBJECT_STORE_LOCAL_PUBLIC_BASE_URL"),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:      v.GetBool("ENABLE_UPLOAD_NOTIFICATIONS"),
		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUsername: v.GetString("SMTP_USERNAME"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		FromAddress:  v.GetString("SMTP_FROM_ADDRESS"),
		FromName:     v.GetString("SMTP_FROM_NAME"),
		Workers:      v.GetInt("NOTIFICATION_WORKERS"),
		Retries:      v.GetInt("NOTIFICATION_RETRIES"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:     v.GetBool("ENABLE_UPLOAD_RATE_LIMIT"),
		MaxFailures: v.GetInt("UPLOAD_RATE_LIMIT_MAX_FAILURES"),
		Window:      parseDuration(v.GetString("UPLOAD_RATE_LIMIT_WINDOW"), 15*time.Minute),
	}

	if cfg.Env == EnvProduction && (cfg.Uploads.TokenPepper == "" || cfg.Uploads.TokenPepper == devTokenPepper) {
		return nil, errors.New("UPLOAD_TOKEN_PEPPER must be set in production")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "vendor_platform")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOAD_TOKEN_PEPPER", devTokenPepper)
	v.SetDefault("UPLOAD_DEFAULT_TTL", "72h")
	v.SetDefault("UPLOAD_MAX_TTL", "720h")
	v.SetDefault("UPLOAD_DEFAULT_MAX_FILES", 10)
	v.SetDefault("UPLOAD_DEFAULT_MAX_TOTAL_BYTES", 50*1024*1024)
	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("UPLOAD_ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/png,application/vnd.openxmlformats-officedocument.wordprocessingml.document,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	v.SetDefault("UPLOAD_DEFAULT_DOC_TYPES", "invoice,quote,receipt,certificate,other")
	v.SetDefault("UPLOAD_SIGNED_URL_TTL", "10m")
	v.SetDefault("UPLOAD_PORTAL_BASE_URL", "http://localhost:5173/vendor-upload")
	v.SetDefault("UPLOAD_EXPIRY_SWEEP_INTERVAL", "15m")

	v.SetDefault("OBJECT_STORE_DRIVER", ObjectStoreLocal)
	v.SetDefault("OBJECT_STORE_BUCKET", "vendor-documents")
	v.SetDefault("OBJECT_STORE_REGION", "auto")
	v.SetDefault("OBJECT_STORE_ENDPOINT", "")
	v.SetDefault("OBJECT_STORE_USE_PATH_STYLE", true)
	v.SetDefault("OBJECT_STORE_TIMEOUT", "5s")
	v.SetDefault("OBJECT_STORE_LOCAL_DIR", "./uploads")
	v.SetDefault("OBJECT_STORE_LOCAL_SIGNING_SECRET", "dev_object_store_secret")
	v.SetDefault("OBJECT_STORE_LOCAL_PUBLIC_BASE_URL", "http://localhost:8080")

	v.SetDefault("ENABLE_UPLOAD_NOTIFICATIONS", false)
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM_ADDRESS", "no-reply@localhost")
	v.SetDefault("SMTP_FROM_NAME", "Vendor Portal")
	v.SetDefault("NOTIFICATION_WORKERS", 1)
	v.SetDefault("NOTIFICATION_RETRIES", 3)

	v.SetDefault("ENABLE_UPLOAD_RATE_LIMIT", false)
	v.SetDefault("UPLOAD_RATE_LIMIT_MAX_FAILURES", 10)
	v.SetDefault("UPLOAD_RATE_LIMIT_WINDOW", "15m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
