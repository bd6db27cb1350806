package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "COOLMOTORS"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Env var names used by tests and tooling.
const (
	EnvAppEnv      = "COOLMOTORS_APP_ENV"
	EnvPort        = "COOLMOTORS_APP_PORT"
	EnvMongoURI    = "COOLMOTORS_MONGO_URI"
	EnvMongoDB     = "COOLMOTORS_MONGO_DATABASE"
	EnvRedisURL    = "COOLMOTORS_REDIS_URL"
	EnvJWTSecret   = "COOLMOTORS_JWT_SECRET"
	EnvJWTIssuer   = "COOLMOTORS_JWT_ISSUER"
	EnvJWTExpMins  = "COOLMOTORS_JWT_EXPIRATION_MINUTES"
	EnvAWSBucket   = "COOLMOTORS_AWS_BUCKET_NAME"
	EnvAWSRegion   = "COOLMOTORS_AWS_BUCKET_REGION"
	EnvAWSKeyID    = "COOLMOTORS_AWS_ACCESS_KEY"
	EnvAWSSecret   = "COOLMOTORS_AWS_SECRET_ACCESS_KEY"
	EnvMaxListings = "COOLMOTORS_MAX_LISTINGS_PER_OWNER"
)

type Config struct {
	App      AppConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	Media    MediaConfig
	Listings ListingsConfig
	Cron     CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COOLMOTORS_APP_ENV" required:"true"`
	Port         string `envconfig:"COOLMOTORS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COOLMOTORS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COOLMOTORS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type MongoConfig struct {
	URI            string        `envconfig:"COOLMOTORS_MONGO_URI" required:"true"`
	Database       string        `envconfig:"COOLMOTORS_MONGO_DATABASE" default:"coolmotors"`
	ConnectTimeout time.Duration `envconfig:"COOLMOTORS_MONGO_CONNECT_TIMEOUT" default:"10s"`
	PingTimeout    time.Duration `envconfig:"COOLMOTORS_MONGO_PING_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COOLMOTORS_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"COOLMOTORS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COOLMOTORS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COOLMOTORS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COOLMOTORS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COOLMOTORS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COOLMOTORS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COOLMOTORS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COOLMOTORS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type AWSConfig struct {
	BucketName      string `envconfig:"COOLMOTORS_AWS_BUCKET_NAME" required:"true"`
	Region          string `envconfig:"COOLMOTORS_AWS_BUCKET_REGION" required:"true"`
	AccessKeyID     string `envconfig:"COOLMOTORS_AWS_ACCESS_KEY"`
	SecretAccessKey string `envconfig:"COOLMOTORS_AWS_SECRET_ACCESS_KEY"`
}

type MediaConfig struct {
	MaxUploadMB   int `envconfig:"COOLMOTORS_MAX_UPLOAD_MB" default:"25"`
	ImageMaxWidth int `envconfig:"COOLMOTORS_MEDIA_IMAGE_MAX_WIDTH" default:"1200"`
	ImageQuality  int `envconfig:"COOLMOTORS_MEDIA_IMAGE_QUALITY" default:"80"`
}

// MaxUploadBytes returns the combined multipart upload cap in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMB) << 20
}

type ListingsConfig struct {
	MaxPerOwner int `envconfig:"COOLMOTORS_MAX_LISTINGS_PER_OWNER" default:"10"`
	TTLDays     int `envconfig:"COOLMOTORS_LISTING_TTL_DAYS" default:"60"`
}

// TTL returns the published-listing lifetime.
func (l ListingsConfig) TTL() time.Duration {
	return time.Duration(l.TTLDays) * 24 * time.Hour
}

type CronConfig struct {
	Interval time.Duration `envconfig:"COOLMOTORS_CRON_INTERVAL" default:"24h"`
	LockKey  string        `envconfig:"COOLMOTORS_CRON_LOCK_KEY" default:"coolmotors:cron:lock"`
	LockTTL  time.Duration `envconfig:"COOLMOTORS_CRON_LOCK_TTL" default:"25h"`
}
