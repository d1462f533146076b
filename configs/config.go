package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PresignTTL time.Duration
}

type Scheduler struct {
	TickInterval          time.Duration
	PublishTimeout        time.Duration
	RetryBaseDelay        time.Duration
	MaxAttempts           int
	ClaimTimeout          time.Duration
	PermanentConfigErrors bool
}

type Platforms struct {
	FacebookGraphURL  string
	FacebookVersion   string
	InstagramGraphURL string
	InstagramVersion  string
	TwitterAPIURL     string
	TwitterUploadURL  string
	RequestsPerMinute int
}

type Config struct {
	PostgresURI string
	Port        string
	SecretKey   string
	CookieName  string
	R2          R2
	Scheduler   Scheduler
	Platforms   Platforms
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI: getEnv("POSTGRES_URI", ""),
		Port:        getEnv("PORT", "3000"),
		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PresignTTL: getEnvDuration("R2_PRESIGN_TTL", time.Hour),
		},
		Scheduler: Scheduler{
			TickInterval:          getEnvDuration("SCHEDULER_TICK_INTERVAL", time.Minute),
			PublishTimeout:        getEnvDuration("PUBLISH_TIMEOUT", time.Minute),
			RetryBaseDelay:        getEnvDuration("RETRY_BASE_DELAY", 5*time.Minute),
			MaxAttempts:           getEnvInt("MAX_ATTEMPTS", 3),
			ClaimTimeout:          getEnvDuration("CLAIM_TIMEOUT", 15*time.Minute),
			PermanentConfigErrors: getEnvBool("PERMANENT_CONFIG_ERRORS", false),
		},
		Platforms: Platforms{
			FacebookGraphURL:  getEnv("FACEBOOK_GRAPH_URL", "https://graph.facebook.com"),
			FacebookVersion:   getEnv("FACEBOOK_GRAPH_VERSION", "v21.0"),
			InstagramGraphURL: getEnv("INSTAGRAM_GRAPH_URL", "https://graph.instagram.com"),
			InstagramVersion:  getEnv("INSTAGRAM_GRAPH_VERSION", "v21.0"),
			TwitterAPIURL:     getEnv("TWITTER_API_URL", "https://api.x.com"),
			TwitterUploadURL:  getEnv("TWITTER_UPLOAD_URL", "https://upload.twitter.com"),
			RequestsPerMinute: getEnvInt("PLATFORM_REQUESTS_PER_MINUTE", 60),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}
