package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	Env     string `mapstructure:"APP_ENV"`
	Version string `mapstructure:"APP_VERSION"`
	TZ      string `mapstructure:"TZ"`

	// Postgres configuration.
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`

	// Redis configuration. Cache and the task queue use separate DBs.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	KafkaBroker      string `mapstructure:"KAFKA_BROKER"`
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
	SentryDSN        string `mapstructure:"SENTRY_DSN"`

	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTAccessTTLMin    int    `mapstructure:"JWT_ACCESS_TTL_MINUTES"`
	JWTRefreshTTLDays  int    `mapstructure:"JWT_REFRESH_TTL_DAYS"`
	BootstrapAdminMail string `mapstructure:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPass string `mapstructure:"BOOTSTRAP_ADMIN_PASSWORD"`

	// FrontendBaseURL is where password setup links point.
	FrontendBaseURL string `mapstructure:"FRONTEND_BASE_URL"`

	// Zapier outbound webhooks.
	ZapierHookURL    string `mapstructure:"ZAPIER_CATCH_HOOK_URL"`
	ZapierHMACSecret string `mapstructure:"ZAPIER_HMAC_SECRET"`
	ZapierMode       string `mapstructure:"ZAPIER_MODE"`

	// ggLeap integration.
	GgleapBaseURL string `mapstructure:"GGLEAP_BASE_URL"`
	GgleapAPIKey  string `mapstructure:"GGLEAP_API_KEY"`

	// Feature flags.
	FeatureMessaging  bool `mapstructure:"FEATURE_MESSAGING"`
	FeatureGgleapSync bool `mapstructure:"FEATURE_GGLEAP_SYNC"`

	// Backups.
	BackupDir           string `mapstructure:"BACKUP_DIR"`
	BackupRetentionDays int    `mapstructure:"BACKUP_RETENTION_DAYS"`

	KioskRequestsPerMin int `mapstructure:"KIOSK_REQUESTS_PER_MIN"`
}

var AppConfig Config

// LoadConfig reads config.yaml if present and overlays environment variables.
func LoadConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_VERSION", "dev")
	viper.SetDefault("TZ", "America/Los_Angeles")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "crm_user")
	viper.SetDefault("DB_PASSWORD", "")
	viper.SetDefault("DB_NAME", "crm_db")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("KAFKA_BROKER", "localhost:9092")
	viper.SetDefault("ELASTICSEARCH_URL", "")
	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_ACCESS_TTL_MINUTES", 30)
	viper.SetDefault("JWT_REFRESH_TTL_DAYS", 7)
	viper.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "")
	viper.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")
	viper.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	viper.SetDefault("ZAPIER_CATCH_HOOK_URL", "")
	viper.SetDefault("ZAPIER_HMAC_SECRET", "")
	viper.SetDefault("ZAPIER_MODE", "dev_log")
	viper.SetDefault("GGLEAP_BASE_URL", "https://api.ggleap.com")
	viper.SetDefault("GGLEAP_API_KEY", "")
	viper.SetDefault("FEATURE_MESSAGING", true)
	viper.SetDefault("FEATURE_GGLEAP_SYNC", false)
	viper.SetDefault("BACKUP_DIR", "/backups")
	viper.SetDefault("BACKUP_RETENTION_DAYS", 30)
	viper.SetDefault("KIOSK_REQUESTS_PER_MIN", 30)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// DatabaseDSN builds the Postgres DSN from the individual settings.
func (c Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.TZ,
	)
}

// Location returns the facility timezone. Membership status and scheduled
// jobs are computed in this zone, not UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
