package config

import (
	"fmt"
	"log"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	BaseURL           string `mapstructure:"BASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`

	// MongoDB configuration.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	WorkerConcurrency int `mapstructure:"WORKER_CONCURRENCY"`

	// Operating policy.
	Timezone             string `mapstructure:"TIMEZONE"`
	LeadTimeHours        int    `mapstructure:"LEAD_TIME_HOURS"`
	NoticeHours          int    `mapstructure:"NOTICE_HOURS"`
	SlotDurationHours    int    `mapstructure:"SLOT_DURATION_HOURS"`
	SlotIncrementMinutes int    `mapstructure:"SLOT_INCREMENT_MINUTES"`
	EarliestStartHour    int    `mapstructure:"EARLIEST_START_HOUR"`
	LatestStartHour      int    `mapstructure:"LATEST_START_HOUR"`
	PickupLocation       string `mapstructure:"PICKUP_LOCATION"`
	CreditValidityDays   int    `mapstructure:"CREDIT_VALIDITY_DAYS"`
	ReminderLeadHours    int    `mapstructure:"REMINDER_LEAD_HOURS"`

	// Google Calendar.
	GoogleCalendarID       string `mapstructure:"GOOGLE_CALENDAR_ID"`
	GoogleCredentialsFile  string `mapstructure:"GOOGLE_CREDENTIALS_FILE"`
	CalendarTimeoutSeconds int    `mapstructure:"CALENDAR_TIMEOUT_SECONDS"`
	CalendarCacheSeconds   int    `mapstructure:"CALENDAR_CACHE_SECONDS"`

	// Webhooks.
	StripeKey           string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	IntakeWebhookToken  string `mapstructure:"INTAKE_WEBHOOK_TOKEN"`
}

// Policy is the fixed operating policy every booking decision is made against.
type Policy struct {
	Location          *time.Location
	LeadTime          time.Duration
	Notice            time.Duration
	DurationHours     int
	IncrementMinutes  int
	EarliestStartHour int
	LatestStartHour   int
	PickupLocation    string
}

// Duration returns the fixed session length.
func (p Policy) Duration() time.Duration {
	return time.Duration(p.DurationHours) * time.Hour
}

// WindowStart is the earliest bookable start as HH:MM.
func (p Policy) WindowStart() string {
	return fmt.Sprintf("%02d:00", p.EarliestStartHour)
}

// WindowEnd is the end of the last bookable session as HH:MM.
func (p Policy) WindowEnd() string {
	return fmt.Sprintf("%02d:00", p.LatestStartHour+p.DurationHours)
}

// Load reads configuration from the environment and an optional config.yaml.
func Load() (*Config, error) {
	v := viper.New()
	// Look for a config file named "config.yaml" in the current and "config" directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("DATABASE_NAME", "rallyrent")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("TIMEZONE", "America/Los_Angeles")
	v.SetDefault("LEAD_TIME_HOURS", 8)
	v.SetDefault("NOTICE_HOURS", 2)
	v.SetDefault("SLOT_DURATION_HOURS", 2)
	v.SetDefault("SLOT_INCREMENT_MINUTES", 30)
	v.SetDefault("EARLIEST_START_HOUR", 7)
	v.SetDefault("LATEST_START_HOUR", 18)
	v.SetDefault("PICKUP_LOCATION", "")
	v.SetDefault("CREDIT_VALIDITY_DAYS", 365)
	v.SetDefault("REMINDER_LEAD_HOURS", 24)
	v.SetDefault("GOOGLE_CALENDAR_ID", "")
	v.SetDefault("GOOGLE_CREDENTIALS_FILE", "")
	v.SetDefault("CALENDAR_TIMEOUT_SECONDS", 5)
	v.SetDefault("CALENDAR_CACHE_SECONDS", 60)
	v.SetDefault("STRIPE_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("INTAKE_WEBHOOK_TOKEN", "")
}

// Validate rejects policies the slot arithmetic cannot work with.
func (c *Config) Validate() error {
	if c.SlotDurationHours <= 0 {
		return fmt.Errorf("SLOT_DURATION_HOURS must be positive, got %d", c.SlotDurationHours)
	}
	if c.SlotIncrementMinutes <= 0 || c.SlotIncrementMinutes > 60 || 60%c.SlotIncrementMinutes != 0 {
		return fmt.Errorf("SLOT_INCREMENT_MINUTES must divide an hour, got %d", c.SlotIncrementMinutes)
	}
	if c.EarliestStartHour < 0 || c.LatestStartHour < c.EarliestStartHour || c.LatestStartHour+c.SlotDurationHours > 24 {
		return fmt.Errorf("invalid booking window %d-%d", c.EarliestStartHour, c.LatestStartHour)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Policy builds the operating policy from the loaded values.
func (c *Config) Policy() (Policy, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return Policy{
		Location:          loc,
		LeadTime:          time.Duration(c.LeadTimeHours) * time.Hour,
		Notice:            time.Duration(c.NoticeHours) * time.Hour,
		DurationHours:     c.SlotDurationHours,
		IncrementMinutes:  c.SlotIncrementMinutes,
		EarliestStartHour: c.EarliestStartHour,
		LatestStartHour:   c.LatestStartHour,
		PickupLocation:    c.PickupLocation,
	}, nil
}

// CalendarTimeout bounds every external calendar call.
func (c *Config) CalendarTimeout() time.Duration {
	return time.Duration(c.CalendarTimeoutSeconds) * time.Second
}

// CalendarCacheTTL is how long busy periods are cached.
func (c *Config) CalendarCacheTTL() time.Duration {
	return time.Duration(c.CalendarCacheSeconds) * time.Second
}

// CreditValidity is the default lifetime of a granted credit.
func (c *Config) CreditValidity() time.Duration {
	return time.Duration(c.CreditValidityDays) * 24 * time.Hour
}

// ReminderLead is how long before a session its reminder fires.
func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.ReminderLeadHours) * time.Hour
}

// IsProduction checks if the environment is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
