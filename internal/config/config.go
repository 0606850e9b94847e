package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App            AppConfig      `mapstructure:"app"`
	Database       DatabaseConfig `mapstructure:"database"`
	AgendaDatabase DatabaseConfig `mapstructure:"agenda_database"`
	Redis          RedisConfig    `mapstructure:"redis"`
	Google         GoogleConfig   `mapstructure:"google"`
	OAuth          OAuthConfig    `mapstructure:"oauth"`
	Security       SecurityConfig `mapstructure:"security"`
	Flow           FlowConfig     `mapstructure:"flow"`
	Agenda         AgendaConfig   `mapstructure:"agenda"`
	Logging        LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Port    int    `mapstructure:"port"`
	Env     string `mapstructure:"env"`
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// IsSet reports whether a separate connection was configured.
func (d DatabaseConfig) IsSet() bool {
	return d.Host != ""
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GoogleConfig configures the OAuth endpoints and the Calendar API client.
// AuthURL, TokenURL and CalendarEndpoint are only overridden in tests or
// when routing through a proxy.
type GoogleConfig struct {
	AuthURL           string        `mapstructure:"auth_url"`
	TokenURL          string        `mapstructure:"token_url"`
	CalendarEndpoint  string        `mapstructure:"calendar_endpoint"`
	CalendarID        string        `mapstructure:"calendar_id"`
	Scopes            []string      `mapstructure:"scopes"`
	MaxEvents         int64         `mapstructure:"max_events"`
	DefaultTimeZone   string        `mapstructure:"default_time_zone"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

type OAuthConfig struct {
	// RefreshWindow is how long before expiry an access token is renewed.
	RefreshWindow time.Duration `mapstructure:"refresh_window"`
}

type SecurityConfig struct {
	EncryptionSecretKey string `mapstructure:"encryption_secret_key"` // hex, 32 bytes
	FlowSigningSecret   string `mapstructure:"flow_signing_secret"`
}

type FlowConfig struct {
	TimeZone        string           `mapstructure:"timezone"`
	DateWindowDays  int              `mapstructure:"date_window_days"`
	ExcludedWeekday string           `mapstructure:"excluded_weekday"`
	FirstHour       int              `mapstructure:"first_hour"`
	LastHour        int              `mapstructure:"last_hour"`
	LeadTime        time.Duration    `mapstructure:"lead_time"`
	SlotDuration    time.Duration    `mapstructure:"slot_duration"`
	LookaheadDays   int              `mapstructure:"lookahead_days"`
	Blackouts       []BlackoutWindow `mapstructure:"blackouts"`
}

// BlackoutWindow disables every slot starting in [FromHour, ToHour) on Weekday.
type BlackoutWindow struct {
	Weekday  string `mapstructure:"weekday"`
	FromHour int    `mapstructure:"from_hour"`
	ToHour   int    `mapstructure:"to_hour"`
}

type AgendaConfig struct {
	PinnedMentorID       int64         `mapstructure:"pinned_mentor_id"` // 0 means the full roster
	EventSummaryPrefix   string        `mapstructure:"event_summary_prefix"`
	ReconcileInterval    time.Duration `mapstructure:"reconcile_interval"`
	ReconcileMaxAttempts int           `mapstructure:"reconcile_max_attempts"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mentor-agenda")
	v.SetDefault("app.port", 3000)
	v.SetDefault("app.env", "development")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("agenda_database.driver", "postgres")
	v.SetDefault("agenda_database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("google.calendar_id", "primary")
	v.SetDefault("google.scopes", []string{"https://www.googleapis.com/auth/calendar"})
	v.SetDefault("google.max_events", 1000)
	v.SetDefault("google.default_time_zone", "America/Bogota")
	v.SetDefault("google.timeout", "30s")
	v.SetDefault("google.requests_per_second", 5.0)
	v.SetDefault("google.burst", 10)

	v.SetDefault("oauth.refresh_window", "5m")

	v.SetDefault("flow.timezone", "America/Bogota")
	v.SetDefault("flow.date_window_days", 7)
	v.SetDefault("flow.excluded_weekday", "sunday")
	v.SetDefault("flow.first_hour", 8)
	v.SetDefault("flow.last_hour", 20)
	v.SetDefault("flow.lead_time", "2h")
	v.SetDefault("flow.slot_duration", "60m")
	v.SetDefault("flow.lookahead_days", 8)
	v.SetDefault("flow.blackouts", []map[string]interface{}{
		{"weekday": "saturday", "from_hour": 13, "to_hour": 24},
	})

	v.SetDefault("agenda.event_summary_prefix", "Mentoría")
	v.SetDefault("agenda.reconcile_interval", "30s")
	v.SetDefault("agenda.reconcile_max_attempts", 5)

	v.SetDefault("logging.level", "info")
}

// Validate checks the values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Flow.TimeZone); err != nil {
		return fmt.Errorf("flow.timezone: %w", err)
	}
	if c.Flow.ExcludedWeekday != "" {
		if _, err := ParseWeekday(c.Flow.ExcludedWeekday); err != nil {
			return fmt.Errorf("flow.excluded_weekday: %w", err)
		}
	}
	for i, b := range c.Flow.Blackouts {
		if _, err := ParseWeekday(b.Weekday); err != nil {
			return fmt.Errorf("flow.blackouts[%d].weekday: %w", i, err)
		}
		if b.FromHour >= b.ToHour {
			return fmt.Errorf("flow.blackouts[%d]: from_hour must be before to_hour", i)
		}
	}
	if c.Flow.FirstHour > c.Flow.LastHour {
		return fmt.Errorf("flow.first_hour must not be after flow.last_hour")
	}
	return nil
}

// Location returns the time zone appointments are offered in.
func (f FlowConfig) Location() *time.Location {
	loc, err := time.LoadLocation(f.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseWeekday accepts English weekday names, case-insensitive.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == n {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
