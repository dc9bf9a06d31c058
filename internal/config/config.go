package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

// Config stores runtime configuration loaded from an optional YAML file and environment
// variables. It is built once at startup and passed to the components that need it.
type Config struct {
	Port        string `yaml:"port" validate:"required"`
	DatabaseURL string `yaml:"database_url"`

	// CronSecret guards the invocation endpoint. An empty secret is only accepted
	// together with AuthDisabled.
	CronSecret   string `yaml:"cron_secret" validate:"required_if=AuthDisabled false"`
	AuthDisabled bool   `yaml:"auth_disabled"`

	// SummaryHour optionally restricts the daily summary pass to one hour of the day in
	// DefaultTimezone; -1 leaves it open on every run.
	SummaryHour     int            `yaml:"summary_hour" validate:"gte=-1,lte=23"`
	DefaultTimezone string         `yaml:"default_timezone" validate:"required,timezone"`
	Location        *time.Location `yaml:"-" validate:"-"`

	SendTimeout     time.Duration `yaml:"send_timeout" validate:"gt=0"`
	SendRatePerSec  int           `yaml:"send_rate_per_sec" validate:"gte=0"`
	DispatchWorkers int           `yaml:"dispatch_workers" validate:"gte=1,lte=64"`
	DefaultChannel  string        `yaml:"default_channel" validate:"oneof=whatsapp sms telegram slack"`
	TriggerSchedule string        `yaml:"trigger_schedule"`

	TwilioAccountSID     string `yaml:"twilio_account_sid"`
	TwilioAuthToken      string `yaml:"twilio_auth_token"`
	TwilioWhatsAppNumber string `yaml:"twilio_whatsapp_number"`
	TwilioSMSNumber      string `yaml:"twilio_sms_number"`
	TelegramBotToken     string `yaml:"telegram_bot_token"`
	SlackBotToken        string `yaml:"slack_bot_token"`
	OpenAIAPIKey         string `yaml:"openai_api_key"`

	LogLevel   string `yaml:"log_level"`
	LogConsole bool   `yaml:"log_console"`
}

// Default returns the configuration used when nothing overrides a field.
func Default() *Config {
	return &Config{
		Port:            "8080",
		SummaryHour:     -1,
		DefaultTimezone: "UTC",
		SendTimeout:     10 * time.Second,
		SendRatePerSec:  5,
		DispatchWorkers: 1,
		DefaultChannel:  "whatsapp",
		LogLevel:        "info",
	}
}

// Load reads .env, then CONFIG_FILE (YAML) when set, then environment variables, and
// validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and resolves Location.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}

	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return fmt.Errorf("config: DEFAULT_TIMEZONE %q: %w", c.DefaultTimezone, err)
	}
	c.Location = loc
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config: yaml unmarshal %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.CronSecret, "CRON_SECRET")
	setString(&c.DefaultTimezone, "DEFAULT_TIMEZONE")
	// Older deployments configured the zone as LOCAL_TIMEZONE.
	if os.Getenv("DEFAULT_TIMEZONE") == "" {
		setString(&c.DefaultTimezone, "LOCAL_TIMEZONE")
	}
	setString(&c.DefaultChannel, "DEFAULT_CHANNEL")
	setString(&c.TriggerSchedule, "TRIGGER_SCHEDULE")
	setString(&c.TwilioAccountSID, "TWILIO_ACCOUNT_SID")
	setString(&c.TwilioAuthToken, "TWILIO_AUTH_TOKEN")
	setString(&c.TwilioWhatsAppNumber, "TWILIO_WHATSAPP_NUMBER")
	setString(&c.TwilioSMSNumber, "TWILIO_SMS_NUMBER")
	setString(&c.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.SlackBotToken, "SLACK_BOT_TOKEN")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.LogLevel, "LOG_LEVEL")

	var errs []error
	errs = append(errs,
		setBool(&c.AuthDisabled, "AUTH_DISABLED"),
		setBool(&c.LogConsole, "LOG_CONSOLE"),
		setInt(&c.SummaryHour, "SUMMARY_HOUR"),
		setInt(&c.SendRatePerSec, "SEND_RATE_PER_SEC"),
		setInt(&c.DispatchWorkers, "DISPATCH_WORKERS"),
		setDuration(&c.SendTimeout, "SEND_TIMEOUT"),
	)
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setBool(dst *bool, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("config: unable to parse %s=%q as bool: %w", key, value, err)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("config: unable to parse %s=%q as int: %w", key, value, err)
	}
	*dst = parsed
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("config: unable to parse %s=%q as duration: %w", key, value, err)
	}
	*dst = parsed
	return nil
}
