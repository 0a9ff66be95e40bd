package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type SMTPConfig struct {
	Host          string
	Port          string
	User          string
	Pass          string
	TLSMode       string // "", "tls", "starttls"
	SkipVerifyTLS bool

	FromName  string
	FromEmail string
}

// SlackConfig carries everything needed to talk to the approvals channel.
// Token and channel are always passed together so a message can never be
// posted to a channel with the wrong workspace token.
type SlackConfig struct {
	BotToken      string
	SigningSecret string
	ChannelID     string
	APIBaseURL    string // override for tests; default https://slack.com/api
}

type OrderStoreConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

type Config struct {
	Env  string // dev|prod
	Addr string

	DBDSN string // optional; interaction audit log is skipped when empty

	Slack      SlackConfig
	OrderStore OrderStoreConfig

	MailerDriver    string // smtp|mailtrap|mock
	SMTP            SMTPConfig
	MailtrapAPIURL  string
	MailtrapAPIKey  string

	// bcrypt hash of the shared token the intake form sends
	IntakeTokenHash string

	OperatorEmail string

	// optional YAML file overriding the refund schedule percentages
	ScheduleFile string
}

func FromEnv() (Config, error) {
	cfg := Config{
		Env:  envOr("APP_ENV", "dev"),
		Addr: envOr("APP_ADDR", ":8080"),

		DBDSN: os.Getenv("DB_DSN"),

		Slack: SlackConfig{
			BotToken:      os.Getenv("SLACK_BOT_TOKEN"),
			SigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
			ChannelID:     os.Getenv("SLACK_REFUNDS_CHANNEL_ID"),
			APIBaseURL:    envOr("SLACK_API_BASE_URL", "https://slack.com/api"),
		},

		OrderStore: OrderStoreConfig{
			BaseURL:     os.Getenv("ORDERSTORE_BASE_URL"),
			AccessToken: os.Getenv("ORDERSTORE_ACCESS_TOKEN"),
			Timeout:     envDurationOr("ORDERSTORE_TIMEOUT", 10*time.Second),
		},

		MailerDriver:   envOr("MAILER_DRIVER", "smtp"),
		MailtrapAPIURL: os.Getenv("MAILTRAP_API_URL"),
		MailtrapAPIKey: os.Getenv("MAILTRAP_API_TOKEN"),
		SMTP: SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			Port:          envOr("SMTP_PORT", "587"),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			TLSMode:       envOr("SMTP_TLS_MODE", "starttls"),
			SkipVerifyTLS: envBoolOr("SMTP_SKIP_VERIFY_TLS", false),
			FromName:      envOr("SMTP_FROM_NAME", "BARS Refunds"),
			FromEmail:     envOr("SMTP_FROM_EMAIL", "no-reply@bigapplerecsports.com"),
		},

		IntakeTokenHash: os.Getenv("INTAKE_TOKEN_HASH"),
		OperatorEmail:   os.Getenv("OPERATOR_ALERT_EMAIL"),
		ScheduleFile:    os.Getenv("REFUND_SCHEDULE_FILE"),
	}

	if cfg.Slack.BotToken == "" {
		return Config{}, fmt.Errorf("SLACK_BOT_TOKEN is required")
	}
	if cfg.Slack.SigningSecret == "" {
		return Config{}, fmt.Errorf("SLACK_SIGNING_SECRET is required")
	}
	if cfg.Slack.ChannelID == "" {
		return Config{}, fmt.Errorf("SLACK_REFUNDS_CHANNEL_ID is required")
	}
	if cfg.OrderStore.BaseURL == "" {
		return Config{}, fmt.Errorf("ORDERSTORE_BASE_URL is required")
	}
	if cfg.OrderStore.AccessToken == "" {
		return Config{}, fmt.Errorf("ORDERSTORE_ACCESS_TOKEN is required")
	}

	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBoolOr(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDurationOr(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
