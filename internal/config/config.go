package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/threadline/backend/internal/model"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Postgres PostgresConfig
	Discord  DiscordConfig
	Google   GoogleConfig
	Redis    RedisConfig
	Limits   RateLimitConfig
	Policy   PolicyConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr        string
	Mode        string
	CORSOrigins []string
}

type AuthConfig struct {
	JWTSecret   string
	SuperAdmins []model.Identity
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type DiscordConfig struct {
	WebhookURL   string
	ClientID     string
	ClientSecret string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
}

type RedisConfig struct {
	URL string
}

type RateLimitConfig struct {
	Window   time.Duration
	Comments int
	Votes    int
	Reports  int
}

type PolicyConfig struct {
	AllowSelfVote    bool
	MaxCommentLength int
	WarningThreshold int
}

type LogConfig struct {
	Level  string
	Format string
}

// env key -> default
var defaults = map[string]any{
	"SERVER_ADDR":          ":8080",
	"GIN_MODE":             "release",
	"CORS_ALLOWED_ORIGINS": "",
	"PGHOST":               "localhost",
	"PGPORT":               "5432",
	"PGSSLMODE":            "disable",
	"RATE_LIMIT_WINDOW":    "1m",
	"RATE_LIMIT_COMMENTS":  5,
	"RATE_LIMIT_VOTES":     60,
	"RATE_LIMIT_REPORTS":   10,
	"VOTE_ALLOW_SELF":      true,
	"COMMENT_MAX_LENGTH":   2000,
	"WARNING_THRESHOLD":    3,
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "text",
}

var keys = []string{
	"SERVER_ADDR", "GIN_MODE", "CORS_ALLOWED_ORIGINS",
	"JWT_SECRET", "SUPER_ADMINS",
	"DATABASE_URL", "PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE",
	"DISCORD_WEBHOOK_URL", "DISCORD_CLIENT_ID", "DISCORD_CLIENT_SECRET",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET",
	"REDIS_URL",
	"RATE_LIMIT_WINDOW", "RATE_LIMIT_COMMENTS", "RATE_LIMIT_VOTES", "RATE_LIMIT_REPORTS",
	"VOTE_ALLOW_SELF", "COMMENT_MAX_LENGTH", "WARNING_THRESHOLD",
	"LOG_LEVEL", "LOG_FORMAT",
}

// Load reads .env (without overriding the process environment) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	return v
}

// FromViper builds a Config from already-populated viper settings.
func FromViper(v *viper.Viper) (Config, error) {
	var errs []error
	intValue := func(key string) int {
		n, err := cast.ToIntE(v.Get(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid number %q", key, v.GetString(key)))
		}
		return n
	}
	boolValue := func(key string) bool {
		b, err := cast.ToBoolE(v.Get(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, v.GetString(key)))
		}
		return b
	}

	window, err := time.ParseDuration(strings.TrimSpace(v.GetString("RATE_LIMIT_WINDOW")))
	if err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_WINDOW: %w", err))
	}
	admins, err := ParseIdentityList(v.GetString("SUPER_ADMINS"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SUPER_ADMINS: %w", err))
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:        v.GetString("SERVER_ADDR"),
			Mode:        v.GetString("GIN_MODE"),
			CORSOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Auth: AuthConfig{
			JWTSecret:   v.GetString("JWT_SECRET"),
			SuperAdmins: admins,
		},
		Postgres: PostgresConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("PGHOST"),
			Port:        v.GetString("PGPORT"),
			User:        v.GetString("PGUSER"),
			Password:    v.GetString("PGPASSWORD"),
			Database:    v.GetString("PGDATABASE"),
			SSLMode:     v.GetString("PGSSLMODE"),
		},
		Discord: DiscordConfig{
			WebhookURL:   v.GetString("DISCORD_WEBHOOK_URL"),
			ClientID:     v.GetString("DISCORD_CLIENT_ID"),
			ClientSecret: v.GetString("DISCORD_CLIENT_SECRET"),
		},
		Google: GoogleConfig{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		Limits: RateLimitConfig{
			Window:   window,
			Comments: intValue("RATE_LIMIT_COMMENTS"),
			Votes:    intValue("RATE_LIMIT_VOTES"),
			Reports:  intValue("RATE_LIMIT_REPORTS"),
		},
		Policy: PolicyConfig{
			AllowSelfVote:    boolValue("VOTE_ALLOW_SELF"),
			MaxCommentLength: intValue("COMMENT_MAX_LENGTH"),
			WarningThreshold: intValue("WARNING_THRESHOLD"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Limits.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	if c.Limits.Comments <= 0 || c.Limits.Votes <= 0 || c.Limits.Reports <= 0 {
		return errors.New("rate limits must be positive")
	}
	if c.Policy.MaxCommentLength <= 0 {
		return errors.New("COMMENT_MAX_LENGTH must be positive")
	}
	if c.Policy.WarningThreshold <= 0 {
		return errors.New("WARNING_THRESHOLD must be positive")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ParseIdentityList parses "discord:123,google:abc".
func ParseIdentityList(raw string) ([]model.Identity, error) {
	var out []model.Identity
	for _, item := range splitList(raw) {
		providerRaw, subject, ok := strings.Cut(item, ":")
		if !ok || strings.TrimSpace(subject) == "" {
			return nil, fmt.Errorf("invalid identity %q (want provider:subject_id)", item)
		}
		provider, err := model.ParseProvider(providerRaw)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Identity{SubjectID: strings.TrimSpace(subject), Provider: provider})
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
