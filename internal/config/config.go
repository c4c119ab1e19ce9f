// Package config loads the server configuration from flags, an optional
// config file and RECORD_* environment variables, in that order of
// precedence (flags win).
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validLogFormats    = []string{"text", "json"}
	validStoreDrivers  = []string{"mongo", "sqlite"}
	validEmailProvider = []string{"smtp", "ses", "log"}
)

type Config struct {
	Server  Server
	Log     Log
	App     App
	Auth    Auth
	Google  Google
	Store   Store
	Mongo   Mongo
	SQLite  SQLite
	Redis   Redis
	Email   Email
	SMTP    SMTP
	SES     SES
	YouTube YouTube
}

type Server struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type Log struct {
	Level  string
	Format string
}

type App struct {
	FrontendURL string
	CORSOrigins []string
}

type Auth struct {
	JWTSecret    string
	TokenTTL     time.Duration
	CookieName   string
	CookieDomain string
	BcryptCost   int
}

type Google struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether the Google redirect flow can be offered.
func (g Google) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.CallbackURL != ""
}

type Store struct {
	Driver string
}

type Mongo struct {
	URI      string
	Database string
}

type SQLite struct {
	Path string
}

type Redis struct {
	URL string
}

type Email struct {
	Provider string
	Sender   string
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
}

type SES struct {
	Region string
}

type YouTube struct {
	APIKey     string
	Endpoint   string
	MaxResults int64
	Timeout    time.Duration
}

func setDefaults(vp *v.Viper) {
	vp.SetDefault("server.port", 8080)
	vp.SetDefault("server.read_timeout", 15*time.Second)
	vp.SetDefault("server.write_timeout", 30*time.Second)
	vp.SetDefault("server.idle_timeout", 60*time.Second)

	vp.SetDefault("log.level", "info")
	vp.SetDefault("log.format", "text")

	vp.SetDefault("app.frontend_url", "http://localhost:3000")
	vp.SetDefault("app.cors_origins", []string{"http://localhost:3000"})

	vp.SetDefault("auth.token_ttl", time.Hour)
	vp.SetDefault("auth.cookie_name", "Record-Signature")
	vp.SetDefault("auth.bcrypt_cost", 10)

	vp.SetDefault("store.driver", "sqlite")
	vp.SetDefault("mongo.database", "record")
	vp.SetDefault("sqlite.path", "data/record.db")

	vp.SetDefault("smtp.port", 587)

	vp.SetDefault("youtube.max_results", 50)
	vp.SetDefault("youtube.timeout", 15*time.Second)
}

// Load builds the Config for the given command-line arguments (without the
// program name).
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("record", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a config file (toml, yaml or json)")
	fs.Int("port", 0, "HTTP port (overrides server.port)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	vp := v.New()
	setDefaults(vp)

	if err := vp.BindPFlag("server.port", fs.Lookup("port")); err != nil {
		return nil, fmt.Errorf("config: binding port flag: %w", err)
	}

	vp.SetEnvPrefix("RECORD")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if *configFile != "" {
		vp.SetConfigFile(*configFile)
		if err := vp.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", *configFile, err)
		}
	}

	cfg := fromViper(vp)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(vp *v.Viper) *Config {
	return &Config{
		Server: Server{
			Port:         vp.GetInt("server.port"),
			ReadTimeout:  vp.GetDuration("server.read_timeout"),
			WriteTimeout: vp.GetDuration("server.write_timeout"),
			IdleTimeout:  vp.GetDuration("server.idle_timeout"),
		},
		Log: Log{
			Level:  strings.ToLower(vp.GetString("log.level")),
			Format: strings.ToLower(vp.GetString("log.format")),
		},
		App: App{
			FrontendURL: strings.TrimRight(vp.GetString("app.frontend_url"), "/"),
			CORSOrigins: splitList(vp.GetStringSlice("app.cors_origins")),
		},
		Auth: Auth{
			JWTSecret:    vp.GetString("auth.jwt_secret"),
			TokenTTL:     vp.GetDuration("auth.token_ttl"),
			CookieName:   vp.GetString("auth.cookie_name"),
			CookieDomain: vp.GetString("auth.cookie_domain"),
			BcryptCost:   vp.GetInt("auth.bcrypt_cost"),
		},
		Google: Google{
			ClientID:     vp.GetString("google.client_id"),
			ClientSecret: vp.GetString("google.client_secret"),
			CallbackURL:  vp.GetString("google.callback_url"),
		},
		Store:  Store{Driver: strings.ToLower(vp.GetString("store.driver"))},
		Mongo:  Mongo{URI: vp.GetString("mongo.uri"), Database: vp.GetString("mongo.database")},
		SQLite: SQLite{Path: vp.GetString("sqlite.path")},
		Redis:  Redis{URL: vp.GetString("redis.url")},
		Email: Email{
			Provider: strings.ToLower(vp.GetString("email.provider")),
			Sender:   vp.GetString("email.sender"),
		},
		SMTP: SMTP{
			Host:     vp.GetString("smtp.host"),
			Port:     vp.GetInt("smtp.port"),
			Username: vp.GetString("smtp.username"),
			Password: vp.GetString("smtp.password"),
		},
		SES: SES{Region: vp.GetString("ses.region")},
		YouTube: YouTube{
			APIKey:     vp.GetString("youtube.api_key"),
			Endpoint:   vp.GetString("youtube.endpoint"),
			MaxResults: vp.GetInt64("youtube.max_results"),
			Timeout:    vp.GetDuration("youtube.timeout"),
		},
	}
}

// splitList accepts both real lists (config files) and comma-separated
// strings (environment variables).
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if !slices.Contains(validLogLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of %v", c.Log.Level, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q is not one of %v", c.Log.Format, validLogFormats))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}

	switch c.Store.Driver {
	case "mongo":
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required when store.driver is mongo"))
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path is required when store.driver is sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of %v", c.Store.Driver, validStoreDrivers))
	}

	if c.Email.Provider == "" {
		errs = append(errs, fmt.Errorf("email.provider is required (one of %v)", validEmailProvider))
	} else if !slices.Contains(validEmailProvider, c.Email.Provider) {
		errs = append(errs, fmt.Errorf("email.provider %q is not one of %v", c.Email.Provider, validEmailProvider))
	}
	if c.Email.Provider != "log" && c.Email.Sender == "" {
		errs = append(errs, errors.New("email.sender is required"))
	}
	if c.Email.Provider == "smtp" && c.SMTP.Host == "" {
		errs = append(errs, errors.New("smtp.host is required when email.provider is smtp"))
	}
	if c.Email.Provider == "ses" && c.SES.Region == "" {
		errs = append(errs, errors.New("ses.region is required when email.provider is ses"))
	}

	if c.YouTube.APIKey == "" {
		errs = append(errs, errors.New("youtube.api_key is required"))
	}
	if c.YouTube.Timeout <= 0 {
		errs = append(errs, errors.New("youtube.timeout must be positive"))
	}

	return errors.Join(errs...)
}
