package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// SupportedVersion is the only configuration schema version understood by LoadConfig.
const SupportedVersion = "1"

// Config represents the complete configuration structure
type Config struct {
	Version  string         `yaml:"version" default:"1"`
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Client   ClientConfig   `yaml:"client"`
	Cache    CacheConfig    `yaml:"cache"`
	Pages    PagesConfig    `yaml:"pages"`
	Theme    ThemeConfig    `yaml:"theme"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name    string `yaml:"name" default:"Microsites"`
	BaseURL string `yaml:"base_url" default:"http://localhost:12600"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12600"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" default:"./microsites.db"`
}

type AuthConfig struct {
	// Type is either "ed25519" or "clerk".
	Type       string `yaml:"type" default:"ed25519"`
	HeaderName string `yaml:"header_name" default:"Authorization"`
	// Keys maps a principal to its Ed25519 public key in PEM form.
	Keys map[string]string `yaml:"keys"`
	// Admins hold the admin role until an admin assigns them another one.
	Admins []string `yaml:"admins"`
}

type ClientConfig struct {
	BackendURL string        `yaml:"backend_url" default:"http://localhost:12600"`
	Principal  string        `yaml:"principal" default:""`
	KeyFile    string        `yaml:"key_file" default:"privkey.pem"`
	Timeout    time.Duration `yaml:"timeout" default:"30s"`
}

type CacheConfig struct {
	// MaxAge bounds owner-scoped entries. Zero keeps them until invalidated.
	MaxAge time.Duration `yaml:"max_age" default:"0s"`
	// PublicMaxAge lets public entries be served from cache for a while.
	// Zero refetches them on every read.
	PublicMaxAge time.Duration `yaml:"public_max_age" default:"0s"`
}

type PagesConfig struct {
	// Store is one of "none", "fs" or "s3".
	Store    string `yaml:"store" default:"none"`
	Dir      string `yaml:"dir" default:"./public"`
	Bucket   string `yaml:"bucket" default:""`
	Endpoint string `yaml:"endpoint" default:""`
	Region   string `yaml:"region" default:"auto"`
}

type ThemeConfig struct {
	Default            string       `yaml:"default" default:"light"`
	SyntaxHighlighting SyntaxConfig `yaml:"syntax_highlighting"`
}

type SyntaxConfig struct {
	DefaultDark  string `yaml:"default_dark" default:"gruvbox"`
	DefaultLight string `yaml:"default_light" default:"catppuccin-latte"`
}

var AppConfig *Config

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

func (c *Config) Validate() error {
	if c.Version != SupportedVersion {
		return fmt.Errorf("unsupported configuration version %q (want %q)", c.Version, SupportedVersion)
	}

	switch c.Auth.Type {
	case AuthTypeEd25519, AuthTypeClerk:
	default:
		return fmt.Errorf("unsupported auth type %q", c.Auth.Type)
	}

	switch c.Pages.Store {
	case PagesStoreNone, PagesStoreFS:
	case PagesStoreS3:
		if c.Pages.Bucket == "" {
			return fmt.Errorf("pages.bucket is required when pages.store is %q", PagesStoreS3)
		}
	default:
		return fmt.Errorf("unsupported pages store %q", c.Pages.Store)
	}

	if c.Cache.MaxAge < 0 || c.Cache.PublicMaxAge < 0 {
		return fmt.Errorf("cache ages must not be negative")
	}

	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		if field.Type() == durationType {
			if val, err := time.ParseDuration(defaultValue); err == nil {
				field.SetInt(int64(val))
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
