package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		if config.Version != "1" {
			t.Errorf("Expected version '1', got %q", config.Version)
		}
		if config.Site.Name != "Microsites" {
			t.Errorf("Expected site name 'Microsites', got %q", config.Site.Name)
		}
		if config.Site.BaseURL != "http://localhost:12600" {
			t.Errorf("Expected default base URL, got %q", config.Site.BaseURL)
		}
		if config.Server.Host != "0.0.0.0" {
			t.Errorf("Expected host '0.0.0.0', got %q", config.Server.Host)
		}
		if config.Server.Port != "12600" {
			t.Errorf("Expected port '12600', got %q", config.Server.Port)
		}
		if config.Database.Path != "./microsites.db" {
			t.Errorf("Expected database path './microsites.db', got %q", config.Database.Path)
		}
		if config.Auth.Type != AuthTypeEd25519 {
			t.Errorf("Expected auth type 'ed25519', got %q", config.Auth.Type)
		}
		if config.Auth.HeaderName != "Authorization" {
			t.Errorf("Expected auth header 'Authorization', got %q", config.Auth.HeaderName)
		}
		if config.Client.Timeout != 30*time.Second {
			t.Errorf("Expected client timeout 30s, got %v", config.Client.Timeout)
		}
		if config.Cache.MaxAge != 0 {
			t.Errorf("Expected cache max age 0, got %v", config.Cache.MaxAge)
		}
		if config.Cache.PublicMaxAge != 0 {
			t.Errorf("Expected public max age 0, got %v", config.Cache.PublicMaxAge)
		}
		if config.Pages.Store != PagesStoreNone {
			t.Errorf("Expected pages store 'none', got %q", config.Pages.Store)
		}
		if config.Pages.Region != "auto" {
			t.Errorf("Expected pages region 'auto', got %q", config.Pages.Region)
		}
		if config.Theme.Default != "light" {
			t.Errorf("Expected theme 'light', got %q", config.Theme.Default)
		}
		if config.Theme.SyntaxHighlighting.DefaultDark != DefaultDarkSyntaxTheme {
			t.Errorf("Expected dark syntax theme 'gruvbox', got %q", config.Theme.SyntaxHighlighting.DefaultDark)
		}
		if config.Theme.SyntaxHighlighting.DefaultLight != DefaultLightSyntaxTheme {
			t.Errorf("Expected light syntax theme 'catppuccin-latte', got %q", config.Theme.SyntaxHighlighting.DefaultLight)
		}
		if config.Logging.Level != "info" {
			t.Errorf("Expected logging level 'info', got %q", config.Logging.Level)
		}
	})

	t.Run("Custom struct with various field types", func(t *testing.T) {
		type TestStruct struct {
			StringField   string        `default:"test-string"`
			BoolField     bool          `default:"true"`
			IntField      int           `default:"42"`
			Float64Field  float64       `default:"3.14"`
			SliceField    []string      `default:"a,b,c"`
			DurationField time.Duration `default:"1m30s"`
			NoDefault     string
		}

		test := &TestStruct{}
		applyDefaults(test)

		if test.StringField != "test-string" {
			t.Errorf("Expected string field 'test-string', got %q", test.StringField)
		}
		if !test.BoolField {
			t.Error("Expected bool field to be true")
		}
		if test.IntField != 42 {
			t.Errorf("Expected int field 42, got %d", test.IntField)
		}
		if test.Float64Field != 3.14 {
			t.Errorf("Expected float64 field 3.14, got %f", test.Float64Field)
		}
		expectedSlice := []string{"a", "b", "c"}
		if !reflect.DeepEqual(test.SliceField, expectedSlice) {
			t.Errorf("Expected slice %v, got %v", expectedSlice, test.SliceField)
		}
		if test.DurationField != 90*time.Second {
			t.Errorf("Expected duration 1m30s, got %v", test.DurationField)
		}
		if test.NoDefault != "" {
			t.Errorf("Expected no default field to be empty, got %q", test.NoDefault)
		}
	})

	t.Run("Invalid default values", func(t *testing.T) {
		type InvalidStruct struct {
			BadBool     bool          `default:"not-a-bool"`
			BadInt      int           `default:"not-an-int"`
			BadDuration time.Duration `default:"soon"`
		}

		test := &InvalidStruct{}
		applyDefaults(test)

		if test.BadBool {
			t.Error("Expected invalid bool default to remain false")
		}
		if test.BadInt != 0 {
			t.Errorf("Expected invalid int default to remain 0, got %d", test.BadInt)
		}
		if test.BadDuration != 0 {
			t.Errorf("Expected invalid duration default to remain 0, got %v", test.BadDuration)
		}
	})

	t.Run("Non-struct input", func(t *testing.T) {
		stringVar := "test"
		applyDefaults(&stringVar)
		applyDefaults(stringVar)
		applyDefaults(42)
		applyDefaults(nil)
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config content: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	t.Run("Load non-existent config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		if err := LoadConfig("non-existent-config.yaml"); err != nil {
			t.Errorf("Expected no error for non-existent config file, got %v", err)
		}
		if AppConfig == nil {
			t.Fatal("Expected AppConfig to be set with defaults")
		}
		if AppConfig.Site.Name != DefaultSiteName {
			t.Errorf("Expected default site name, got %q", AppConfig.Site.Name)
		}
	})

	t.Run("Load valid config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		path := writeConfig(t, `
version: "1"
site:
  name: "My Sites"
  base_url: "https://sites.example.com"
server:
  port: "8080"
auth:
  type: clerk
  keys:
    alice: "-----BEGIN PUBLIC KEY-----"
cache:
  max_age: 5m
pages:
  store: fs
  dir: /tmp/pages
`)

		if err := LoadConfig(path); err != nil {
			t.Fatalf("Expected no error loading valid config, got %v", err)
		}
		if AppConfig.Site.Name != "My Sites" {
			t.Errorf("Expected site name 'My Sites', got %q", AppConfig.Site.Name)
		}
		if AppConfig.Site.BaseURL != "https://sites.example.com" {
			t.Errorf("Expected base URL to be overridden, got %q", AppConfig.Site.BaseURL)
		}
		if AppConfig.Server.Port != "8080" {
			t.Errorf("Expected port '8080', got %q", AppConfig.Server.Port)
		}
		if AppConfig.Server.Host != DefaultServerHost {
			t.Errorf("Expected untouched host to keep its default, got %q", AppConfig.Server.Host)
		}
		if AppConfig.Auth.Type != AuthTypeClerk {
			t.Errorf("Expected auth type 'clerk', got %q", AppConfig.Auth.Type)
		}
		if AppConfig.Auth.Keys["alice"] == "" {
			t.Error("Expected key for alice to be loaded")
		}
		if AppConfig.Cache.MaxAge != 5*time.Minute {
			t.Errorf("Expected max age 5m, got %v", AppConfig.Cache.MaxAge)
		}
		if AppConfig.Cache.PublicMaxAge != 0 {
			t.Errorf("Expected public max age to keep its default, got %v", AppConfig.Cache.PublicMaxAge)
		}
		if AppConfig.Addr() != "0.0.0.0:8080" {
			t.Errorf("Expected addr '0.0.0.0:8080', got %q", AppConfig.Addr())
		}
	})

	t.Run("Load malformed config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		path := writeConfig(t, "site: [unterminated")
		err := LoadConfig(path)
		if err == nil {
			t.Fatal("Expected error for malformed YAML")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected parse error, got %v", err)
		}
		if AppConfig != originalAppConfig {
			t.Error("Expected AppConfig to be left untouched on error")
		}
	})
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad version", func(c *Config) { c.Version = "2" }, "unsupported configuration version"},
		{"bad auth", func(c *Config) { c.Auth.Type = "basic" }, "unsupported auth type"},
		{"bad store", func(c *Config) { c.Pages.Store = "ftp" }, "unsupported pages store"},
		{"s3 without bucket", func(c *Config) { c.Pages.Store = PagesStoreS3 }, "pages.bucket is required"},
		{"s3 with bucket", func(c *Config) { c.Pages.Store = PagesStoreS3; c.Pages.Bucket = "b" }, ""},
		{"negative age", func(c *Config) { c.Cache.MaxAge = -time.Second }, "must not be negative"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
