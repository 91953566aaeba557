package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/microsites/internal/config"
)

func TestWriteConfig(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeConfig(&buf, "-"); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !strings.HasPrefix(buf.String(), "# Microsites configuration example") {
			t.Errorf("Expected header, got %q", buf.String()[:40])
		}

		var parsed config.Config
		if err := yaml.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("Expected valid YAML, got %v", err)
		}
		if parsed.Site.BaseURL != config.Default().Site.BaseURL {
			t.Errorf("Expected default base URL, got %q", parsed.Site.BaseURL)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.example.yaml")
		var buf bytes.Buffer
		if err := writeConfig(&buf, path); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected file to exist, got %v", err)
		}
		if !strings.Contains(buf.String(), path) {
			t.Errorf("Expected output to name the file, got %q", buf.String())
		}
	})
}
