package app

import (
	"context"
	"testing"

	"voice-scribe-service/internal/config"
	"voice-scribe-service/internal/settings"
)

func testConfig(t *testing.T) *config.Configuration {
	t.Helper()
	cfg := config.Load()
	cfg.Recognizer.Provider = "mock"
	cfg.Settings.Backend = "memory"
	cfg.Settings.DefaultLanguage = "fr-FR"
	cfg.Kafka.Enabled = false
	return cfg
}

func TestApplication_Lifecycle(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Ready() {
		t.Error("expected not ready before Start")
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !a.Ready() {
		t.Error("expected ready after Start")
	}

	prefs, err := a.Settings.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if prefs.Language != "fr-FR" {
		t.Errorf("expected seeded language fr-FR, got %s", prefs.Language)
	}

	a.Shutdown()
	if a.Ready() {
		t.Error("expected not ready after Shutdown")
	}
}

func TestNew_RejectsUnknownBackends(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Configuration)
	}{
		{"recognizer", func(c *config.Configuration) { c.Recognizer.Provider = "carrier-pigeon" }},
		{"settings", func(c *config.Configuration) { c.Settings.Backend = "floppy" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			if _, err := New(cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNew_FileBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Settings.Backend = "file"
	cfg.Settings.Path = t.TempDir() + "/settings.yaml"

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown()
	if _, ok := a.Settings.(*settings.FileStore); !ok {
		t.Errorf("expected a file store, got %T", a.Settings)
	}
}

func TestSourceFactory(t *testing.T) {
	for _, provider := range []string{"remote", "mock", "google", ""} {
		factory, err := sourceFactory(config.RecognizerConfig{Provider: provider})
		if err != nil || factory == nil {
			t.Errorf("provider %q: unexpected error %v", provider, err)
		}
	}
}
