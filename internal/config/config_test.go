package config

import (
	"errors"
	"strings"
	"testing"
)

// validConfig returns a Config that passes Validate.
func validConfig() Config {
	return Config{
		Provider:         ProviderGemini,
		ModelName:        "gemini-2.5-flash",
		EmbedderModel:    "gemini-embedding-001",
		MaxResults:       DefaultMaxResults,
		MaxHistory:       DefaultMaxHistory,
		MaxTurns:         DefaultMaxRounds,
		ChunkSize:        DefaultChunkSize,
		ChunkOverlap:     DefaultChunkOverlap,
		DocsDir:          "./docs",
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "ragchat",
		PostgresPassword: "secret-password",
		PostgresDBName:   "ragchat",
		PostgresSSLMode:  "disable",
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		cfg := validConfig()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate() = %v, want nil", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty model name", func(c *Config) { c.ModelName = " " }, ErrInvalidModelName},
		{"empty embedder model", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedderModel},
		{"max_results zero", func(c *Config) { c.MaxResults = 0 }, ErrInvalidMaxResults},
		{"max_results too large", func(c *Config) { c.MaxResults = 101 }, ErrInvalidMaxResults},
		{"negative max_history", func(c *Config) { c.MaxHistory = -1 }, ErrInvalidMaxHistory},
		{"max_turns zero", func(c *Config) { c.MaxTurns = 0 }, ErrInvalidMaxRounds},
		{"chunk_size too small", func(c *Config) { c.ChunkSize = 50 }, ErrInvalidChunking},
		{"overlap exceeds chunk_size", func(c *Config) { c.ChunkOverlap = 800 }, ErrInvalidChunking},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"postgres port out of range", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("max_history zero disables memory and is valid", func(t *testing.T) {
		cfg := validConfig()
		cfg.MaxHistory = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})
}

func TestFullModelName(t *testing.T) {
	cfg := validConfig()
	if got := cfg.FullModelName(); got != "googleai/gemini-2.5-flash" {
		t.Errorf("FullModelName() = %q", got)
	}

	cfg.ModelName = "mock/test-model"
	if got := cfg.FullModelName(); got != "mock/test-model" {
		t.Errorf("FullModelName() = %q, want pass-through", got)
	}
}

func TestPostgresURL(t *testing.T) {
	cfg := validConfig()
	got := cfg.PostgresURL()

	if !strings.HasPrefix(got, "postgres://") {
		t.Errorf("PostgresURL() = %q, want postgres:// scheme", got)
	}
	if !strings.Contains(got, "localhost:5432") {
		t.Errorf("PostgresURL() = %q, missing host", got)
	}
	if !strings.Contains(got, "sslmode=disable") {
		t.Errorf("PostgresURL() = %q, missing sslmode", got)
	}
}

func TestSecretMasking(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "super-secret-password-123"

	for name, out := range map[string]string{
		"String":      cfg.String(),
		"MarshalJSON": func() string { b, _ := cfg.MarshalJSON(); return string(b) }(),
	} {
		if strings.Contains(out, "super-secret-password-123") {
			t.Errorf("%s leaked the password: %s", name, out)
		}
		if !strings.Contains(out, maskedValue) {
			t.Errorf("%s does not mask the password: %s", name, out)
		}
	}

	t.Run("short secrets fully masked", func(t *testing.T) {
		if got := maskSecret("abc"); got != maskedValue {
			t.Errorf("maskSecret(short) = %q", got)
		}
	})

	t.Run("empty secret stays empty", func(t *testing.T) {
		if got := maskSecret(""); got != "" {
			t.Errorf("maskSecret(\"\") = %q", got)
		}
	})
}
