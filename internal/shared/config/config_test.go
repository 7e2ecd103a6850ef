package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"ENV", "PORT", "LLM_PROVIDER", "SESSION_TTL", "LLM_MAX_TOKENS", "OBJECT_STORE", "COOKIE_SECURE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.LLMProvider != "anthropic" {
		t.Fatalf("expected anthropic provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMMaxTokens != 4096 {
		t.Fatalf("expected 4096 max tokens, got %d", cfg.LLMMaxTokens)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("unexpected session ttl %s", cfg.SessionTTL)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.CookieSecure {
		t.Fatalf("expected insecure cookies in dev")
	}
	if !cfg.IsDevLike() {
		t.Fatalf("expected dev-like config")
	}
}

func TestLoadReadsDotEnvWithoutOverridingProcessEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "PORT=9999\nLLM_PROVIDER=openai\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("LLM_PROVIDER", "")
	os.Unsetenv("LLM_PROVIDER")

	cfg := Load()
	if cfg.Port != "7000" {
		t.Fatalf("expected process env to win, got %q", cfg.Port)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected provider from .env, got %q", cfg.LLMProvider)
	}
}

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{
		"prod":        "production",
		"Production":  "production",
		"staging":     "staging",
		"local":       "local",
		"development": "dev",
		"unknown":     "dev",
	}
	for in, want := range cases {
		if got := normalizeEnv(in); got != want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	if got := getEnvDuration("SESSION_TTL", time.Hour); got != time.Hour {
		t.Fatalf("expected fallback, got %s", got)
	}
}
