// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/companion")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_secret")
}

func TestParseDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Parse("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 15, cfg.LLM.HistoryWindow)
	assert.Equal(t, 150, cfg.LLM.MaxTokens)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
	assert.Equal(t, "INR", cfg.Razorpay.Currency)
	assert.Equal(t, 1024, cfg.Voice.MinAudioBytes)
	assert.Equal(t, "sid", cfg.Session.CookieName)
	assert.Equal(t, 168*time.Hour, cfg.Session.TTL)
	assert.Contains(t, cfg.ElevenLabs.Voices, "default")
	assert.False(t, cfg.Payment.AllowLinkCompletion)
}

func TestParseFileOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := []byte(`
server:
  port: 9090
llm:
  history_window: 10
admin:
  allowed_hosts:
    - example.dev
`)
	require.NoError(t, os.WriteFile(path, yml, 0o600))

	cfg, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10, cfg.LLM.HistoryWindow)
	assert.Equal(t, []string{"example.dev"}, cfg.Admin.AllowedHosts)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name  string
		unset string
		set   map[string]string
	}{
		{name: "missing database", unset: "DATABASE_URL"},
		{name: "missing razorpay secret", unset: "RAZORPAY_KEY_SECRET"},
		{name: "short session secret", set: map[string]string{"SESSION_SECRET": "short"}},
		{name: "unknown provider", set: map[string]string{"LLM_PROVIDER": "llama"}},
		{name: "gemini without key", set: map[string]string{"LLM_PROVIDER": "gemini"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			if tt.unset != "" {
				t.Setenv(tt.unset, "")
			}
			for k, v := range tt.set {
				t.Setenv(k, v)
			}

			_, err := Parse("")
			assert.Error(t, err)
		})
	}
}

func TestAdminHostAllowed(t *testing.T) {
	a := AdminConfig{AllowedHosts: []string{"localhost", ".replit.dev"}}

	assert.True(t, a.HostAllowed("localhost:5000"))
	assert.True(t, a.HostAllowed("LOCALHOST"))
	assert.True(t, a.HostAllowed("my-app.replit.dev"))
	assert.False(t, a.HostAllowed("replit.dev.evil.com"))
	assert.False(t, a.HostAllowed("example.com"))
	assert.False(t, a.HostAllowed(""))
}
