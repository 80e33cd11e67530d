package serve

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/jcbrates/server/config"
)

func newTestServeCfg(t *testing.T, args ...string) *serveCfg {
	t.Helper()

	cfg := &serveCfg{}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfg.registerFlags(fs)
	cfg.fs = fs

	require.NoError(t, fs.Parse(args))

	return cfg
}

func TestServe_LoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := newTestServeCfg(t).loadConfig()
		require.NoError(t, err)

		assert.Equal(t, config.DefaultConfig(), cfg)
	})

	t.Run("flags override the file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.toml")

		content := `
listen_address = "127.0.0.1:9000"

[bot_config]
webhook_secret = "from-file"
default_origin = "USD"
`

		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := newTestServeCfg(
			t,
			"-config", path,
			"-webhook-secret", "from-flag",
			"-token", "123:abc",
			"-webhook-url", "https://bot.example.com/webhook",
		).loadConfig()
		require.NoError(t, err)

		// Not set by a flag, kept from the file
		assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)
		assert.Equal(t, "USD", cfg.BotConfig.DefaultOrigin)

		assert.Equal(t, "from-flag", cfg.BotConfig.WebhookSecret)
		assert.Equal(t, "123:abc", cfg.BotConfig.Token)
		assert.Equal(t, "https://bot.example.com/webhook", cfg.BotConfig.WebhookURL)
	})

	t.Run("webhook URL without a token", func(t *testing.T) {
		t.Parallel()

		_, err := newTestServeCfg(t, "-webhook-url", "https://bot.example.com/webhook").loadConfig()
		assert.ErrorIs(t, err, config.ErrMissingToken)
	})

	t.Run("invalid flag value", func(t *testing.T) {
		t.Parallel()

		_, err := newTestServeCfg(t, "-listen", "localhost").loadConfig()
		assert.ErrorIs(t, err, config.ErrInvalidListenAddress)
	})
}
