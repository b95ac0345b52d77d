package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testConfig = `
http_server:
  port: "9090"
psp:
  daily_max_amount: 1000000000
  trade_max_amount: "250000.50"
  market_open: "08:30"
  settlement_currency: MXN
  starting_times:
    - starting_time: "13:00"
      send_date_code: D1
      receive_date_code: D1
gateways:
  - name: LPDESK
    rest_url: https://api.example.test
    allowed_bases: [BTC, ETH]
    reconnect_cooldown_sec: 45
`

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_PATH", path)
}

func TestInit_LoadsFileAndDefaults(t *testing.T) {
	writeConfig(t, testConfig)

	cfg, err := Init()
	require.NoError(t, err)

	require.Equal(t, "9090", cfg.HTTPServer.Port)
	require.Equal(t, "08:30", cfg.PSP.MarketOpen)
	require.Equal(t, "16:00", cfg.PSP.MarketClose)
	require.Equal(t, "D0", cfg.PSP.SendDateCode)
	require.Equal(t, 100, cfg.PSP.PageSize)
	require.True(t, cfg.PSP.DailyMaxAmount.Equal(decimal.NewFromInt(1_000_000_000)))
	require.True(t, cfg.PSP.TradeMaxAmount.Equal(decimal.RequireFromString("250000.50")))
	require.True(t, cfg.PSP.TradeMinAmount.IsZero())
	require.Len(t, cfg.PSP.StartingTimes, 1)
	require.Equal(t, "D1", cfg.PSP.StartingTimes[0].SendDateCode)

	require.Len(t, cfg.Gateways, 1)
	gw := cfg.Gateways[0]
	require.Equal(t, []string{"BTC", "ETH"}, gw.AllowedBases)
	require.Equal(t, 45*time.Second, gw.ReconnectCooldown())
	require.Equal(t, 10*time.Second, gw.Timeout())
}

func TestInit_EnvOverrides(t *testing.T) {
	writeConfig(t, testConfig)
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("GATEWAY_LPDESK_API_KEY", "secret")

	cfg, err := Init()
	require.NoError(t, err)
	require.Equal(t, "7070", cfg.HTTPServer.Port)
	require.Equal(t, "secret", cfg.Gateways[0].APIKey)
}

func TestInit_InvalidAmount(t *testing.T) {
	writeConfig(t, "psp:\n  daily_max_amount: lots\n  trade_max_amount: 1\n")

	_, err := Init()
	require.Error(t, err)
	require.ErrorContains(t, err, "invalid psp.daily_max_amount")
}

func TestInit_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Init()
	require.ErrorContains(t, err, "error reading config file")
}
