package remittance

import (
	"testing"
	"time"

	"otcsettle/internal/config"
	"otcsettle/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestTradingWindow_IsOpen(t *testing.T) {
	w, err := NewTradingWindow(pspConfig())
	require.NoError(t, err)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{name: "before open", at: time.Date(2026, 10, 14, 8, 59, 59, 0, time.UTC), want: false},
		{name: "at open", at: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC), want: true},
		{name: "midday", at: time.Date(2026, 10, 14, 12, 30, 0, 0, time.UTC), want: true},
		{name: "last second", at: time.Date(2026, 10, 14, 15, 59, 59, 0, time.UTC), want: true},
		{name: "at close", at: time.Date(2026, 10, 14, 16, 0, 0, 0, time.UTC), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, w.IsOpen(tc.at))
		})
	}
}

func TestTradingWindow_OvernightWindow(t *testing.T) {
	cfg := pspConfig()
	cfg.MarketOpen, cfg.MarketClose = "22:00", "06:00"
	w, err := NewTradingWindow(cfg)
	require.NoError(t, err)

	require.True(t, w.IsOpen(time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)))
	require.True(t, w.IsOpen(time.Date(2026, 10, 14, 5, 0, 0, 0, time.UTC)))
	require.False(t, w.IsOpen(time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)))
}

func TestTradingWindow_UsesPSPLocation(t *testing.T) {
	cfg := pspConfig()
	cfg.Location = "America/Mexico_City"
	w, err := NewTradingWindow(cfg)
	require.NoError(t, err)

	// 14:30 UTC is 08:30 in Mexico City
	require.False(t, w.IsOpen(time.Date(2026, 10, 14, 14, 30, 0, 0, time.UTC)))
	require.True(t, w.IsOpen(time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)))

	// 03:00 UTC on the 15th is still the 14th there
	require.Equal(t, "2026-10-14", w.Day(time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)))
}

func TestTradingWindow_Codes(t *testing.T) {
	cfg := pspConfig()
	cfg.StartingTimes = []config.StartingTime{
		{StartingTime: "13:30", SendDateCode: "D1", ReceiveDateCode: "D1"},
		{StartingTime: "10:00", SendDateCode: "D0", ReceiveDateCode: "D0"},
	}
	w, err := NewTradingWindow(cfg)
	require.NoError(t, err)

	at := func(h, m int) time.Time { return time.Date(2026, 10, 14, h, m, 0, 0, time.UTC) }
	require.Equal(t, domain.SettlementCodes{Send: "D0", Receive: "D1"}, w.Codes(at(9, 30)))
	require.Equal(t, domain.SettlementCodes{Send: "D0", Receive: "D0"}, w.Codes(at(10, 0)))
	require.Equal(t, domain.SettlementCodes{Send: "D0", Receive: "D0"}, w.Codes(at(13, 29)))
	require.Equal(t, domain.SettlementCodes{Send: "D1", Receive: "D1"}, w.Codes(at(15, 0)))
}

func TestNewTradingWindow_InvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.PSP)
		wantErr string
	}{
		{name: "location", mutate: func(c *config.PSP) { c.Location = "Mars/Olympus" }, wantErr: "invalid psp.location"},
		{name: "open", mutate: func(c *config.PSP) { c.MarketOpen = "9am" }, wantErr: "invalid psp.market_open"},
		{name: "close", mutate: func(c *config.PSP) { c.MarketClose = "25:00" }, wantErr: "invalid psp.market_close"},
		{name: "starting time", mutate: func(c *config.PSP) {
			c.StartingTimes = []config.StartingTime{{StartingTime: "noon"}}
		}, wantErr: "invalid psp starting time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := pspConfig()
			tc.mutate(&cfg)
			_, err := NewTradingWindow(cfg)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
