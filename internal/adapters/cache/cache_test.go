package cache

import (
	"testing"
	"time"

	"otcsettle/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestQuotationCache_SetAndGet(t *testing.T) {
	c, err := NewQuotationCache(128, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	q := domain.Quotation{Instrument: "BTCUSD.SPOT", Base: "BTC", Quote: "USD", Buy: decimal.NewFromInt(60010), Sell: decimal.NewFromInt(59990), Provider: "LPDESK"}
	c.Set(q)
	c.cache.Wait()

	got, ok := c.Get("BTCUSD.SPOT")
	require.True(t, ok)
	require.Equal(t, "BTC", got.Base)
	require.True(t, got.Buy.Equal(q.Buy))
}

func TestQuotationCache_MissWhenEmpty(t *testing.T) {
	c, err := NewQuotationCache(64, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("ETHUSD.SPOT")
	require.False(t, ok)
}

func TestQuotationCache_EntriesExpire(t *testing.T) {
	c, err := NewQuotationCache(64, 50*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	c.Set(domain.Quotation{Instrument: "BTCUSD.SPOT"})
	c.cache.Wait()
	_, ok := c.Get("BTCUSD.SPOT")
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := c.Get("BTCUSD.SPOT")
		return !ok
	}, 3*time.Second, 20*time.Millisecond)
}

func TestQuotationCache_Delete(t *testing.T) {
	c, err := NewQuotationCache(64, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	c.Set(domain.Quotation{Instrument: "BTCUSD.SPOT"})
	c.Set(domain.Quotation{Instrument: "ETHUSD.SPOT"})
	c.cache.Wait()

	c.Delete("BTCUSD.SPOT")

	_, ok := c.Get("BTCUSD.SPOT")
	require.False(t, ok)
	_, ok = c.Get("ETHUSD.SPOT")
	require.True(t, ok)
}

func TestMarketCache_ReplaceAndLookup(t *testing.T) {
	c, err := NewMarketCache(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.GetByPair("BTC", "USD")
	require.False(t, ok)
	require.Nil(t, c.All())

	c.Replace([]domain.CryptoMarket{
		{Name: "BTCUSD.SPOT", Base: "BTC", Quote: "USD", MinSize: decimal.RequireFromString("0.001")},
		{Name: "ETHUSD.SPOT", Base: "ETH", Quote: "USD"},
	})

	m, ok := c.GetByPair("btc", "usd")
	require.True(t, ok)
	require.Equal(t, "BTCUSD.SPOT", m.Name)
	require.Len(t, c.All(), 2)

	c.Replace([]domain.CryptoMarket{{Name: "ETHUSD.SPOT", Base: "ETH", Quote: "USD"}})
	_, ok = c.GetByPair("BTC", "USD")
	require.False(t, ok)
}
