package cache

import (
	"fmt"
	"otcsettle/internal/domain"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoMarketCache stores the market list of one provider indexed by pair.
// The whole list is replaced on every refresh and expires as a unit.
type RistrettoMarketCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

type marketList struct {
	byPair map[string]domain.CryptoMarket
	all    []domain.CryptoMarket
}

const marketListKey = "markets"

func NewMarketCache(ttl time.Duration) (*RistrettoMarketCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        100,
		MaxCost:            10,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create market cache failed: %w", err)
	}
	return &RistrettoMarketCache{cache: c, ttl: ttl}, nil
}

func (c *RistrettoMarketCache) Replace(markets []domain.CryptoMarket) {
	list := marketList{byPair: make(map[string]domain.CryptoMarket, len(markets)), all: markets}
	for _, m := range markets {
		list.byPair[pairKey(m.Base, m.Quote)] = m
	}
	c.cache.SetWithTTL(marketListKey, list, 1, c.ttl)
	// a refresh must be visible to the next reader, not eventually
	c.cache.Wait()
}

func (c *RistrettoMarketCache) GetByPair(base, quote string) (domain.CryptoMarket, bool) {
	list, ok := c.list()
	if !ok {
		return domain.CryptoMarket{}, false
	}
	m, ok := list.byPair[pairKey(base, quote)]
	return m, ok
}

func (c *RistrettoMarketCache) All() []domain.CryptoMarket {
	list, ok := c.list()
	if !ok {
		return nil
	}
	return list.all
}

func (c *RistrettoMarketCache) Close() { c.cache.Close() }

func (c *RistrettoMarketCache) list() (marketList, bool) {
	v, ok := c.cache.Get(marketListKey)
	if !ok {
		return marketList{}, false
	}
	list, ok := v.(marketList)
	return list, ok
}

func pairKey(base, quote string) string {
	return strings.ToUpper(base) + "/" + strings.ToUpper(quote)
}
