package cache

import (
	"fmt"
	"otcsettle/internal/domain"
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoQuotationCache keeps the latest quotation per instrument. Entries expire after ttl;
// a miss means the instrument is not tradable right now.
type RistrettoQuotationCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewQuotationCache(maxItems int64, ttl time.Duration) (*RistrettoQuotationCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        10 * maxItems,
		MaxCost:            maxItems,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create quotation cache failed: %w", err)
	}
	return &RistrettoQuotationCache{cache: c, ttl: ttl}, nil
}

func (c *RistrettoQuotationCache) Get(instrument string) (domain.Quotation, bool) {
	if v, ok := c.cache.Get(quotationKey(instrument)); ok {
		q, ok := v.(domain.Quotation)
		return q, ok
	}
	return domain.Quotation{}, false
}

func (c *RistrettoQuotationCache) Set(q domain.Quotation) {
	c.cache.SetWithTTL(quotationKey(q.Instrument), q, 1, c.ttl)
}

func (c *RistrettoQuotationCache) Delete(instrument string) {
	c.cache.Del(quotationKey(instrument))
}

func (c *RistrettoQuotationCache) Close() { c.cache.Close() }

func quotationKey(instrument string) string { return "quotation:" + instrument }
