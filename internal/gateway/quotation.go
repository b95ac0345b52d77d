package gateway

import (
	"context"
	"otcsettle/internal/domain"
	"otcsettle/internal/platform/metrics"
)

// QuotationFeed is a provider price stream; lookups record demand and read cached ticks only.
type QuotationFeed interface {
	Quotation(base, quote string) (domain.Quotation, bool)
}

// QuotationService answers from the first feed, in configuration order, that has a live quotation.
type QuotationService struct {
	feeds   []QuotationFeed
	metrics *metrics.Metrics
}

func (s *QuotationService) GetQuotation(_ context.Context, base, quote string) (domain.Quotation, bool) {
	for _, f := range s.feeds {
		if q, ok := f.Quotation(base, quote); ok {
			s.metrics.QuotationLookup(true)
			return q, true
		}
	}
	s.metrics.QuotationLookup(false)
	return domain.Quotation{}, false
}

func NewQuotationService(feeds []QuotationFeed, m *metrics.Metrics) *QuotationService {
	return &QuotationService{feeds: feeds, metrics: m}
}
