package lpdesk

import (
	"context"
	"fmt"
	"otcsettle/internal/domain"
	"otcsettle/internal/platform/metrics"

	"github.com/sirupsen/logrus"
)

type marketStore interface {
	marketList
	Replace(markets []domain.CryptoMarket)
}

// Gateway is the desk's market gateway. Market lookups are served from the refreshed market list
// and never hit the REST API.
type Gateway struct {
	name    string
	client  *Client
	markets marketStore
	feed    *Feed
	metrics *metrics.Metrics
}

func (g *Gateway) ProviderName() string { return g.name }

func (g *Gateway) Feed() *Feed { return g.feed }

func (g *Gateway) GetCryptoMarketByBaseAndQuote(_ context.Context, base, quote string) (*domain.CryptoMarket, error) {
	m, ok := g.markets.GetByPair(base, quote)
	if !ok || !m.Active {
		return nil, nil
	}
	return &m, nil
}

func (g *Gateway) CreateCryptoRemittance(ctx context.Context, req domain.PlacementRequest) (*domain.PlacementResult, error) {
	res, err := g.client.PlaceOrder(ctx, req)
	g.metrics.GatewayCall(g.name, "place_order", err)
	if err != nil {
		return nil, fmt.Errorf("failed to place %s %s order on %s: %w", req.Side, req.Market, g.name, err)
	}
	return res, nil
}

func (g *Gateway) GetCryptoRemittanceByID(ctx context.Context, id string) (*domain.PlacementResult, error) {
	res, err := g.client.GetOrder(ctx, id)
	g.metrics.GatewayCall(g.name, "get_order", err)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s from %s: %w", id, g.name, err)
	}
	return res, nil
}

func (g *Gateway) CancelCryptoRemittance(ctx context.Context, id string) error {
	err := g.client.CancelOrder(ctx, id)
	g.metrics.GatewayCall(g.name, "cancel_order", err)
	if err != nil {
		return fmt.Errorf("failed to cancel order %s on %s: %w", id, g.name, err)
	}
	return nil
}

// RefreshMarkets reloads the tradable instruments. On failure the previous list stays until it expires.
func (g *Gateway) RefreshMarkets(ctx context.Context) error {
	markets, err := g.client.GetInstruments(ctx)
	g.metrics.GatewayCall(g.name, "list_instruments", err)
	if err != nil {
		return fmt.Errorf("failed to refresh %s markets: %w", g.name, err)
	}
	g.markets.Replace(markets)
	logrus.WithFields(logrus.Fields{
		"provider": g.name,
		"markets":  len(markets),
	}).Info("market list refreshed")
	return nil
}

func NewGateway(name string, client *Client, markets marketStore, feed *Feed, m *metrics.Metrics) *Gateway {
	return &Gateway{name: name, client: client, markets: markets, feed: feed, metrics: m}
}
