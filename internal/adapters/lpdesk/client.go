package lpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"otcsettle/internal/domain"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client talks to the desk REST API. Every call is bounded by the http client timeout.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

type instrumentResponse struct {
	Name                   string          `json:"name"`
	Base                   string          `json:"base"`
	Quote                  string          `json:"quote"`
	MinSize                decimal.Decimal `json:"min_size"`
	MaxSize                decimal.Decimal `json:"max_size"`
	SizeIncrement          decimal.Decimal `json:"size_increment"`
	PriceIncrement         decimal.Decimal `json:"price_increment"`
	PriceSignificantDigits int             `json:"price_significant_digits"`
	RequireValidUntil      bool            `json:"require_valid_until"`
	Active                 bool            `json:"active"`
}

type orderRequest struct {
	ClientOrderID string          `json:"client_order_id"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Market        string          `json:"market"`
	ValidUntil    *int64          `json:"valid_until,omitempty"`
}

type orderResponse struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	ExecutedPrice    decimal.Decimal `json:"executed_price"`
	ExecutedQuantity decimal.Decimal `json:"executed_quantity"`
}

func (c *Client) GetInstruments(ctx context.Context) ([]domain.CryptoMarket, error) {
	var body []instrumentResponse
	if err := c.do(ctx, http.MethodGet, "/instruments", nil, &body); err != nil {
		return nil, err
	}

	markets := make([]domain.CryptoMarket, 0, len(body))
	for _, in := range body {
		markets = append(markets, domain.CryptoMarket{
			Name:                   in.Name,
			Base:                   strings.ToUpper(in.Base),
			Quote:                  strings.ToUpper(in.Quote),
			MinSize:                in.MinSize,
			MaxSize:                in.MaxSize,
			SizeIncrement:          in.SizeIncrement,
			PriceIncrement:         in.PriceIncrement,
			PriceSignificantDigits: in.PriceSignificantDigits,
			RequireValidUntil:      in.RequireValidUntil,
			Active:                 in.Active,
		})
	}
	return markets, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req domain.PlacementRequest) (*domain.PlacementResult, error) {
	body := orderRequest{
		ClientOrderID: req.ClientOrderID.String(),
		Side:          string(req.Side),
		Type:          string(req.Type),
		Quantity:      req.Quantity,
		Market:        req.Market,
	}
	if req.ValidUntil != nil {
		ms := req.ValidUntil.UnixMilli()
		body.ValidUntil = &ms
	}

	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return nil, err
	}
	return resp.toResult(), nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*domain.PlacementResult, error) {
	var resp orderResponse
	if err := c.do(ctx, http.MethodGet, "/order/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.toResult(), nil
}

func (c *Client) CancelOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/order/"+url.PathEscape(id), nil, nil)
}

func (r orderResponse) toResult() *domain.PlacementResult {
	return &domain.PlacementResult{
		ProviderOrderID:  r.ID,
		Status:           mapStatus(r.Status),
		ExecutedPrice:    r.ExecutedPrice,
		ExecutedQuantity: r.ExecutedQuantity,
	}
}

// mapStatus folds desk order states into remittance statuses; unknown states count as ERROR.
func mapStatus(s string) domain.CryptoRemittanceStatus {
	switch strings.ToUpper(s) {
	case "NEW", "PENDING":
		return domain.CryptoRemittancePending
	case "OPEN", "PARTIALLY_FILLED", "WAITING":
		return domain.CryptoRemittanceWaiting
	case "FILLED":
		return domain.CryptoRemittanceFilled
	case "CANCELED", "CANCELLED", "EXPIRED":
		return domain.CryptoRemittanceCanceled
	}
	return domain.CryptoRemittanceError
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s request: %w", method, path, err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// timeouts, refused connections and resets all mean the desk is unreachable
		return fmt.Errorf("%w: %s %s: %v", domain.ErrOfflineGateway, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s %s: %s", domain.ErrOfflineGateway, method, path, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: unexpected status code %d for %s %s: %s", domain.ErrGateway, resp.StatusCode, method, path, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s %s response: %v", domain.ErrGateway, method, path, err)
	}
	return nil
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}
