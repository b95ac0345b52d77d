package jobs

import (
	"context"
	"fmt"
	"otcsettle/internal/adapters"
	"otcsettle/internal/domain"
	"otcsettle/internal/platform/metrics"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	JobCryptoOrders  = "crypto_orders"
	JobRemittances   = "remittances"
	JobMarketRefresh = "market_refresh"
)

type CryptoOrderSyncer interface {
	SyncPendingCryptoOrders(ctx context.Context, base *domain.Currency) error
}

type RemittanceSyncer interface {
	SyncOpenRemittances(ctx context.Context) error
}

type MarketRefresher interface {
	ProviderName() string
	RefreshMarkets(ctx context.Context) error
}

// Runner executes one run of a settlement job. It is shared by the scheduler and the manual
// HTTP triggers so both are logged and counted the same way.
type Runner struct {
	matcher    CryptoOrderSyncer
	grouper    RemittanceSyncer
	currencies adapters.CurrencyService
	refreshers []MarketRefresher
	metrics    *metrics.Metrics
}

func (r *Runner) SyncCryptoOrders(ctx context.Context, execID, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	log := logrus.WithFields(logrus.Fields{"job": JobCryptoOrders, "exec_id": execID, "currency": code})

	err := r.syncCryptoOrders(ctx, code)
	r.metrics.JobRun(JobCryptoOrders, err)
	if err != nil {
		log.WithError(err).Error("Crypto orders sync failed")
		return err
	}
	log.Debug("Crypto orders sync finished")
	return nil
}

func (r *Runner) syncCryptoOrders(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("%w: currency code is required", domain.ErrInvalidParameter)
	}
	currency, err := r.currencies.GetCurrencyByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to get currency %q: %w", code, err)
	}
	if currency == nil {
		return fmt.Errorf("%w: %q", domain.ErrCurrencyNotFound, code)
	}
	return r.matcher.SyncPendingCryptoOrders(ctx, currency)
}

func (r *Runner) SyncRemittances(ctx context.Context, execID string) error {
	log := logrus.WithFields(logrus.Fields{"job": JobRemittances, "exec_id": execID})

	err := r.grouper.SyncOpenRemittances(ctx)
	r.metrics.JobRun(JobRemittances, err)
	if err != nil {
		log.WithError(err).Error("Open remittances sync failed")
		return err
	}
	log.Debug("Open remittances sync finished")
	return nil
}

// RefreshMarkets reloads the market list of every gateway; one failing provider doesn't stop the others.
func (r *Runner) RefreshMarkets(ctx context.Context, execID string) error {
	var failed []string
	for _, ref := range r.refreshers {
		err := ref.RefreshMarkets(ctx)
		r.metrics.JobRun(JobMarketRefresh, err)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"job":      JobMarketRefresh,
				"exec_id":  execID,
				"provider": ref.ProviderName(),
			}).Warn("Market list refresh failed, previous list is kept until it expires")
			failed = append(failed, ref.ProviderName())
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to refresh markets of %s", strings.Join(failed, ", "))
	}
	return nil
}

func NewRunner(
	matcher CryptoOrderSyncer,
	grouper RemittanceSyncer,
	currencies adapters.CurrencyService,
	refreshers []MarketRefresher,
	m *metrics.Metrics,
) *Runner {
	return &Runner{
		matcher:    matcher,
		grouper:    grouper,
		currencies: currencies,
		refreshers: refreshers,
		metrics:    m,
	}
}
