package jobs

import (
	"context"
	"otcsettle/internal/config"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

const (
	defaultCryptoOrdersInterval  = 30 * time.Second
	defaultRemittancesInterval   = 60 * time.Second
	defaultMarketRefreshInterval = 5 * time.Minute
)

// Scheduler runs the settlement jobs periodically. Every job runs in singleton mode, so a slow run
// is never overlapped by the next one.
type Scheduler struct {
	runner *Runner
	bases  []string
	clock  clockwork.Clock

	cryptoOrdersInterval  time.Duration
	remittancesInterval   time.Duration
	marketRefreshInterval time.Duration
	// -----
	sched gocron.Scheduler
}

func (s *Scheduler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler(gocron.WithClock(s.clock))
	if err != nil {
		return err
	}
	s.sched = scheduler

	// markets first and right away, the matcher can't validate sizes without them
	_, err = scheduler.NewJob(
		gocron.DurationJob(s.marketRefreshInterval),
		gocron.NewTask(func(jobCtx context.Context) {
			_ = s.runner.RefreshMarkets(jobCtx, uuid.NewString())
		}),
		gocron.WithName(JobMarketRefresh),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	for _, base := range s.bases {
		_, err = scheduler.NewJob(
			gocron.DurationJob(s.cryptoOrdersInterval),
			gocron.NewTask(func(jobCtx context.Context) {
				_ = s.runner.SyncCryptoOrders(jobCtx, uuid.NewString(), base)
			}),
			gocron.WithName(JobCryptoOrders+"_"+base),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.remittancesInterval),
		gocron.NewTask(func(jobCtx context.Context) {
			_ = s.runner.SyncRemittances(jobCtx, uuid.NewString())
		}),
		gocron.WithName(JobRemittances),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	scheduler.Start()

	// Stop scheduler when the provided context is canceled.
	go func() {
		<-ctx.Done()
		if sdErr := s.Shutdown(); sdErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", sdErr)
		}
	}()
	return nil
}

func (s *Scheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	err := s.sched.Shutdown()
	s.sched = nil
	return err
}

func NewScheduler(runner *Runner, bases []string, clock clockwork.Clock, cfg config.Scheduler) *Scheduler {
	return &Scheduler{
		runner:                runner,
		bases:                 bases,
		clock:                 clock,
		cryptoOrdersInterval:  interval(cfg.CryptoOrdersIntervalSec, defaultCryptoOrdersInterval),
		remittancesInterval:   interval(cfg.RemittancesIntervalSec, defaultRemittancesInterval),
		marketRefreshInterval: interval(cfg.MarketRefreshIntervalSec, defaultMarketRefreshInterval),
	}
}

func interval(sec int, def time.Duration) time.Duration {
	if sec <= 0 {
		return def
	}
	return time.Duration(sec) * time.Second
}
