package remittance

import (
	"context"
	"errors"
	"fmt"
	"otcsettle/internal/adapters"
	"otcsettle/internal/config"
	"otcsettle/internal/domain"
	"otcsettle/internal/platform/metrics"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPageSize = 100

// Grouper nets open fiat remittances per settlement key and dispatches what is left to the PSP,
// within the PSP per-trade and daily limits.
type Grouper struct {
	remittances adapters.RemittanceRepository
	links       adapters.RemittanceOrderRepository
	groups      adapters.RemittanceGroupCache
	locker      adapters.Locker
	currencies  adapters.CurrencyService
	holidays    adapters.HolidayService
	features    adapters.FeatureFlagService
	events      adapters.EventEmitter
	window      *TradingWindow
	clock       clockwork.Clock
	metrics     *metrics.Metrics
	cfg         config.PSP
}

// pass is the state of one SyncOpenRemittances run.
type pass struct {
	day    string
	codes  domain.SettlementCodes
	closed map[uuid.UUID]struct{}

	// latest version of remittances changed during the run
	latest map[uuid.UUID]domain.Remittance
	// remittances held in this run, in query order, released once every open one is netted
	held []heldRemittance
	log  *logrus.Entry
}

type heldRemittance struct {
	id  uuid.UUID
	key domain.GroupKey
}

// SyncOpenRemittances runs in two phases. Every OPEN remittance is first netted against its group
// and held there, so offsetting remittances of the same run cancel out. What is still held is then
// released to the PSP within the per-trade and daily limits. Remittances split off during the run
// stay OPEN for the next one. An error stops the run; changes before it stay committed.
func (g *Grouper) SyncOpenRemittances(ctx context.Context) error {
	now := g.clock.Now()
	log := logrus.WithField("job", "sync_open_remittances")

	// STEP 1: gating, every failed gate is a normal outcome
	setting, err := g.features.GetFeatureSettingByName(ctx, domain.FeatureCreateExchangeQuotation)
	if err != nil {
		return fmt.Errorf("failed to get feature setting %s: %w", domain.FeatureCreateExchangeQuotation, err)
	}
	if !setting.IsActive() {
		log.Infof("Feature %s is not active, skipping", domain.FeatureCreateExchangeQuotation)
		return nil
	}
	if !g.window.IsOpen(now) {
		log.Info("PSP market is closed, skipping")
		return nil
	}
	holiday, err := g.holiday(ctx, now)
	if err != nil {
		return err
	}
	if holiday != nil {
		log.WithField("holiday", holiday.Name).Info("Today is a bank holiday, skipping")
		return nil
	}

	// STEP 2: collecting every open remittance before any of them changes status,
	// otherwise offset pagination would skip rows
	queue, err := g.loadOpen(ctx)
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		log.Info("No open remittances this time")
		return nil
	}
	log.Infof("%d open remittances were found", len(queue))

	p := &pass{
		day:    g.window.Day(now),
		codes:  g.window.Codes(now),
		closed: make(map[uuid.UUID]struct{}),
		latest: make(map[uuid.UUID]domain.Remittance),
		log:    log,
	}

	// STEP 3: netting and holding one remittance at a time
	for _, rm := range queue {
		if _, ok := p.closed[rm.ID]; ok {
			continue
		}
		if latest, ok := p.latest[rm.ID]; ok {
			rm = latest
		}
		if err = g.hold(ctx, p, &rm); err != nil {
			return fmt.Errorf("failed to process remittance %s: %w", rm.ID, err)
		}
	}

	// STEP 4: releasing what survived netting
	for _, h := range p.held {
		if _, ok := p.closed[h.id]; ok {
			continue
		}
		if err = g.release(ctx, p, h); err != nil {
			return fmt.Errorf("failed to dispatch remittance %s: %w", h.id, err)
		}
	}
	return nil
}

func (g *Grouper) holiday(ctx context.Context, now time.Time) (*domain.Holiday, error) {
	settlement, err := g.currencies.GetCurrencyByCode(ctx, g.cfg.SettlementCurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement currency %q: %w", g.cfg.SettlementCurrency, err)
	}
	if settlement == nil {
		return nil, fmt.Errorf("%w: settlement currency %q", domain.ErrCurrencyNotFound, g.cfg.SettlementCurrency)
	}
	holiday, err := g.holidays.GetHolidayByDate(ctx, g.window.Local(now), settlement.Country)
	if err != nil {
		return nil, fmt.Errorf("failed to get holiday: %w", err)
	}
	return holiday, nil
}

func (g *Grouper) loadOpen(ctx context.Context) ([]domain.Remittance, error) {
	size := g.cfg.PageSize
	if size <= 0 {
		size = defaultPageSize
	}

	var open []domain.Remittance
	for offset := 0; ; offset += size {
		page, err := g.remittances.GetAllByStatus(ctx, domain.RemittanceOpen, adapters.Page{Limit: size, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("failed to get open remittances: %w", err)
		}
		open = append(open, page...)
		if len(page) < size {
			return open, nil
		}
	}
}

// hold nets rm against its group under the group lock and keeps what is left as a group member.
func (g *Grouper) hold(ctx context.Context, p *pass, rm *domain.Remittance) error {
	currency, err := g.currencies.GetCurrencyByID(ctx, rm.CurrencyID)
	if err != nil {
		return fmt.Errorf("failed to get currency %d: %w", rm.CurrencyID, err)
	}
	if currency == nil {
		return fmt.Errorf("%w: %d", domain.ErrCurrencyNotFound, rm.CurrencyID)
	}
	if rm.SendDateCode == "" && rm.ReceiveDateCode == "" {
		rm.SendDateCode, rm.ReceiveDateCode = p.codes.Send, p.codes.Receive
	}

	key := domain.GroupKey{
		Currency:    currency.Code,
		System:      rm.System,
		Provider:    rm.Provider,
		SendCode:    rm.SendDateCode,
		ReceiveCode: rm.ReceiveDateCode,
	}
	log := p.log.WithFields(logrus.Fields{"remittance_id": rm.ID, "key": key.String()})

	unlock, group, err := g.lockGroup(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	// daily cap, the remittance waits for another day once the cap would be crossed
	if g.overDailyCap(group, p.day, rm.Amount) {
		log.WithFields(logrus.Fields{
			"daily_amount": group.DailyAmount.String(),
			"amount":       rm.Amount.String(),
		}).Info("PSP daily maximum reached, remittance stays open")
		return nil
	}

	// netting against the most recently grouped remittance of the opposite sign
	done, err := g.net(ctx, p, group, rm, log)
	if err != nil {
		return err
	}
	if !done {
		group.Hold(rm.ID, rm.Amount)
		p.latest[rm.ID] = *rm
		p.held = append(p.held, heldRemittance{id: rm.ID, key: key})
	}
	return g.groups.CreateOrUpdate(ctx, group)
}

// release dispatches a held remittance, splitting what exceeds a single PSP trade. Whatever the PSP
// won't take right now stays held.
func (g *Grouper) release(ctx context.Context, p *pass, h heldRemittance) error {
	rm := p.latest[h.id]
	rm.SendDateCode, rm.ReceiveDateCode = h.key.SendCode, h.key.ReceiveCode
	log := p.log.WithFields(logrus.Fields{"remittance_id": rm.ID, "key": h.key.String()})

	unlock, group, err := g.lockGroup(ctx, h.key)
	if err != nil {
		return err
	}
	defer unlock()

	if !group.Contains(rm.ID) {
		log.Info("Remittance left the group before release, skipping")
		return nil
	}
	if g.overDailyCap(group, p.day, rm.Amount) {
		log.WithFields(logrus.Fields{
			"daily_amount": group.DailyAmount.String(),
			"amount":       rm.Amount.String(),
		}).Info("PSP daily maximum reached, remittance stays held")
		return nil
	}
	if !g.window.IsOpen(g.clock.Now()) || rm.Amount.Abs().LessThan(g.cfg.TradeMinAmount) {
		log.WithField("group_amount", group.GroupAmount.String()).Info("Remittance held in group")
		return nil
	}

	if g.cfg.TradeMaxAmount.IsPositive() && rm.Amount.Abs().GreaterThan(g.cfg.TradeMaxAmount) {
		if err = g.split(ctx, &rm, log); err != nil {
			return err
		}
	}
	return g.dispatch(ctx, p, group, &rm, log)
}

func (g *Grouper) lockGroup(ctx context.Context, key domain.GroupKey) (func(), *domain.RemittanceCurrentGroup, error) {
	unlock, err := g.locker.Lock(ctx, key.String())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock group %s: %w", key, err)
	}
	group, err := g.groups.GetByKey(ctx, key)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	if group == nil {
		group = domain.NewRemittanceCurrentGroup(key)
	}
	return unlock, group, nil
}

// overDailyCap checks the slice of amount that a single trade would dispatch.
func (g *Grouper) overDailyCap(group *domain.RemittanceCurrentGroup, day string, amount decimal.Decimal) bool {
	if !g.cfg.DailyMaxAmount.IsPositive() {
		return false
	}
	slice := amount.Abs()
	if g.cfg.TradeMaxAmount.IsPositive() && slice.GreaterThan(g.cfg.TradeMaxAmount) {
		slice = g.cfg.TradeMaxAmount
	}
	return group.DailyAmountOn(day).Add(slice).GreaterThan(g.cfg.DailyMaxAmount)
}

// net offsets rm against the last other member of the group when their signs differ. It reports
// whether rm is fully consumed. Only one pair is netted per remittance.
func (g *Grouper) net(ctx context.Context, p *pass, group *domain.RemittanceCurrentGroup, rm *domain.Remittance, log *logrus.Entry) (bool, error) {
	member, ok := group.LastMemberExcept(rm.ID)
	if !ok || member.Amount.IsZero() || member.Amount.Sign() == rm.Amount.Sign() {
		return false, nil
	}

	other, err := g.remittances.GetByID(ctx, member.RemittanceID)
	if err != nil && !errors.Is(err, domain.ErrRemittanceNotFound) {
		return false, fmt.Errorf("failed to get grouped remittance %s: %w", member.RemittanceID, err)
	}
	if other == nil || other.Status != domain.RemittanceOpen {
		// dispatched or closed outside of this group
		group.Remove(member.RemittanceID)
		log.WithField("member_id", member.RemittanceID).Warn("Stale group member removed")
		return false, nil
	}

	sum := rm.Amount.Add(other.Amount)
	switch {
	case sum.IsZero():
		group.Remove(other.ID)
		group.Remove(rm.ID)
		if err = g.close(ctx, p, other); err != nil {
			return false, err
		}
		if err = g.close(ctx, p, rm); err != nil {
			return false, err
		}
		log.WithField("netted_with", other.ID).Info("Remittances netted out")
		return true, nil

	case sum.Sign() == rm.Amount.Sign():
		// rm survives with the residual and is held by the caller
		group.Remove(other.ID)
		if err = g.close(ctx, p, other); err != nil {
			return false, err
		}
		rm.Amount = sum
		if err = g.remittances.Update(ctx, rm); err != nil {
			return false, fmt.Errorf("failed to reduce remittance %s: %w", rm.ID, err)
		}
		log.WithFields(logrus.Fields{"netted_with": other.ID, "residual": sum.String()}).Info("Remittance partially netted")
		return false, nil

	default:
		// the grouped remittance survives with the residual and stays held
		group.Remove(rm.ID)
		if err = g.close(ctx, p, rm); err != nil {
			return false, err
		}
		other.Amount = sum
		if err = g.remittances.Update(ctx, other); err != nil {
			return false, fmt.Errorf("failed to reduce remittance %s: %w", other.ID, err)
		}
		p.latest[other.ID] = *other
		group.Hold(other.ID, sum)
		log.WithFields(logrus.Fields{"netted_with": other.ID, "residual": sum.String()}).Info("Remittance absorbed by group")
		return true, nil
	}
}

func (g *Grouper) close(ctx context.Context, p *pass, rm *domain.Remittance) error {
	if err := rm.TransitionTo(domain.RemittanceClosed); err != nil {
		return fmt.Errorf("remittance %s: %w", rm.ID, err)
	}
	if err := g.remittances.Update(ctx, rm); err != nil {
		return fmt.Errorf("failed to close remittance %s: %w", rm.ID, err)
	}
	p.closed[rm.ID] = struct{}{}
	g.metrics.RemittanceTransition(string(domain.RemittanceClosed))
	g.emit(ctx, domain.EventClosedRemittance, rm, nil)
	return nil
}

// split moves everything above the PSP trade maximum into a new OPEN remittance of the same key.
// Order links follow the amounts: rm keeps links up to the maximum, a straddling link is cut in two.
func (g *Grouper) split(ctx context.Context, rm *domain.Remittance, log *logrus.Entry) error {
	keep := g.cfg.TradeMaxAmount
	if rm.Amount.IsNegative() {
		keep = keep.Neg()
	}
	created := &domain.Remittance{
		ID:              uuid.New(),
		CurrencyID:      rm.CurrencyID,
		System:          rm.System,
		Provider:        rm.Provider,
		Amount:          rm.Amount.Sub(keep),
		Status:          domain.RemittanceOpen,
		SendDateCode:    rm.SendDateCode,
		ReceiveDateCode: rm.ReceiveDateCode,
	}
	if err := g.remittances.Create(ctx, created); err != nil {
		return fmt.Errorf("failed to create split remittance: %w", err)
	}
	if err := g.relink(ctx, rm.ID, created.ID, keep.Abs()); err != nil {
		return err
	}

	rm.Amount = keep
	if err := g.remittances.Update(ctx, rm); err != nil {
		return fmt.Errorf("failed to reduce remittance %s: %w", rm.ID, err)
	}

	g.metrics.RemittanceTransition(string(domain.RemittanceOpen))
	g.emit(ctx, domain.EventCreatedRemittance, created, map[string]string{"split_from": rm.ID.String()})
	log.WithFields(logrus.Fields{
		"created_id": created.ID,
		"kept":       keep.String(),
		"split_off":  created.Amount.String(),
	}).Info("Remittance exceeds PSP trade maximum, split")
	return nil
}

func (g *Grouper) relink(ctx context.Context, from, to uuid.UUID, limit decimal.Decimal) error {
	links, err := g.links.GetByRemittanceID(ctx, from)
	if err != nil {
		return fmt.Errorf("failed to get order links of remittance %s: %w", from, err)
	}

	kept := decimal.Zero
	for i := range links {
		l := &links[i]
		abs := l.Amount.Abs()
		switch {
		case kept.GreaterThanOrEqual(limit):
			l.RemittanceID = to
			if err = g.links.Update(ctx, l); err != nil {
				return err
			}
		case kept.Add(abs).LessThanOrEqual(limit):
			kept = kept.Add(abs)
		default:
			stay := limit.Sub(kept)
			if l.Amount.IsNegative() {
				stay = stay.Neg()
			}
			moved := &domain.RemittanceOrderRemittance{
				ID:           uuid.New(),
				RemittanceID: to,
				OrderID:      l.OrderID,
				Amount:       l.Amount.Sub(stay),
			}
			l.Amount = stay
			if err = g.links.Update(ctx, l); err != nil {
				return err
			}
			if err = g.links.Create(ctx, moved); err != nil {
				return err
			}
			kept = limit
		}
	}
	return nil
}

func (g *Grouper) dispatch(ctx context.Context, p *pass, group *domain.RemittanceCurrentGroup, rm *domain.Remittance, log *logrus.Entry) error {
	if err := rm.TransitionTo(domain.RemittanceWaiting); err != nil {
		return fmt.Errorf("remittance %s: %w", rm.ID, err)
	}

	// the group goes first: a lost remittance update only overstates the daily total
	group.Remove(rm.ID)
	group.RecordDispatch(p.day, rm.ID, rm.Amount)
	if err := g.groups.CreateOrUpdate(ctx, group); err != nil {
		return err
	}
	if err := g.remittances.Update(ctx, rm); err != nil {
		return fmt.Errorf("failed to dispatch remittance %s: %w", rm.ID, err)
	}

	g.metrics.RemittanceTransition(string(domain.RemittanceWaiting))
	g.emit(ctx, domain.EventReadyExchangeQuotation, rm, map[string]string{
		"amount":            rm.Amount.String(),
		"currency":          group.Key.Currency,
		"send_date_code":    rm.SendDateCode,
		"receive_date_code": rm.ReceiveDateCode,
		"group_key":         group.Key.String(),
	})
	g.emit(ctx, domain.EventWaitingRemittance, rm, nil)

	log.WithFields(logrus.Fields{
		"amount":       rm.Amount.String(),
		"daily_amount": group.DailyAmount.String(),
	}).Info("Remittance dispatched to PSP")
	return nil
}

func (g *Grouper) emit(ctx context.Context, name domain.EventName, rm *domain.Remittance, attrs map[string]string) {
	g.events.Emit(ctx, domain.Event{
		Name:       name,
		EntityID:   rm.ID.String(),
		State:      string(rm.Status),
		Attributes: attrs,
		OccurredAt: g.clock.Now(),
	})
}

func NewGrouper(
	remittances adapters.RemittanceRepository,
	links adapters.RemittanceOrderRepository,
	groups adapters.RemittanceGroupCache,
	locker adapters.Locker,
	currencies adapters.CurrencyService,
	holidays adapters.HolidayService,
	features adapters.FeatureFlagService,
	events adapters.EventEmitter,
	window *TradingWindow,
	clock clockwork.Clock,
	m *metrics.Metrics,
	cfg config.PSP,
) *Grouper {
	return &Grouper{
		remittances: remittances,
		links:       links,
		groups:      groups,
		locker:      locker,
		currencies:  currencies,
		holidays:    holidays,
		features:    features,
		events:      events,
		window:      window,
		clock:       clock,
		metrics:     m,
		cfg:         cfg,
	}
}
