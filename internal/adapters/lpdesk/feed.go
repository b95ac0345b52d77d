package lpdesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"otcsettle/internal/domain"
	"otcsettle/internal/platform/metrics"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type FeedState int

const (
	StateDisconnected FeedState = iota
	StateConnecting
	StateOpen
	StateError
	StateClosed
)

func (s FeedState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateError:
		return "ERROR"
	case StateClosed:
		return "CLOSED"
	}
	return fmt.Sprintf("FeedState(%d)", int(s))
}

const writeTimeout = 5 * time.Second

type marketList interface {
	GetByPair(base, quote string) (domain.CryptoMarket, bool)
	All() []domain.CryptoMarket
}

type quotationStore interface {
	Get(instrument string) (domain.Quotation, bool)
	Set(q domain.Quotation)
}

type FeedOptions struct {
	Provider          string
	URL               string
	APIKey            string
	AllowedBases      []string
	DemandWindow      time.Duration
	ReconnectCooldown time.Duration
	Clock             clockwork.Clock
	Metrics           *metrics.Metrics
}

type subscription struct {
	tag    string
	market domain.CryptoMarket
	active bool
}

type outbound struct {
	Event      string `json:"event"`
	Tag        string `json:"tag"`
	Instrument string `json:"instrument"`
}

type inbound struct {
	Event      string          `json:"event"`
	Tag        string          `json:"tag"`
	Instrument string          `json:"instrument"`
	Buy        decimal.Decimal `json:"buy"`
	Sell       decimal.Decimal `json:"sell"`
	Timestamp  int64           `json:"timestamp"`
	Message    string          `json:"message"`
}

// Feed streams desk prices into the quotation store. It connects only while quotations are
// being requested and subscribes to the instruments of requested bases.
// Reads never touch the socket: Run owns all writes and a single reader goroutine owns all reads.
type Feed struct {
	provider     string
	url          string
	header       http.Header
	allowedBases map[string]struct{}
	demandWindow time.Duration
	cooldown     time.Duration
	clock        clockwork.Clock
	metrics      *metrics.Metrics
	dialer       *websocket.Dialer

	markets marketList
	quotes  quotationStore

	mu               sync.Mutex
	state            FeedState
	demand           map[string]time.Time
	subs             map[string]*subscription
	lastError        time.Time
	connectRequested bool

	wake chan struct{}
}

// Quotation returns the cached quotation for the pair and records demand for its base.
func (f *Feed) Quotation(base, quote string) (domain.Quotation, bool) {
	base = strings.ToUpper(base)
	f.touch(base)

	market, ok := f.markets.GetByPair(base, quote)
	if !ok {
		return domain.Quotation{}, false
	}
	q, ok := f.quotes.Get(market.Name)
	if !ok || !strings.EqualFold(q.Base, base) {
		return domain.Quotation{}, false
	}
	return q, true
}

func (f *Feed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Feed) Provider() string { return f.provider }

func (f *Feed) touch(base string) {
	if _, ok := f.allowedBases[base]; !ok {
		return
	}
	f.mu.Lock()
	f.demand[base] = f.clock.Now()
	if f.state == StateDisconnected {
		f.connectRequested = true
	}
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Run drives the connection until ctx is done.
func (f *Feed) Run(ctx context.Context) {
	for {
		connect, wait := f.nextAttempt()
		if connect {
			f.session(ctx)
			continue
		}

		var retry <-chan time.Time
		if wait > 0 {
			retry = f.clock.After(wait)
		}
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
		case <-retry:
		}
	}
}

// nextAttempt reports whether to dial now, or how long the error cooldown still lasts.
func (f *Feed) nextAttempt() (bool, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateDisconnected || !f.connectRequested || len(f.liveDemandLocked()) == 0 {
		return false, 0
	}
	if !f.lastError.IsZero() {
		if rem := f.cooldown - f.clock.Since(f.lastError); rem > 0 {
			return false, rem
		}
	}
	return true, 0
}

func (f *Feed) session(ctx context.Context) {
	f.mu.Lock()
	f.connectRequested = false
	f.setStateLocked(StateConnecting)
	f.mu.Unlock()

	conn, _, err := f.dialer.DialContext(ctx, f.url, f.header)
	if err != nil {
		f.closed(ctx, fmt.Errorf("dial: %w", err))
		return
	}

	f.mu.Lock()
	f.lastError = time.Time{}
	f.setStateLocked(StateOpen)
	f.mu.Unlock()

	readErr := make(chan error, 1)
	go func() { readErr <- f.readLoop(conn) }()

	ticker := f.clock.NewTicker(f.reconcileInterval())
	defer ticker.Stop()

	err = f.reconcile(conn)
	for err == nil {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(writeTimeout)
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = conn.Close()
			<-readErr
			f.closed(ctx, nil)
			return
		case err = <-readErr:
			_ = conn.Close()
			f.closed(ctx, err)
			return
		case <-f.wake:
			err = f.reconcile(conn)
		case <-ticker.Chan():
			err = f.reconcile(conn)
		}
	}

	_ = conn.Close()
	<-readErr
	f.closed(ctx, err)
}

func (f *Feed) reconcileInterval() time.Duration {
	if d := f.demandWindow / 2; d > 0 {
		return d
	}
	return time.Minute
}

// closed tears the session down: ERROR (when err is a failure) -> CLOSED -> DISCONNECTED.
// A failure starts the reconnect cooldown, a clean close waits for the next demand.
func (f *Feed) closed(ctx context.Context, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subs = make(map[string]*subscription)
	if err != nil && !isCleanClose(err) && ctx.Err() == nil {
		logrus.WithError(err).WithField("provider", f.provider).Warn("quotation feed failed")
		f.setStateLocked(StateError)
		f.lastError = f.clock.Now()
		f.connectRequested = true
	}
	f.setStateLocked(StateClosed)
	f.setStateLocked(StateDisconnected)
}

func isCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func (f *Feed) setStateLocked(s FeedState) {
	if f.state == s {
		return
	}
	logrus.WithFields(logrus.Fields{
		"provider": f.provider,
		"from":     f.state.String(),
		"to":       s.String(),
	}).Info("quotation feed state changed")
	f.state = s
	f.metrics.SetFeedState(f.provider, int(s))
}

func (f *Feed) liveDemandLocked() map[string]struct{} {
	now := f.clock.Now()
	live := make(map[string]struct{}, len(f.demand))
	for base, at := range f.demand {
		if now.Sub(at) > f.demandWindow {
			delete(f.demand, base)
			continue
		}
		live[base] = struct{}{}
	}
	return live
}

// reconcile subscribes to newly demanded instruments and drops the ones nobody asked for lately.
func (f *Feed) reconcile(conn *websocket.Conn) error {
	var msgs []outbound

	f.mu.Lock()
	live := f.liveDemandLocked()
	wanted := make(map[string]domain.CryptoMarket)
	for _, m := range f.markets.All() {
		if !m.Active {
			continue
		}
		if _, ok := live[strings.ToUpper(m.Base)]; ok {
			wanted[m.Name] = m
		}
	}
	for name, m := range wanted {
		if _, ok := f.subs[name]; ok {
			continue
		}
		tag := uuid.NewString()
		f.subs[name] = &subscription{tag: tag, market: m}
		msgs = append(msgs, outbound{Event: "subscribe", Tag: tag, Instrument: name})
	}
	for name := range f.subs {
		if _, ok := wanted[name]; ok {
			continue
		}
		delete(f.subs, name)
		msgs = append(msgs, outbound{Event: "unsubscribe", Tag: uuid.NewString(), Instrument: name})
	}
	f.mu.Unlock()

	for _, msg := range msgs {
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("write %s %s: %w", msg.Event, msg.Instrument, err)
		}
	}
	return nil
}

func (f *Feed) readLoop(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg inbound
		if err = json.Unmarshal(raw, &msg); err != nil {
			logrus.WithError(err).WithField("provider", f.provider).Warn("skipping malformed feed message")
			continue
		}
		f.handle(msg)
	}
}

func (f *Feed) handle(msg inbound) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch msg.Event {
	case "subscribed":
		for _, sub := range f.subs {
			if sub.tag == msg.Tag {
				sub.active = true
				return
			}
		}
	case "price":
		sub, ok := f.subs[msg.Instrument]
		if !ok || !sub.active {
			return
		}
		f.quotes.Set(domain.Quotation{
			Instrument:  msg.Instrument,
			Base:        sub.market.Base,
			Quote:       sub.market.Quote,
			Buy:         msg.Buy,
			Sell:        msg.Sell,
			TimestampMs: msg.Timestamp,
			Provider:    f.provider,
		})
	case "error":
		// a rejected subscription is dropped so the next reconcile retries it
		for name, sub := range f.subs {
			if sub.tag == msg.Tag {
				delete(f.subs, name)
				break
			}
		}
		logrus.WithFields(logrus.Fields{
			"provider": f.provider,
			"tag":      msg.Tag,
		}).Warnf("feed error: %s", msg.Message)
	}
}

func NewFeed(opts FeedOptions, markets marketList, quotes quotationStore) (*Feed, error) {
	if opts.URL == "" {
		return nil, errors.New("feed url is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	allowed := make(map[string]struct{}, len(opts.AllowedBases))
	for _, b := range opts.AllowedBases {
		allowed[strings.ToUpper(b)] = struct{}{}
	}

	header := http.Header{}
	if opts.APIKey != "" {
		header.Set("Authorization", "Token "+opts.APIKey)
	}

	return &Feed{
		provider:     opts.Provider,
		url:          opts.URL,
		header:       header,
		allowedBases: allowed,
		demandWindow: opts.DemandWindow,
		cooldown:     opts.ReconnectCooldown,
		clock:        clock,
		metrics:      opts.Metrics,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		markets:      markets,
		quotes:       quotes,
		state:        StateDisconnected,
		demand:       make(map[string]time.Time),
		subs:         make(map[string]*subscription),
		wake:         make(chan struct{}, 1),
	}, nil
}
