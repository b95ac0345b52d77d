package remittance

import (
	"fmt"
	"otcsettle/internal/config"
	"otcsettle/internal/domain"
	"sort"
	"time"
)

// TradingWindow answers time-of-day questions in the PSP location: whether the market is open,
// which settlement codes apply right now and what "today" is for the daily totals.
type TradingWindow struct {
	loc      *time.Location
	open     time.Duration
	close    time.Duration
	defaults domain.SettlementCodes
	starts   []startingTime
}

type startingTime struct {
	from  time.Duration
	codes domain.SettlementCodes
}

// IsOpen reports whether now falls in [open, close). A close before open spans midnight.
func (w *TradingWindow) IsOpen(now time.Time) bool {
	t := w.timeOfDay(now)
	if w.open <= w.close {
		return t >= w.open && t < w.close
	}
	return t >= w.open || t < w.close
}

// Codes returns the settlement codes of the latest starting time not after now, or the defaults.
func (w *TradingWindow) Codes(now time.Time) domain.SettlementCodes {
	t := w.timeOfDay(now)
	codes := w.defaults
	for _, s := range w.starts {
		if s.from > t {
			break
		}
		codes = s.codes
	}
	return codes
}

// Day is the calendar day of now in the PSP location, formatted YYYY-MM-DD.
func (w *TradingWindow) Day(now time.Time) string {
	return now.In(w.loc).Format(time.DateOnly)
}

func (w *TradingWindow) Local(now time.Time) time.Time {
	return now.In(w.loc)
}

func (w *TradingWindow) timeOfDay(now time.Time) time.Duration {
	local := now.In(w.loc)
	return time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute + time.Duration(local.Second())*time.Second
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func NewTradingWindow(cfg config.PSP) (*TradingWindow, error) {
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid psp.location %q: %w", cfg.Location, err)
	}
	open, err := parseClock(cfg.MarketOpen)
	if err != nil {
		return nil, fmt.Errorf("invalid psp.market_open %q: %w", cfg.MarketOpen, err)
	}
	closeAt, err := parseClock(cfg.MarketClose)
	if err != nil {
		return nil, fmt.Errorf("invalid psp.market_close %q: %w", cfg.MarketClose, err)
	}

	w := &TradingWindow{
		loc:      loc,
		open:     open,
		close:    closeAt,
		defaults: domain.SettlementCodes{Send: cfg.SendDateCode, Receive: cfg.ReceiveDateCode},
	}
	for _, st := range cfg.StartingTimes {
		from, err := parseClock(st.StartingTime)
		if err != nil {
			return nil, fmt.Errorf("invalid psp starting time %q: %w", st.StartingTime, err)
		}
		w.starts = append(w.starts, startingTime{
			from:  from,
			codes: domain.SettlementCodes{Send: st.SendDateCode, Receive: st.ReceiveDateCode},
		})
	}
	sort.Slice(w.starts, func(i, j int) bool { return w.starts[i].from < w.starts[j].from })
	return w, nil
}
