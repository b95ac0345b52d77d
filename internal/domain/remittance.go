package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RemittanceStatus string

const (
	RemittanceOpen    RemittanceStatus = "OPEN"
	RemittanceWaiting RemittanceStatus = "WAITING"
	RemittanceClosed  RemittanceStatus = "CLOSED"
)

// Remittance is a fiat settlement instruction. Positive amounts buy the foreign currency, negative sell it.
type Remittance struct {
	ID              uuid.UUID
	CurrencyID      int64
	System          string
	Provider        string
	Amount          decimal.Decimal
	Status          RemittanceStatus
	SendDateCode    string
	ReceiveDateCode string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *Remittance) TransitionTo(status RemittanceStatus) error {
	if err := remittanceTransitions.check(r.Status, status); err != nil {
		return err
	}
	r.Status = status
	return nil
}

// RemittanceOrderRemittance links a remittance to an upstream order it represents.
type RemittanceOrderRemittance struct {
	ID           uuid.UUID
	RemittanceID uuid.UUID
	OrderID      string
	Amount       decimal.Decimal
}

// SettlementCodes are the symbolic send/receive date tags, e.g. D0 or D1.
type SettlementCodes struct {
	Send    string
	Receive string
}

type GroupKey struct {
	Currency    string
	System      string
	Provider    string
	SendCode    string
	ReceiveCode string
}

func (k GroupKey) String() string {
	return strings.Join([]string{k.Currency, k.System, k.Provider, k.SendCode, k.ReceiveCode}, ":")
}

type GroupMember struct {
	RemittanceID uuid.UUID       `json:"remittance_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// RemittanceCurrentGroup is the per-key netting and daily-cap state of the dispatch job.
// GroupAmount always equals the sum of member amounts.
type RemittanceCurrentGroup struct {
	Key                  GroupKey        `json:"key"`
	RemittanceGroup      []GroupMember   `json:"remittance_group"`
	GroupAmount          decimal.Decimal `json:"group_amount"`
	DailyAmount          decimal.Decimal `json:"daily_amount"`
	DailyRemittanceGroup []uuid.UUID     `json:"daily_remittance_group"`
	DailyAmountDate      string          `json:"daily_amount_date"`
}

func NewRemittanceCurrentGroup(key GroupKey) *RemittanceCurrentGroup {
	return &RemittanceCurrentGroup{Key: key}
}

// DailyAmountOn returns the dispatched total for day, zero when the stored day is another one.
func (g *RemittanceCurrentGroup) DailyAmountOn(day string) decimal.Decimal {
	if g.DailyAmountDate != day {
		return decimal.Zero
	}
	return g.DailyAmount
}

func (g *RemittanceCurrentGroup) Contains(id uuid.UUID) bool {
	for _, m := range g.RemittanceGroup {
		if m.RemittanceID == id {
			return true
		}
	}
	return false
}

// LastMemberExcept returns the most recently grouped member that is not id.
func (g *RemittanceCurrentGroup) LastMemberExcept(id uuid.UUID) (GroupMember, bool) {
	for i := len(g.RemittanceGroup) - 1; i >= 0; i-- {
		if g.RemittanceGroup[i].RemittanceID != id {
			return g.RemittanceGroup[i], true
		}
	}
	return GroupMember{}, false
}

// Hold adds the remittance to the group or refreshes its amount if it is already a member.
func (g *RemittanceCurrentGroup) Hold(id uuid.UUID, amount decimal.Decimal) {
	for i, m := range g.RemittanceGroup {
		if m.RemittanceID == id {
			g.RemittanceGroup[i].Amount = amount
			g.recompute()
			return
		}
	}
	g.RemittanceGroup = append(g.RemittanceGroup, GroupMember{RemittanceID: id, Amount: amount})
	g.recompute()
}

func (g *RemittanceCurrentGroup) Remove(id uuid.UUID) {
	kept := g.RemittanceGroup[:0]
	for _, m := range g.RemittanceGroup {
		if m.RemittanceID != id {
			kept = append(kept, m)
		}
	}
	g.RemittanceGroup = kept
	g.recompute()
}

// RecordDispatch adds a dispatched amount to the daily totals, resetting them when day rolled over.
func (g *RemittanceCurrentGroup) RecordDispatch(day string, id uuid.UUID, amount decimal.Decimal) {
	if g.DailyAmountDate != day {
		g.DailyAmount = decimal.Zero
		g.DailyRemittanceGroup = nil
		g.DailyAmountDate = day
	}
	g.DailyAmount = g.DailyAmount.Add(amount.Abs())
	g.DailyRemittanceGroup = append(g.DailyRemittanceGroup, id)
}

func (g *RemittanceCurrentGroup) recompute() {
	sum := decimal.Zero
	for _, m := range g.RemittanceGroup {
		sum = sum.Add(m.Amount)
	}
	g.GroupAmount = sum
}
