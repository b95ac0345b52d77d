package domain

import "github.com/shopspring/decimal"

type Quotation struct {
	Instrument  string
	Base        string
	Quote       string
	Buy         decimal.Decimal
	Sell        decimal.Decimal
	TimestampMs int64
	Provider    string
}

// PriceFor returns the side of the book an order of the given side executes against.
func (q Quotation) PriceFor(side Side) decimal.Decimal {
	if side == SideBuy {
		return q.Buy
	}
	return q.Sell
}
