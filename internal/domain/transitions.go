package domain

import "fmt"

type transitionTable[S ~string] map[S][]S

func (t transitionTable[S]) check(from, to S) error {
	for _, allowed := range t[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

var cryptoOrderTransitions = transitionTable[CryptoOrderState]{
	CryptoOrderPending: {CryptoOrderConfirmed, CryptoOrderReconciled, CryptoOrderCanceled},
}

var cryptoRemittanceTransitions = transitionTable[CryptoRemittanceStatus]{
	CryptoRemittancePending: {CryptoRemittanceWaiting, CryptoRemittanceFilled, CryptoRemittanceCanceled, CryptoRemittanceError},
	CryptoRemittanceWaiting: {CryptoRemittanceFilled, CryptoRemittanceCanceled, CryptoRemittanceError},
}

var remittanceTransitions = transitionTable[RemittanceStatus]{
	RemittanceOpen:    {RemittanceWaiting, RemittanceClosed},
	RemittanceWaiting: {RemittanceClosed},
}
