package domain

import "errors"

var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrGatewayNotFound     = errors.New("gateway not found")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrMarketNotFound      = errors.New("market not found")
	ErrCurrencyNotFound    = errors.New("currency not found")
	ErrRemittanceNotFound  = errors.New("remittance not found")
	ErrOfflineGateway      = errors.New("gateway is offline")
	ErrGateway             = errors.New("gateway error")
	ErrRemittanceNotPlaced = errors.New("remittance not placed")
	ErrInvalidTransition   = errors.New("invalid state transition")
)
