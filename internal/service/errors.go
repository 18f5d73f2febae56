package service

import "errors"

var (
	ErrSessionInvalid      = errors.New("payment session input invalid")
	ErrSessionExists       = errors.New("payment session already exists")
	ErrSessionCreateFailed = errors.New("payment session create failed")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderFetchFailed    = errors.New("order fetch failed")
	ErrOrderUpdateFailed   = errors.New("order update failed")
	ErrReportInvalid       = errors.New("status report invalid")
	ErrLedgerIntegrity     = errors.New("payment ledger integrity violation")
	ErrSourceTypeResolve   = errors.New("source type resolve failed")
)
