package services

import "errors"

var (
	ErrNotInitialized          = errors.New("session not initialized")
	ErrNotConnected            = errors.New("provider not initialized")
	ErrFactoryNotInitialized   = errors.New("game factory not initialized")
	ErrGameNotLoaded           = errors.New("game not loaded")
	ErrGameCreatedEventMissing = errors.New("game creation event missing from receipt")
	ErrPickOptionFailed        = errors.New("failed to pick option, please check your inputs and try again")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidAddress          = errors.New("invalid address")
	ErrNotOnNetwork            = errors.New("wallet is not on the messaging network")
)
