package contract

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrProvider        = errors.New("provider call failed")
	ErrReportDispatch  = errors.New("report dispatch failed")
	ErrLockTimeout     = errors.New("session lock acquisition timed out")
	ErrSessionNotFound = errors.New("session not found")
)
