package db

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("loan id already exists")
	ErrInvalidStatus = errors.New("invalid status for transition")
	ErrForbidden     = errors.New("actor does not own this loan")
	ErrAlreadyQueued = errors.New("user already on waitlist")
	ErrDeviceBusy    = errors.New("device already has an active loan")
	ErrConflict      = errors.New("concurrent modification, retry")
)
