package rrp

import "errors"

// Sentinel errors for the runtime.
var (
	ErrConfigMissing = errors.New("config file missing")
	ErrInvalidConfig = errors.New("invalid config")
	ErrUnknownSlot   = errors.New("unknown slot")
	ErrPackExists    = errors.New("pack already registered")
	ErrEmptyName     = errors.New("pre-generation name is empty")
	ErrPregenExists  = errors.New("pre-generation already registered")
	ErrPregenStarted = errors.New("pre-generation already started")
	ErrClosed        = errors.New("runtime closed")
)
