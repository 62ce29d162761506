package service

import "errors"

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("engine closed")
