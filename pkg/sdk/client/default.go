package client

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrNoDefaultService is returned by Default before SetDefault has been called
	ErrNoDefaultService = errors.New("default service is not configured, call client.SetDefault first")

	// ErrDefaultServiceSet is returned by SetDefault once a default exists
	ErrDefaultServiceSet = errors.New("default service is already configured")
)

var defaultService atomic.Pointer[Service]

// SetDefault installs the process-wide default service. It can be set once.
func SetDefault(svc *Service) error {
	if svc == nil {
		return errors.New("default service must not be nil")
	}
	if !defaultService.CompareAndSwap(nil, svc) {
		return ErrDefaultServiceSet
	}
	return nil
}

// Default returns the process-wide default service
func Default() (*Service, error) {
	svc := defaultService.Load()
	if svc == nil {
		return nil, ErrNoDefaultService
	}
	return svc, nil
}
