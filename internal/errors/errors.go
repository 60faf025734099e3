package errors

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotFound is returned when a requested config entry, entity or device doesn't exist
var ErrNotFound = errors.New("resource not found")

// ErrInvalidInput is returned when the provided input is invalid
var ErrInvalidInput = errors.New("invalid input")

// ErrDeviceUnavailable is returned when a bulb can't be reached or is not responding
var ErrDeviceUnavailable = errors.New("device unavailable")

// ErrNotReady is returned by an integration when a config entry cannot be set up yet
// (bulb not found on the network, bulb offline). The entry is retried later.
var ErrNotReady = errors.New("not ready")

// ErrAlreadyConfigured is returned when a config entry for the same device already exists
var ErrAlreadyConfigured = errors.New("already configured")

// ErrInternal is returned for unexpected internal errors
var ErrInternal = errors.New("internal error")

// LogErrorAndReturn logs an error with structured context and returns it
func LogErrorAndReturn(logger *slog.Logger, err error, message string, args ...any) error {
	if err == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(message, append([]any{"error", err}, args...)...)
	return err
}

// WrapErrorf wraps an error with additional context using fmt.Errorf
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// IsNotFound returns true if the error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput returns true if the error is or wraps ErrInvalidInput
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsDeviceUnavailable returns true if the error is or wraps ErrDeviceUnavailable
func IsDeviceUnavailable(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable)
}

// IsNotReady returns true if the error is or wraps ErrNotReady
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}

// IsAlreadyConfigured returns true if the error is or wraps ErrAlreadyConfigured
func IsAlreadyConfigured(err error) bool {
	return errors.Is(err, ErrAlreadyConfigured)
}

// NotFoundf returns a formatted ErrNotFound error
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// InvalidInputf returns a formatted ErrInvalidInput error
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

// DeviceUnavailablef returns a formatted ErrDeviceUnavailable error
func DeviceUnavailablef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDeviceUnavailable)...)
}

// NotReadyf returns a formatted ErrNotReady error.
// The format may itself contain a %w verb to keep the underlying cause.
func NotReadyf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotReady)...)
}

// AlreadyConfiguredf returns a formatted ErrAlreadyConfigured error
func AlreadyConfiguredf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrAlreadyConfigured)...)
}

// Internalf returns a formatted ErrInternal error
func Internalf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInternal)...)
}
