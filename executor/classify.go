package executor

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Class is the retry category of a failed provider attempt.
type Class int

const (
	// ClassTransport means the request never got a provider answer.
	ClassTransport Class = iota
	// ClassTransient is a provider-side failure worth retrying.
	ClassTransient
	// ClassThrottled means the provider asked us to slow down.
	ClassThrottled
	// ClassQuotaExceeded means the daily budget is gone.
	ClassQuotaExceeded
	// ClassFatal failures are returned without retry.
	ClassFatal
	// ClassCancelled means the caller's context ended the attempt.
	ClassCancelled
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "transport"
	case ClassTransient:
		return "transient"
	case ClassThrottled:
		return "throttled"
	case ClassQuotaExceeded:
		return "quota_exceeded"
	case ClassFatal:
		return "fatal"
	case ClassCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// billed reports whether an attempt that failed this way reached the provider.
func (c Class) billed() bool {
	return c != ClassTransport && c != ClassCancelled
}

// ClassifierFunc maps a provider error to its retry class.
type ClassifierFunc func(err error) Class

// Classify understands *googleapi.Error and context errors. Everything else
// is treated as a transport failure.
func Classify(err error) Class {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCancelled
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return ClassTransport
	}

	switch apiErr.Code {
	case http.StatusForbidden:
		switch {
		case hasReason(apiErr, "quotaExceeded", "dailyLimitExceeded"):
			return ClassQuotaExceeded
		case hasReason(apiErr, "rateLimitExceeded", "userRateLimitExceeded"):
			return ClassThrottled
		}
		return ClassFatal
	case http.StatusTooManyRequests:
		return ClassThrottled
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
		return ClassFatal
	}
	return ClassTransient
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		for _, reason := range reasons {
			if item.Reason == reason {
				return true
			}
		}
	}
	return false
}
