package errors

import (
	stringpool "github.com/syphon-data/syphon/pkg/strings"
)

// HTTP status classification for extraction requests. ERP list and detail
// endpoints share one taxonomy: 5xx (and any explicitly configured status)
// is transient and retried, 4xx is fatal for the stream, and 400 on a list
// request means "no records found" rather than an error. The 400 special
// case is handled by the caller; it never reaches this classifier.

// FromHTTPStatus converts a non-2xx response status into a typed error.
// Statuses listed in extraRetriable are treated as transient regardless
// of their class.
func FromHTTPStatus(status int, body string, extraRetriable ...int) *Error {
	for _, s := range extraRetriable {
		if status == s {
			return New(ErrorTypeTransient, httpMessage(status, body))
		}
	}

	switch {
	case status >= 500:
		return New(ErrorTypeTransient, httpMessage(status, body))
	case status == 401 || status == 403:
		return New(ErrorTypeAuthentication, httpMessage(status, body))
	case status == 404:
		return New(ErrorTypeNotFound, httpMessage(status, body))
	case status == 429:
		return New(ErrorTypeRateLimit, httpMessage(status, body))
	case status >= 400:
		return New(ErrorTypeValidation, httpMessage(status, body))
	default:
		return New(ErrorTypeInternal, httpMessage(status, body))
	}
}

// IsFatalHTTP reports whether a status aborts the stream: any 4xx that is
// not rate limiting. Rate limits and 5xx are retried instead.
func IsFatalHTTP(status int, extraRetriable ...int) bool {
	for _, s := range extraRetriable {
		if status == s {
			return false
		}
	}
	return status >= 400 && status < 500 && status != 429
}

func httpMessage(status int, body string) string {
	if body == "" {
		return stringpool.Sprintf("request failed with status %d", status)
	}
	return stringpool.Sprintf("request failed with status %d: %s", status, body)
}
