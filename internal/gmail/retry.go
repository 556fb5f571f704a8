package gmail

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	"google.golang.org/api/googleapi"
)

const retryAttempts = 3

// withRetry runs fn up to retryAttempts times with increasing backoff.
// Only transient failures are retried; anything else (bad request, auth,
// not found) propagates immediately.
func withRetry(ctx context.Context, fn func() error) error {
	delay := time.Second
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if err = fn(); err == nil || !isTransient(err) {
			return err
		}
	}
	return err
}

func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}
