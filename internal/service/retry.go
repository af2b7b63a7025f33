package service

import (
	"log"
	"time"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 500 * time.Millisecond
)

// withRetry runs op up to retryAttempts times with doubling backoff. Used for
// collaborator network calls (OTP, email, SMS, payout); callers wrap the
// returned error as an external-service failure.
func withRetry(what string, op func() error) error {
	var err error
	delay := retryBaseDelay
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt < retryAttempts {
			log.Printf("%s failed (attempt %d/%d), retrying in %s: %v", what, attempt, retryAttempts, delay, err)
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
