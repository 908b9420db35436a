package jobs

import (
	"context"
	"log"
	"time"
)

type Renotifier interface {
	RenotifyStale(ctx context.Context) (int, error)
}

// RenotifyFinishedPackages returns the cron func that re-sends finished
// package notifications that went stale.
func RenotifyFinishedPackages(notifier Renotifier, timeout time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		sent, err := notifier.RenotifyStale(ctx)
		if err != nil {
			log.Printf("Error re-sending package notifications: %v", err)
			return
		}
		if sent == 0 {
			return
		}
		log.Printf("Re-sent %d finished package notification(s).", sent)
	}
}
