package jobs

import (
	"context"
	"log"
	"time"

	"github.com/anjiri1684/academy_billing/services"
)

type Sweeper interface {
	ReallocateAll(ctx context.Context, opts services.Options) (services.BatchReport, error)
}

// NightlyReallocation returns the cron func that sweeps every student. A run
// is abandoned after timeout; students already processed stay committed.
func NightlyReallocation(sweeper Sweeper, timeout time.Duration) func() {
	return func() {
		log.Println("Running job: NightlyReallocation...")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		batch, err := sweeper.ReallocateAll(ctx, services.Options{})
		if err != nil {
			log.Printf("Error running reallocation sweep: %v", err)
			return
		}
		if batch.TotalErrors > 0 {
			log.Printf("⚠️ Reallocation sweep finished with %d failed student(s).", batch.TotalErrors)
			return
		}
		log.Printf("Reallocated %d student(s), %d class(es) moved.", len(batch.Students), batch.TotalFixed)
	}
}
