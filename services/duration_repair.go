package services

import (
	"context"
	"log"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/anjiri1684/academy_billing/utils"
	"github.com/google/uuid"
)

const durationBatchSize = 500

type ClassScanner interface {
	ForEachClassBatch(ctx context.Context, batchSize int, fn func([]models.ClassInstance) error) error
	UpdateDuration(ctx context.Context, classID uuid.UUID, minutes int) error
}

type DurationSkip struct {
	ClassID uuid.UUID `json:"class_id"`
	Reason  string    `json:"reason"`
}

type DurationRepairReport struct {
	DryRun  bool           `json:"dry_run"`
	Scanned int            `json:"scanned"`
	Fixed   int            `json:"fixed"`
	Skipped []DurationSkip `json:"skipped"`
}

// RepairDurations recomputes every stored class duration from its start and
// end times. Classes with unparsable times are skipped and reported, never
// given a guessed duration.
func RepairDurations(ctx context.Context, scanner ClassScanner, dryRun bool) (DurationRepairReport, error) {
	report := DurationRepairReport{DryRun: dryRun, Skipped: []DurationSkip{}}

	err := scanner.ForEachClassBatch(ctx, durationBatchSize, func(classes []models.ClassInstance) error {
		for _, c := range classes {
			report.Scanned++

			minutes, err := utils.DurationMinutes(c.StartTime, c.EndTime)
			if err != nil {
				log.Printf("⚠️ Skipping duration of class %s: %v", c.ID, err)
				report.Skipped = append(report.Skipped, DurationSkip{ClassID: c.ID, Reason: err.Error()})
				continue
			}
			if minutes == c.Duration {
				continue
			}

			report.Fixed++
			if dryRun {
				continue
			}
			if err := scanner.UpdateDuration(ctx, c.ID, minutes); err != nil {
				return err
			}
		}
		return nil
	})
	return report, err
}
