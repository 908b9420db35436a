package services

import (
	"time"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var (
	studentID = uuid.MustParse("5e1f1b0a-3c55-4d4a-9a38-7d7f0c1e2a10")
	day0      = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
)

func hoursPackage(round int, hours string, status string) models.Package {
	return models.Package{
		ID:          uuid.New(),
		StudentID:   studentID,
		RoundNumber: round,
		Status:      status,
		TotalHours:  decimal.NewNullDecimal(decimal.RequireFromString(hours)),
	}
}

func legacyPackage(round, classes int, status string) models.Package {
	return models.Package{
		ID:           uuid.New(),
		StudentID:    studentID,
		RoundNumber:  round,
		Status:       status,
		TotalClasses: lo.ToPtr(classes),
	}
}

func class(day int, start, end string, status string) models.ClassInstance {
	return models.ClassInstance{
		ID:        uuid.New(),
		StudentID: studentID,
		Status:    status,
		ClassDate: day0.AddDate(0, 0, day),
		StartTime: start,
		EndTime:   end,
	}
}

func attended(day int, start, end string) models.ClassInstance {
	return class(day, start, end, models.ClassAttended)
}

func assignedTo(c models.ClassInstance, p models.Package) models.ClassInstance {
	c.PackageID = lo.ToPtr(p.ID)
	return c
}

// applyAllocation writes the allocation's verdicts back onto the classes the
// way the persistence step would.
func applyAllocation(classes []models.ClassInstance, alloc Allocation) []models.ClassInstance {
	to := map[uuid.UUID]*uuid.UUID{}
	for _, as := range alloc.Assignments {
		to[as.ClassID] = as.To
	}
	out := make([]models.ClassInstance, len(classes))
	for i, c := range classes {
		if target, ok := to[c.ID]; ok {
			c.PackageID = target
		}
		out[i] = c
	}
	return out
}

func targetOf(alloc Allocation, classID uuid.UUID) *uuid.UUID {
	as, ok := lo.Find(alloc.Assignments, func(as Assignment) bool { return as.ClassID == classID })
	if !ok {
		return nil
	}
	return as.To
}

func eventKinds(events []Event) []string {
	return lo.Map(events, func(ev Event, _ int) string { return ev.Kind })
}
