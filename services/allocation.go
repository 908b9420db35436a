package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/anjiri1684/academy_billing/utils"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var sixty = decimal.NewFromInt(60)

// Assignment is the engine's verdict for one completed class.
type Assignment struct {
	ClassID   uuid.UUID  `json:"class_id"`
	ClassDate time.Time  `json:"class_date"`
	StartTime string     `json:"start_time"`
	Minutes   int        `json:"minutes"`
	From      *uuid.UUID `json:"from_package_id"`
	To        *uuid.UUID `json:"to_package_id"`
	Changed   bool       `json:"changed"`
	Reason    string     `json:"reason,omitempty"`
}

// PackageUsage is what a package consumed during one allocation pass.
// Hour budgets are compared in minutes so sums stay exact.
type PackageUsage struct {
	PackageID       uuid.UUID       `json:"package_id"`
	StudentID       uuid.UUID       `json:"student_id"`
	RoundNumber     int             `json:"round_number"`
	Status          string          `json:"status"`
	Legacy          bool            `json:"legacy"`
	LimitMinutes    decimal.Decimal `json:"-"`
	LimitClasses    int             `json:"-"`
	ConsumedMinutes int             `json:"consumed_minutes"`
	ConsumedClasses int             `json:"consumed_classes"`
	ClassIDs        []uuid.UUID     `json:"class_ids"`
}

func (u PackageUsage) CapacityHours() decimal.Decimal {
	return u.LimitMinutes.Div(sixty)
}

func (u PackageUsage) ConsumedHours() decimal.Decimal {
	return decimal.NewFromInt(int64(u.ConsumedMinutes)).Div(sixty)
}

// RemainingHours is rounded to the precision of the packages table.
func (u PackageUsage) RemainingHours() decimal.Decimal {
	return u.LimitMinutes.Sub(decimal.NewFromInt(int64(u.ConsumedMinutes))).Div(sixty).Round(2)
}

func (u PackageUsage) RemainingClasses() int {
	return u.LimitClasses - u.ConsumedClasses
}

// MarshalJSON adds the budget in the unit the package tracks: hours for
// hour packages, classes for legacy ones.
func (u PackageUsage) MarshalJSON() ([]byte, error) {
	type usage PackageUsage
	out := struct {
		usage
		CapacityHours    *decimal.Decimal `json:"capacity_hours,omitempty"`
		ConsumedHours    *decimal.Decimal `json:"consumed_hours,omitempty"`
		RemainingHours   *decimal.Decimal `json:"remaining_hours,omitempty"`
		CapacityClasses  *int             `json:"capacity_classes,omitempty"`
		RemainingClasses *int             `json:"remaining_classes,omitempty"`
	}{usage: usage(u)}
	if u.Legacy {
		out.CapacityClasses = lo.ToPtr(u.LimitClasses)
		out.RemainingClasses = lo.ToPtr(u.RemainingClasses())
	} else {
		out.CapacityHours = lo.ToPtr(u.CapacityHours().Round(2))
		out.ConsumedHours = lo.ToPtr(u.ConsumedHours().Round(2))
		out.RemainingHours = lo.ToPtr(u.RemainingHours())
	}
	return json.Marshal(out)
}

// Exhausted reports whether nothing is left of the package budget.
func (u PackageUsage) Exhausted() bool {
	if u.Legacy {
		return u.RemainingClasses() <= 0
	}
	return !u.LimitMinutes.GreaterThan(decimal.NewFromInt(int64(u.ConsumedMinutes)))
}

func (u PackageUsage) empty() bool {
	if u.Legacy {
		return u.ConsumedClasses == 0
	}
	return u.ConsumedMinutes == 0
}

func (u PackageUsage) admits(c classItem) bool {
	if !c.counts {
		return true
	}
	if u.Legacy {
		return u.ConsumedClasses < u.LimitClasses
	}
	if !u.LimitMinutes.IsPositive() {
		return false
	}
	if u.empty() {
		return true
	}
	return decimal.NewFromInt(int64(u.ConsumedMinutes + c.minutes)).LessThanOrEqual(u.LimitMinutes)
}

func (u *PackageUsage) add(c classItem) {
	u.ClassIDs = append(u.ClassIDs, c.class.ID)
	if !c.counts {
		return
	}
	u.ConsumedMinutes += c.minutes
	u.ConsumedClasses++
}

// Allocation is the full result of one student's allocation pass.
type Allocation struct {
	StudentID   uuid.UUID                  `json:"student_id"`
	Assignments []Assignment               `json:"assignments"`
	Usage       []PackageUsage             `json:"usage"`
	Changed     int                        `json:"changed"`
	Events      []Event                    `json:"-"`
	Warnings    []InconsistentStateWarning `json:"warnings,omitempty"`
}

// Moves returns the assignments that differ from what is stored.
func (a Allocation) Moves() []Assignment {
	return lo.Filter(a.Assignments, func(as Assignment, _ int) bool { return as.Changed })
}

func (a Allocation) UsageFor(packageID uuid.UUID) (PackageUsage, bool) {
	return lo.Find(a.Usage, func(u PackageUsage) bool { return u.PackageID == packageID })
}

type classItem struct {
	class   models.ClassInstance
	start   int
	clock   string
	minutes int
	counts  bool
}

type allocator struct {
	result Allocation
	rounds map[uuid.UUID]int
	frozen map[uuid.UUID]bool
}

// Allocate assigns a student's completed classes to packages in chronological
// order. Paid packages are filled first, then active and finished ones, with
// a single cursor over the class list shared by both phases. Classes left
// over once every package is full end up unassigned.
//
// Allocate is pure: it only reads its input and reports what should change.
func Allocate(studentID uuid.UUID, packages []models.Package, classes []models.ClassInstance) Allocation {
	a := &allocator{
		result: Allocation{StudentID: studentID},
		rounds: make(map[uuid.UUID]int, len(packages)),
		frozen: make(map[uuid.UUID]bool, len(packages)),
	}

	pkgs := sortPackages(packages)
	for i, p := range pkgs {
		a.rounds[p.ID] = p.RoundNumber
		a.frozen[p.ID] = p.IsFrozen()
		if i > 0 && pkgs[i-1].RoundNumber == p.RoundNumber {
			a.warn(idPtr(p.ID), nil, fmt.Sprintf("round number %d is used by more than one package", p.RoundNumber))
		}
	}
	items := a.classItems(classes)

	paid := lo.Filter(pkgs, func(p models.Package, _ int) bool { return p.IsFrozen() })
	open := lo.Filter(pkgs, func(p models.Package, _ int) bool { return !p.IsFrozen() })

	cursor := a.fill(paid, items, 0)
	cursor = a.fill(open, items, cursor)
	for ; cursor < len(items); cursor++ {
		a.assign(items[cursor], nil)
	}

	sort.SliceStable(a.result.Usage, func(i, j int) bool {
		return a.result.Usage[i].RoundNumber < a.result.Usage[j].RoundNumber
	})
	return a.result
}

func (a *allocator) fill(pkgs []models.Package, items []classItem, cursor int) int {
	for _, p := range pkgs {
		usage := a.usageFor(p)
		for cursor < len(items) {
			item := items[cursor]
			if !usage.admits(item) {
				break
			}
			usage.add(item)
			a.assign(item, idPtr(p.ID))
			cursor++
		}
		a.result.Usage = append(a.result.Usage, usage)
	}
	return cursor
}

func (a *allocator) usageFor(p models.Package) PackageUsage {
	usage := PackageUsage{
		PackageID:   p.ID,
		StudentID:   p.StudentID,
		RoundNumber: p.RoundNumber,
		Status:      p.Status,
		ClassIDs:    []uuid.UUID{},
	}
	switch {
	case p.TracksHours():
		usage.LimitMinutes = p.TotalHours.Decimal.Mul(sixty)
		if p.TotalHours.Decimal.IsNegative() {
			a.warn(idPtr(p.ID), nil, fmt.Sprintf("negative total hours %s", p.TotalHours.Decimal))
		}
	case p.TotalClasses != nil:
		usage.Legacy = true
		usage.LimitClasses = *p.TotalClasses
		if usage.LimitClasses < 0 {
			a.warn(idPtr(p.ID), nil, fmt.Sprintf("negative total classes %d", usage.LimitClasses))
		}
	default:
		a.warn(idPtr(p.ID), nil, "package has neither total hours nor total classes")
	}
	return usage
}

func (a *allocator) assign(item classItem, to *uuid.UUID) {
	from := item.class.PackageID
	as := Assignment{
		ClassID:   item.class.ID,
		ClassDate: item.class.ClassDate,
		StartTime: item.clock,
		Minutes:   item.minutes,
		From:      from,
		To:        to,
		Changed:   !sameID(from, to),
	}
	if as.Changed {
		as.Reason = a.reason(from, to)
		a.result.Changed++

		ev := Event{
			Kind:          EventClassReassigned,
			StudentID:     a.result.StudentID,
			PackageID:     to,
			FromPackageID: from,
			ClassID:       idPtr(item.class.ID),
			Reason:        as.Reason,
		}
		if to == nil {
			ev.Kind = EventClassUnassigned
		}
		a.result.Events = append(a.result.Events, ev)

		if (from != nil && a.frozen[*from]) || (to != nil && a.frozen[*to]) {
			frozenEv := ev
			frozenEv.Kind = EventFrozenPackageChanged
			a.result.Events = append(a.result.Events, frozenEv)
		}
	}
	a.result.Assignments = append(a.result.Assignments, as)
}

func (a *allocator) reason(from, to *uuid.UUID) string {
	describe := func(id *uuid.UUID) string {
		if id == nil {
			return "no package"
		}
		if round, ok := a.rounds[*id]; ok {
			return fmt.Sprintf("round %d", round)
		}
		return fmt.Sprintf("unknown package %s", id)
	}
	if to == nil {
		return fmt.Sprintf("no package capacity left, was %s", describe(from))
	}
	return fmt.Sprintf("%s -> %s in chronological order", describe(from), describe(to))
}

func (a *allocator) warn(packageID, classID *uuid.UUID, msg string) {
	a.result.Warnings = append(a.result.Warnings, InconsistentStateWarning{
		StudentID: a.result.StudentID,
		PackageID: packageID,
		ClassID:   classID,
		Message:   msg,
	})
}

func (a *allocator) classItems(classes []models.ClassInstance) []classItem {
	items := make([]classItem, 0, len(classes))
	for _, c := range classes {
		if !c.IsCompleted() {
			continue
		}
		start, startErr := utils.ParseClock(c.StartTime)
		minutes, resolved := a.classMinutes(c)
		// a bad start time already shows up as an unresolved duration
		if startErr != nil && resolved {
			a.warn(nil, idPtr(c.ID), startErr.Error())
		}
		clock := c.StartTime
		if startErr == nil {
			clock = utils.FormatClock(start)
		}
		items = append(items, classItem{
			class:   c,
			start:   start,
			clock:   clock,
			minutes: minutes,
			counts:  c.CountsTowardLimit(),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := items[i], items[j]
		if !ci.class.ClassDate.Equal(cj.class.ClassDate) {
			return ci.class.ClassDate.Before(cj.class.ClassDate)
		}
		if ci.start != cj.start {
			return ci.start < cj.start
		}
		return bytes.Compare(ci.class.ID[:], cj.class.ID[:]) < 0
	})
	return items
}

// ClassMinutes trusts the stored duration and only falls back to the wall
// clock times when nothing usable is stored.
func ClassMinutes(c models.ClassInstance) (int, error) {
	if c.Duration > 0 {
		return c.Duration, nil
	}
	return utils.DurationMinutes(c.StartTime, c.EndTime)
}

func (a *allocator) classMinutes(c models.ClassInstance) (int, bool) {
	minutes, err := ClassMinutes(c)
	if err != nil {
		a.warn(nil, idPtr(c.ID), fmt.Sprintf("duration left unresolved: %v", err))
		return 0, false
	}
	if c.Duration < 0 {
		a.warn(nil, idPtr(c.ID), fmt.Sprintf("negative stored duration %d, using %d from class times", c.Duration, minutes))
	}
	return minutes, true
}

func sortPackages(packages []models.Package) []models.Package {
	pkgs := make([]models.Package, len(packages))
	copy(pkgs, packages)
	sort.SliceStable(pkgs, func(i, j int) bool {
		if pkgs[i].RoundNumber != pkgs[j].RoundNumber {
			return pkgs[i].RoundNumber < pkgs[j].RoundNumber
		}
		return bytes.Compare(pkgs[i].ID[:], pkgs[j].ID[:]) < 0
	})
	return pkgs
}
