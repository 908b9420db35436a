package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/anjiri1684/academy_billing/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const defaultCurrency = "USD"

type BillStore interface {
	GetPackage(ctx context.Context, packageID uuid.UUID) (models.Package, error)
	// ListPackageClasses returns the classes assigned to a package with their
	// teacher loaded.
	ListPackageClasses(ctx context.Context, packageID uuid.UUID) ([]models.ClassInstance, error)
	// FindPackageBill returns nil when the package has no bill yet.
	FindPackageBill(ctx context.Context, packageID uuid.UUID) (*models.Bill, error)
	SaveBill(ctx context.Context, bill *models.Bill) error
}

// BillAmount prices minutes of teaching at an hourly rate.
func BillAmount(rate decimal.Decimal, minutes int) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(minutes))).Div(sixty).Round(2)
}

type BillingService struct {
	store BillStore
}

func NewBillingService(store BillStore) *BillingService {
	return &BillingService{store: store}
}

// DraftPackageBill prices the counting classes of a package. A draft bill is
// recomputed in place; issued and paid bills are returned untouched.
func (s *BillingService) DraftPackageBill(ctx context.Context, packageID uuid.UUID) (*models.Bill, error) {
	pkg, err := s.store.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}

	bill, err := s.store.FindPackageBill(ctx, packageID)
	if err != nil {
		return nil, errors.Wrap(err, "finding package bill")
	}
	if bill != nil && bill.Status != models.BillDraft {
		return bill, nil
	}
	if bill == nil {
		bill = &models.Bill{
			StudentID: pkg.StudentID,
			PackageID: idPtr(pkg.ID),
			Status:    models.BillDraft,
		}
	}

	classes, err := s.store.ListPackageClasses(ctx, packageID)
	if err != nil {
		return nil, errors.Wrap(err, "listing package classes")
	}

	amount := decimal.Zero
	currency := ""
	classIDs := make([]uuid.UUID, 0, len(classes))
	for _, c := range classes {
		if !c.IsCompleted() || !c.CountsTowardLimit() {
			continue
		}
		minutes, err := ClassMinutes(c)
		if err != nil {
			log.Printf("⚠️ Class %s billed without duration: %v", c.ID, err)
		}
		classIDs = append(classIDs, c.ID)
		amount = amount.Add(BillAmount(c.Teacher.HourlyRate, minutes))
		if currency == "" {
			currency = c.Teacher.Currency
		}
	}
	if currency == "" {
		currency = defaultCurrency
	}

	raw, err := json.Marshal(classIDs)
	if err != nil {
		return nil, err
	}
	bill.ClassIDs = datatypes.JSON(raw)
	bill.Amount = amount
	bill.Currency = currency

	if err := s.store.SaveBill(ctx, bill); err != nil {
		return nil, errors.Wrap(err, "saving bill")
	}
	return bill, nil
}
