package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
	dbutil "github.com/smallbiznis/rentsoft/pkg/db"
	"gorm.io/gorm"
)

// DemoSeed reports the records created by SeedDemoCompany.
type DemoSeed struct {
	CompanyID snowflake.ID
	Created   bool
	OrderIDs  []snowflake.ID
}

// SeedDemoCompany creates a small company with customers and orders spanning
// the month of now and the month before it. It is a no-op when the company
// already has settings.
func SeedDemoCompany(ctx context.Context, db *gorm.DB, node *snowflake.Node, companyID snowflake.ID, now time.Time) (DemoSeed, error) {
	if db == nil {
		return DemoSeed{}, errors.New("seed database handle is required")
	}
	if node == nil {
		return DemoSeed{}, errors.New("seed snowflake node is required")
	}
	if companyID == 0 {
		companyID = node.Generate()
	}

	result := DemoSeed{CompanyID: companyID}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing companySettingsRow
		err := tx.Where("company_id = ?", companyID).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&companySettingsRow{
			CompanyID:                  companyID,
			BillingTimezone:            "Australia/Sydney",
			MonthlyProrationMethod:     "hours",
			BillingRoundingMode:        "none",
			BillingRoundingGranularity: "hour",
		}).Error; err != nil {
			if dbutil.IsDuplicateKeyErr(err) {
				return nil
			}
			return err
		}

		acme := customerRow{ID: node.Generate(), CompanyID: companyID, CompanyName: "Acme Build"}
		dana := customerRow{ID: node.Generate(), CompanyID: companyID, ContactName: "Dana Fields"}
		if err := tx.Create(&[]customerRow{acme, dana}).Error; err != nil {
			return err
		}

		thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		lastMonth := thisMonth.AddDate(0, -1, 0)
		pauseStart := lastMonth.AddDate(0, 0, 10)
		pauseEnd := pauseStart.AddDate(0, 0, 5)
		returned := thisMonth.AddDate(0, 0, 3)

		orders := []rentalOrderRow{
			{
				ID: node.Generate(), CompanyID: companyID, Status: string(domain.OrderStatusReceived),
				CustomerID: &acme.ID, CustomerName: acme.CompanyName, RONumber: "RO-1001",
				StartAt: &lastMonth,
			},
			{
				ID: node.Generate(), CompanyID: companyID, Status: string(domain.OrderStatusClosed),
				CustomerID: &dana.ID, CustomerName: dana.ContactName, RONumber: "RO-1002",
				StartAt: &lastMonth, EndAt: &returned,
			},
			{
				ID: node.Generate(), CompanyID: companyID, Status: string(domain.OrderStatusQuote),
				CustomerName: "Walk-in", QuoteNumber: "Q-2001",
				StartAt: &thisMonth,
			},
		}
		if err := tx.Create(&orders).Error; err != nil {
			return err
		}

		items := []lineItemRow{
			{
				ID: node.Generate(), OrderID: orders[0].ID, Position: 1, TypeName: "Excavator",
				InventoryIDs: []snowflake.ID{node.Generate()},
				RateBasis:    "monthly",
				RateAmount:   decimal.NewNullDecimal(decimal.RequireFromString("3000.00")),
				FulfilledAt:  &lastMonth,
				PausePeriods: encodePausePeriods([]domain.PausePeriod{{StartAt: pauseStart, EndAt: &pauseEnd}}),
			},
			{
				ID: node.Generate(), OrderID: orders[0].ID, Position: 2, TypeName: "Light tower",
				InventoryIDs: []snowflake.ID{node.Generate(), node.Generate()},
				RateBasis:    "weekly",
				RateAmount:   decimal.NewNullDecimal(decimal.RequireFromString("70.00")),
				FulfilledAt:  &lastMonth,
			},
			{
				ID: node.Generate(), OrderID: orders[1].ID, Position: 1, TypeName: "Scissor lift",
				InventoryIDs: []snowflake.ID{node.Generate()},
				RateBasis:    "daily",
				RateAmount:   decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
				FulfilledAt:  &lastMonth,
				ReturnedAt:   &returned,
			},
			{
				ID: node.Generate(), OrderID: orders[2].ID, Position: 1, BundleName: "Site kit",
				RateBasis:  "weekly",
				RateAmount: decimal.NewNullDecimal(decimal.RequireFromString("250.00")),
				StartAt:    &thisMonth,
			},
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		delivery := lastMonth.Format("2006-01-02")
		fees := []feeRow{
			{ID: node.Generate(), OrderID: orders[0].ID, Position: 1, Name: "Delivery", Amount: decimal.RequireFromString("85.00"), FeeDate: &delivery},
			{ID: node.Generate(), OrderID: orders[1].ID, Position: 1, Name: "Cleaning", Amount: decimal.RequireFromString("40.00")},
		}
		if err := tx.Create(&fees).Error; err != nil {
			return err
		}

		result.Created = true
		for _, order := range orders {
			result.OrderIDs = append(result.OrderIDs, order.ID)
		}
		return nil
	})
	if err != nil {
		return DemoSeed{}, err
	}
	return result, nil
}
