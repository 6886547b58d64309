package repository

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
	"gorm.io/datatypes"
)

type rentalOrderRow struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	CompanyID    snowflake.ID  `gorm:"not null;index"`
	Status       string        `gorm:"type:text;not null"`
	CustomerID   *snowflake.ID `gorm:"index"`
	CustomerName string        `gorm:"type:text"`
	RONumber     string        `gorm:"column:ro_number;type:text"`
	QuoteNumber  string        `gorm:"type:text"`
	StartAt      *time.Time
	EndAt        *time.Time
	CreatedAt    time.Time
}

func (rentalOrderRow) TableName() string { return "rental_orders" }

func (r rentalOrderRow) toDomain() domain.RentalOrder {
	order := domain.RentalOrder{
		ID:           r.ID,
		CompanyID:    r.CompanyID,
		Status:       domain.NormalizeOrderStatus(r.Status),
		CustomerName: r.CustomerName,
		RONumber:     r.RONumber,
		QuoteNumber:  r.QuoteNumber,
		StartAt:      r.StartAt,
		EndAt:        r.EndAt,
	}
	if r.CustomerID != nil {
		order.CustomerID = *r.CustomerID
	}
	return order
}

type lineItemRow struct {
	ID           snowflake.ID                      `gorm:"primaryKey"`
	OrderID      snowflake.ID                      `gorm:"not null;index"`
	Position     int                               `gorm:"not null;default:0"`
	TypeName     string                            `gorm:"type:text"`
	BundleID     *snowflake.ID                     `gorm:"column:bundle_id"`
	BundleName   string                            `gorm:"type:text"`
	InventoryIDs datatypes.JSONSlice[snowflake.ID] `gorm:"column:inventory_ids"`
	RateBasis    string                            `gorm:"type:text"`
	RateAmount   decimal.NullDecimal               `gorm:"type:numeric(18,2)"`
	StartAt      *time.Time                        `gorm:"column:start_at"`
	EndAt        *time.Time                        `gorm:"column:end_at"`
	FulfilledAt  *time.Time                        `gorm:"column:fulfilled_at"`
	ReturnedAt   *time.Time                        `gorm:"column:returned_at"`
	PausePeriods datatypes.JSON                    `gorm:"column:pause_periods"`
}

func (lineItemRow) TableName() string { return "rental_order_line_items" }

func (r lineItemRow) toDomain() domain.LineItem {
	li := domain.LineItem{
		ID:           r.ID,
		TypeName:     r.TypeName,
		BundleID:     r.BundleID,
		BundleName:   r.BundleName,
		InventoryIDs: []snowflake.ID(r.InventoryIDs),
		RateBasis:    r.RateBasis,
		StartAt:      r.StartAt,
		EndAt:        r.EndAt,
		FulfilledAt:  r.FulfilledAt,
		ReturnedAt:   r.ReturnedAt,
		PausePeriods: decodePausePeriods(r.PausePeriods),
	}
	if r.RateAmount.Valid {
		amount := r.RateAmount.Decimal
		li.RateAmount = &amount
	}
	return li
}

func encodePausePeriods(periods []domain.PausePeriod) datatypes.JSON {
	if len(periods) == 0 {
		return datatypes.JSON("[]")
	}
	payload, err := json.Marshal(periods)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(payload)
}

// decodePausePeriods reads the stored pause list one entry at a time. An
// entry without a parseable start is dropped; an unparseable end leaves the
// pause ongoing. Both snake_case and camelCase keys are accepted.
func decodePausePeriods(raw datatypes.JSON) []domain.PausePeriod {
	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	periods := make([]domain.PausePeriod, 0, len(entries))
	for _, entry := range entries {
		start, ok := entryTime(entry, "start_at", "startAt")
		if !ok {
			continue
		}
		period := domain.PausePeriod{StartAt: start}
		if end, ok := entryTime(entry, "end_at", "endAt"); ok {
			period.EndAt = &end
		}
		periods = append(periods, period)
	}
	if len(periods) == 0 {
		return nil
	}
	return periods
}

func entryTime(entry map[string]any, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		value, ok := entry[key].(string)
		if !ok || value == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

type feeRow struct {
	ID       snowflake.ID    `gorm:"primaryKey"`
	OrderID  snowflake.ID    `gorm:"not null;index"`
	Position int             `gorm:"not null;default:0"`
	Name     string          `gorm:"type:text"`
	Amount   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	FeeDate  *string         `gorm:"type:text"`
}

func (feeRow) TableName() string { return "rental_order_fees" }

func (r feeRow) toDomain() domain.Fee {
	fee := domain.Fee{ID: r.ID, Name: r.Name, Amount: r.Amount}
	if r.FeeDate != nil {
		fee.FeeDate = *r.FeeDate
	}
	return fee
}

type companySettingsRow struct {
	CompanyID                  snowflake.ID `gorm:"primaryKey"`
	BillingTimezone            string       `gorm:"type:text"`
	MonthlyProrationMethod     string       `gorm:"type:text"`
	BillingRoundingMode        string       `gorm:"type:text"`
	BillingRoundingGranularity string       `gorm:"type:text"`
}

func (companySettingsRow) TableName() string { return "company_settings" }

func (r companySettingsRow) toDomain() domain.CompanySettings {
	return domain.CompanySettings{
		CompanyID:              r.CompanyID,
		TimeZone:               r.BillingTimezone,
		MonthlyProrationMethod: r.MonthlyProrationMethod,
		RoundingMode:           r.BillingRoundingMode,
		RoundingGranularity:    r.BillingRoundingGranularity,
	}
}

type customerRow struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	CompanyID   snowflake.ID `gorm:"not null;index"`
	CompanyName string       `gorm:"type:text"`
	ContactName string       `gorm:"type:text"`
}

func (customerRow) TableName() string { return "customers" }

// Models lists the read models, for databases migrated with gorm instead of
// the embedded SQL migrations.
func Models() []any {
	return []any{
		&rentalOrderRow{},
		&lineItemRow{},
		&feeRow{},
		&companySettingsRow{},
		&customerRow{},
	}
}
