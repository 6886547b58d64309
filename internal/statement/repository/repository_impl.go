package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/rentsoft/internal/statement/domain"
	"gorm.io/gorm"
)

type repo struct{}

// Legacy spellings still present in stored orders.
var statusAliases = map[domain.OrderStatus][]string{
	domain.OrderStatusQuoteRejected:   {"rejected"},
	domain.OrderStatusRequested:       {"request"},
	domain.OrderStatusRequestRejected: {"requested_rejected"},
	domain.OrderStatusReceived:        {"recieved"},
}

func statusValues(statuses []domain.OrderStatus) []string {
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		normalized := domain.NormalizeOrderStatus(string(status))
		values = append(values, string(normalized))
		values = append(values, statusAliases[normalized]...)
	}
	return lo.Uniq(values)
}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindOrder(ctx context.Context, db *gorm.DB, companyID, orderID snowflake.ID) (*domain.RentalOrder, error) {
	var row rentalOrderRow
	err := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, orderID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	order := row.toDomain()
	return &order, nil
}

func (r *repo) ListOrders(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter domain.OrderFilter) ([]domain.RentalOrder, error) {
	stmt := db.WithContext(ctx).
		Model(&rentalOrderRow{}).
		Where("company_id = ?", companyID)
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", statusValues(filter.Statuses))
	}
	if !filter.To.IsZero() {
		stmt = stmt.Where("(start_at IS NULL OR start_at < ?)", filter.To)
	}
	if !filter.From.IsZero() {
		stmt = stmt.Where("(end_at IS NULL OR end_at >= ?)", filter.From)
	}

	var rows []rentalOrderRow
	if err := stmt.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row rentalOrderRow, _ int) domain.RentalOrder {
		return row.toDomain()
	}), nil
}

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.LineItem, error) {
	var rows []lineItemRow
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position asc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row lineItemRow, _ int) domain.LineItem {
		return row.toDomain()
	}), nil
}

func (r *repo) ListFees(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Fee, error) {
	var rows []feeRow
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("position asc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row feeRow, _ int) domain.Fee {
		return row.toDomain()
	}), nil
}

func (r *repo) FindCompanySettings(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*domain.CompanySettings, error) {
	var row companySettingsRow
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	settings := row.toDomain()
	return &settings, nil
}

func (r *repo) ListCustomers(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]domain.Customer, error) {
	var rows []customerRow
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row customerRow, _ int) domain.Customer {
		return domain.Customer{ID: row.ID, CompanyName: row.CompanyName, ContactName: row.ContactName}
	}), nil
}
