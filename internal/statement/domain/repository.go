package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// OrderFilter selects orders whose rental period overlaps [From, To).
type OrderFilter struct {
	Statuses []OrderStatus
	From     time.Time
	To       time.Time
}

// Repository loads statement inputs. It never writes.
type Repository interface {
	FindOrder(ctx context.Context, db *gorm.DB, companyID, orderID snowflake.ID) (*RentalOrder, error)
	ListOrders(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter OrderFilter) ([]RentalOrder, error)
	ListLineItems(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]LineItem, error)
	ListFees(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Fee, error)
	FindCompanySettings(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*CompanySettings, error)
	ListCustomers(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]Customer, error)
}
