package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/repository"
)

// NewRepositories creates the full set of Postgres-backed repositories.
// The guest cart repository lives in redisstore and is wired separately.
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Customer:       NewCustomerRepository(db, logger),
		Address:        NewAddressRepository(db, logger),
		Category:       NewCategoryRepository(db, logger),
		Product:        NewProductRepository(db, logger),
		Cart:           NewCartRepository(db, logger),
		Order:          NewOrderRepository(db, logger),
		Payment:        NewPaymentRepository(db, logger),
		Discount:       NewDiscountRepository(db, logger),
		OrderEvent:     NewOrderEventRepository(db, logger),
		IdempotencyKey: NewIdempotencyKeyRepository(db, logger),
	}
}
