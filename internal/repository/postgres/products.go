package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/pkg/errors"
)

type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, category_id, name, sku, description, price, stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.CategoryID,
		product.Name,
		product.SKU,
		product.Description,
		product.Price,
		product.Stock,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "products_sku_key") {
			return &errors.ErrConflict{Message: "sku already exists"}
		}
		r.logger.Error("Failed to create product", zap.Error(err))
		return err
	}

	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, category_id, name, sku, description, price, stock, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get product by ID", zap.Error(err))
		return nil, err
	}

	return product, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	query := `
		SELECT id, category_id, name, sku, description, price, stock, is_active, created_at, updated_at
		FROM products
		WHERE id = ANY($1) AND is_active = true
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		r.logger.Error("Failed to get products by IDs", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	products := make(map[uuid.UUID]*domain.Product, len(ids))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[product.ID] = product
	}

	return products, rows.Err()
}

func (r *productRepository) List(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	query := `
		SELECT id, category_id, name, sku, description, price, stock, is_active, created_at, updated_at
		FROM products
		WHERE is_active = true
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	return products, rows.Err()
}

func (r *productRepository) CreateVariant(ctx context.Context, variant *domain.ProductVariant) error {
	query := `
		INSERT INTO product_variants (id, product_id, color, size, sku, price, stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	if variant.CreatedAt.IsZero() {
		variant.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		variant.ID,
		variant.ProductID,
		variant.Color,
		variant.Size,
		variant.SKU,
		variant.Price,
		variant.Stock,
		variant.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create product variant", zap.Error(err))
		return err
	}

	return nil
}

func (r *productRepository) ListVariants(ctx context.Context, productID uuid.UUID) ([]*domain.ProductVariant, error) {
	query := `
		SELECT id, product_id, color, size, sku, price, stock, created_at
		FROM product_variants
		WHERE product_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		r.logger.Error("Failed to list product variants", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var variants []*domain.ProductVariant
	for rows.Next() {
		var v domain.ProductVariant
		var color sql.NullString
		var size sql.NullString
		var price sql.NullFloat64

		if err := rows.Scan(&v.ID, &v.ProductID, &color, &size, &v.SKU, &price, &v.Stock, &v.CreatedAt); err != nil {
			return nil, err
		}

		if color.Valid {
			v.Color = &color.String
		}
		if size.Valid {
			v.Size = &size.String
		}
		if price.Valid {
			v.Price = &price.Float64
		}

		variants = append(variants, &v)
	}

	return variants, rows.Err()
}

func (r *productRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = $3
		WHERE id = $1 AND stock + $2 >= 0
	`

	result, err := r.db.ExecContext(ctx, query, id, delta, time.Now())
	if err != nil {
		r.logger.Error("Failed to adjust stock", zap.Error(err))
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return &errors.ErrInsufficientStock{ProductID: id.String(), Requested: -delta}
	}

	return nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var product domain.Product
	var categoryID uuid.NullUUID
	var description sql.NullString

	err := row.Scan(
		&product.ID,
		&categoryID,
		&product.Name,
		&product.SKU,
		&description,
		&product.Price,
		&product.Stock,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		product.CategoryID = &categoryID.UUID
	}
	if description.Valid {
		product.Description = &description.String
	}

	return &product, nil
}
