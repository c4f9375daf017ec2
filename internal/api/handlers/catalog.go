package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

// ProductResponse is a catalog entry as presented to clients
type ProductResponse struct {
	ID          string                   `json:"id"`
	CategoryID  *string                  `json:"category_id,omitempty"`
	Name        string                   `json:"name"`
	SKU         string                   `json:"sku"`
	Description *string                  `json:"description,omitempty"`
	Price       float64                  `json:"price"`
	Stock       int                      `json:"stock"`
	Variants    []ProductVariantResponse `json:"variants,omitempty"`
	CreatedAt   string                   `json:"created_at"`
}

// ProductVariantResponse is one color/size variant of a product
type ProductVariantResponse struct {
	ID    string   `json:"id"`
	Color *string  `json:"color,omitempty"`
	Size  *string  `json:"size,omitempty"`
	SKU   string   `json:"sku"`
	Price *float64 `json:"price,omitempty"`
	Stock int      `json:"stock"`
}

// HandleListProducts handles GET /api/catalog/products
func HandleListProducts(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		products, err := catalog.ListProducts(c.Request.Context(), limit, offset)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		out := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			out = append(out, toProductResponse(p, nil))
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "products": out})
	}
}

// HandleGetProduct handles GET /api/catalog/products/:id
func HandleGetProduct(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respondError(c, logger, &errors.ErrValidation{
				Message: "invalid product id",
				Fields:  map[string]string{"id": "must be a UUID"},
			})
			return
		}

		product, variants, err := catalog.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "product": toProductResponse(product, variants)})
	}
}

// HandleListCategories handles GET /api/catalog/categories
func HandleListCategories(catalog *service.CatalogService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := catalog.ListCategories(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}

		out := make([]gin.H, 0, len(categories))
		for _, cat := range categories {
			out = append(out, gin.H{
				"id":   cat.ID.String(),
				"name": cat.Name,
				"slug": cat.Slug,
			})
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "categories": out})
	}
}

func toProductResponse(p *domain.Product, variants []*domain.ProductVariant) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		SKU:         p.SKU,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if p.CategoryID != nil {
		s := p.CategoryID.String()
		resp.CategoryID = &s
	}
	for _, v := range variants {
		resp.Variants = append(resp.Variants, ProductVariantResponse{
			ID:    v.ID.String(),
			Color: v.Color,
			Size:  v.Size,
			SKU:   v.SKU,
			Price: v.Price,
			Stock: v.Stock,
		})
	}
	return resp
}
