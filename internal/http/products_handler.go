package http

import (
	"net/http"

	"github.com/fitwear/storefront/internal/domain"
	"github.com/fitwear/storefront/internal/repository"
	"github.com/go-chi/chi/v5"
)

type ProductsHandler struct {
	products repository.ProductRepository
}

func NewProductsHandler(products repository.ProductRepository) *ProductsHandler {
	return &ProductsHandler{products: products}
}

// GET /api/v1/products?category&featured
func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := domain.ProductFilter{
		Category: r.URL.Query().Get("category"),
	}
	switch r.URL.Query().Get("featured") {
	case "true":
		v := true
		filter.Featured = &v
	case "false":
		v := false
		filter.Featured = &v
	}

	products, err := h.products.ListProducts(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if products == nil {
		products = []*domain.Product{}
	}
	respondJSON(w, http.StatusOK, products)
}

// GET /api/v1/products/{product_id}
func (h *ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	product, err := h.products.GetProduct(r.Context(), productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}
