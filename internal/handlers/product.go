// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/tastecert-backend/internal/i18n"
	"github.com/javajoker/tastecert-backend/internal/middleware"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.ProductSearchParams{
		PaginationParams: params,
	}

	if status := c.Query("status"); status != "" {
		productStatus, err := models.ParseProductStatus(status)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid status", nil)
			return
		}
		searchParams.Status = &productStatus
	}

	if categoryIDStr := c.Query("category_id"); categoryIDStr != "" {
		if categoryID, err := uuid.Parse(categoryIDStr); err == nil {
			searchParams.CategoryID = &categoryID
		}
	}

	if producerIDStr := c.Query("producer_id"); producerIDStr != "" {
		if producerID, err := uuid.Parse(producerIDStr); err == nil {
			searchParams.ProducerID = &producerID
		}
	}

	products, total, err := h.productService.SearchProducts(c.Request.Context(), middleware.GetActor(c), searchParams)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductSubmitted),
		"product": product,
	})
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": product,
	})
}

// DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductDeleted),
	})
}

// PATCH /products/:id/status
func (h *ProductHandler) UpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateStatus(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductStatusUpdated),
		"product": product,
	})
}
