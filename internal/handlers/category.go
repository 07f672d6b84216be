// internal/handlers/category.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/tastecert-backend/internal/i18n"
	"github.com/javajoker/tastecert-backend/internal/middleware"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
}

func NewCategoryHandler(categoryService *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

// GET /categories
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"categories": categories,
	})
}

// POST /admin/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyCategoryCreated),
		"category": category,
	})
}

// PUT /admin/categories/:id
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.categoryService.Update(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyCategoryUpdated),
		"category": category,
	})
}

// DELETE /admin/categories/:id
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.categoryService.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCategoryDeleted),
	})
}
