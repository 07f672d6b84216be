// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/tastecert-backend/internal/i18n"
	"github.com/javajoker/tastecert-backend/internal/middleware"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type AdminHandler struct {
	accountService   *services.AccountService
	directoryService *services.DirectoryService
}

func NewAdminHandler(accountService *services.AccountService, directoryService *services.DirectoryService) *AdminHandler {
	return &AdminHandler{
		accountService:   accountService,
		directoryService: directoryService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.directoryService.DashboardStats(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/producers
func (h *AdminHandler) GetProducers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AccountFilter{
		PaginationParams: params,
	}

	if status := c.Query("status"); status != "" {
		accountStatus := models.AccountStatus(status)
		if !accountStatus.Valid() {
			utils.BadRequestResponse(c, "Invalid status", nil)
			return
		}
		filter.Status = &accountStatus
	}

	producers, total, err := h.accountService.ListProducers(c.Request.Context(), middleware.GetActor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(producers, total, params)
	utils.PaginatedResponse(c, result)
}

// PATCH /admin/producers/:id
func (h *AdminHandler) UpdateProducerStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateAccountStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accountService.UpdateStatus(c.Request.Context(), middleware.GetActor(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	key := i18n.KeyAccountApproved
	if account.AccountStatus == models.AccountStatusRejected {
		key = i18n.KeyAccountRejected
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, key),
		"account": account,
	})
}

// DELETE /admin/producers/:id
func (h *AdminHandler) CloseProducerAccount(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.accountService.CloseAccount(c.Request.Context(), middleware.GetActor(c), id, confirmation(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAccountClosed),
		"deleted": result,
	})
}
