// internal/handlers/directory.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/tastecert-backend/internal/middleware"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type DirectoryHandler struct {
	directoryService *services.DirectoryService
}

func NewDirectoryHandler(directoryService *services.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{
		directoryService: directoryService,
	}
}

// GET /directory/winners
func (h *DirectoryHandler) ListWinners(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.WinnerFilter{
		PaginationParams: params,
	}

	if award := c.Query("award_level"); award != "" {
		level, err := models.ParseAward(award)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid award_level", nil)
			return
		}
		filter.AwardLevel = &level
	}

	if yearStr := c.Query("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil || year < 1900 {
			utils.BadRequestResponse(c, "Invalid year", nil)
			return
		}
		filter.Year = &year
	}

	if publishedStr := c.Query("published"); publishedStr != "" {
		if published, err := strconv.ParseBool(publishedStr); err == nil {
			filter.Published = &published
		}
	}

	if categoryIDStr := c.Query("category_id"); categoryIDStr != "" {
		if categoryID, err := uuid.Parse(categoryIDStr); err == nil {
			filter.CategoryID = &categoryID
		}
	}

	winners, total, err := h.directoryService.ListWinners(c.Request.Context(), middleware.GetActor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(winners, total, params)
	utils.PaginatedResponse(c, result)
}
