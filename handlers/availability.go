package handlers

import (
	"context"
	"net/http"

	"rallyrent/models"
	"rallyrent/utils"

	"github.com/gin-gonic/gin"
)

// AvailabilityReader computes the slot grid for a day.
type AvailabilityReader interface {
	Availability(ctx context.Context, date string) (*models.DayAvailability, error)
}

type AvailabilityHandler struct {
	Service AvailabilityReader
}

func NewAvailabilityHandler(svc AvailabilityReader) *AvailabilityHandler {
	return &AvailabilityHandler{Service: svc}
}

// GetAvailabilityHandler serves GET /api/availability?date=YYYY-MM-DD.
func (h *AvailabilityHandler) GetAvailabilityHandler(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		utils.JSONError(c, http.StatusBadRequest, utils.CodeInvalidTimeInput, "date query parameter is required")
		return
	}
	day, err := h.Service.Availability(c.Request.Context(), date)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, day)
}
