package handlers

import (
	"net/http"
	"strconv"

	"rallyrent/models"
	"rallyrent/services/admin"
	"rallyrent/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler encapsulates operator endpoints.
type AdminHandler struct {
	Service admin.AdminService
}

func NewAdminHandler(svc admin.AdminService) *AdminHandler {
	return &AdminHandler{Service: svc}
}

func adminSubject(c *gin.Context) string {
	if v, ok := c.Get(utils.ContextAdminKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (ah *AdminHandler) ListBlocksHandler(c *gin.Context) {
	blocks, err := ah.Service.ListBlocks(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

func (ah *AdminHandler) AddBlockHandler(c *gin.Context) {
	var in admin.BlockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, utils.CodeInvalidRequest, "Invalid request payload")
		return
	}
	res, err := ah.Service.AddBlock(c.Request.Context(), in, adminSubject(c))
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (ah *AdminHandler) RemoveBlockHandler(c *gin.Context) {
	if err := ah.Service.RemoveBlock(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ah *AdminHandler) SetBusinessHoursHandler(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, utils.CodeInvalidRequest, "day must be 0-6")
		return
	}
	var body struct {
		Start       string `json:"start"`
		End         string `json:"end"`
		IsAvailable bool   `json:"isAvailable"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, utils.CodeInvalidRequest, "Invalid request payload")
		return
	}
	hours, err := ah.Service.SetBusinessHours(c.Request.Context(), models.BusinessHours{
		DayOfWeek:   day,
		Start:       body.Start,
		End:         body.End,
		IsAvailable: body.IsAvailable,
	})
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, hours)
}

func (ah *AdminHandler) GrantCreditsHandler(c *gin.Context) {
	var in admin.GrantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, utils.CodeInvalidRequest, "Invalid request payload")
		return
	}
	credit, err := ah.Service.GrantCredits(c.Request.Context(), in)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusCreated, credit)
}

func (ah *AdminHandler) GetCustomerHandler(c *gin.Context) {
	summary, err := ah.Service.CustomerSummary(c.Request.Context(), c.Param("email"))
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
