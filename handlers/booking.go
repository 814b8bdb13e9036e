package handlers

import (
	"errors"
	"io"
	"net/http"

	"rallyrent/services/booking"
	"rallyrent/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	Service booking.LifecycleService
}

func NewBookingHandler(svc booking.LifecycleService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

type createBookingRequest struct {
	Email     string `json:"email" binding:"required"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
}

type bookingSummary struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	CancelURL     string `json:"cancelUrl"`
	RescheduleURL string `json:"rescheduleUrl"`
}

func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	logger := getLogger(c)

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, utils.CodeInvalidRequest, "email, date and startTime are required")
		return
	}

	res, err := h.Service.Create(c.Request.Context(), booking.CreateRequest{
		Email:     req.Email,
		Date:      req.Date,
		StartTime: req.StartTime,
	})
	if err != nil {
		utils.RespondError(c, logger, err)
		return
	}

	logger.Info("Booking confirmed", zap.String("bookingId", res.Booking.ID))
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"booking": bookingSummary{
			ID:            res.Booking.ID,
			Date:          res.Booking.Date,
			Time:          res.Booking.StartTime,
			CancelURL:     res.CancelURL,
			RescheduleURL: res.RescheduleURL,
		},
		"sessionsRemaining": res.SessionsRemaining,
	})
}

func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	// The body is optional. Chunked requests report no length, so an empty
	// body is only known once decoding hits EOF.
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			utils.JSONError(c, http.StatusBadRequest, utils.CodeInvalidRequest, "Invalid request payload")
			return
		}
	}

	res, err := h.Service.Cancel(c.Request.Context(), booking.CancelRequest{
		BookingID: c.Param("id"),
		Email:     body.Email,
	})
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}

	message := "Booking cancelled."
	if res.Refunded {
		message = "Booking cancelled and your session has been returned."
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           message,
		"sessionsRemaining": res.SessionsRemaining,
	})
}

func (h *BookingHandler) RescheduleBookingHandler(c *gin.Context) {
	var body struct {
		NewDate      string `json:"newDate" binding:"required"`
		NewStartTime string `json:"newStartTime" binding:"required"`
		Email        string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, utils.CodeInvalidRequest, "newDate and newStartTime are required")
		return
	}

	res, err := h.Service.Reschedule(c.Request.Context(), booking.RescheduleRequest{
		BookingID:    c.Param("id"),
		NewDate:      body.NewDate,
		NewStartTime: body.NewStartTime,
		Email:        body.Email,
	})
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"booking": bookingSummary{
			ID:            res.Booking.ID,
			Date:          res.Booking.Date,
			Time:          res.Booking.StartTime,
			CancelURL:     res.CancelURL,
			RescheduleURL: res.RescheduleURL,
		},
	})
}

func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	view, err := h.Service.Get(c.Request.Context(), c.Param("id"), c.Query("email"))
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "booking": view})
}

func (h *BookingHandler) SessionsHandler(c *gin.Context) {
	email := c.Query("email")
	n, err := h.Service.SessionsRemaining(c.Request.Context(), email)
	if err != nil {
		utils.RespondError(c, getLogger(c), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": email, "sessionsRemaining": n})
}
