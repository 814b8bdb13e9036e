package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.Request.URL.Path))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error: "An unexpected error occurred. Please try again later.",
					Code:  CodeInternal,
				})
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response.
func JSONError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// AbortJSON stops the handler chain with a standardized error.
func AbortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}

// RespondError converts err into the structured failure shape. Persistence
// and internal failures are logged with their cause but surface generically.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := AsAppError(err)
	status := appErr.HTTPStatus()

	message := appErr.Message
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("code", appErr.Code),
			zap.String("kind", appErr.Kind.String()),
			zap.Error(err),
		)
		if appErr.Kind == KindPersistence {
			message = "Something went wrong while saving your request. Please try again."
		}
	} else {
		logger.Warn(appErr.Message, zap.String("code", appErr.Code), zap.String("kind", appErr.Kind.String()))
	}

	JSONError(c, status, appErr.Code, message)
}
