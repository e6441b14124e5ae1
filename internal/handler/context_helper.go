package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/okil-ai/consult-api/internal/middleware"
	"github.com/okil-ai/consult-api/internal/models"
	appErrors "github.com/okil-ai/consult-api/pkg/errors"
	"github.com/okil-ai/consult-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// bindJSON decodes the body into dest and writes a 400 on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

// bindQuery decodes query string parameters into dest and writes a 400 on failure.
func bindQuery(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}
