package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/okil-ai/consult-api/internal/models"
)

// AuditWriter persists audit records.
type AuditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// Audit records a successful request under action/resource. The resource id is read from
// the route parameter named param when it is non-empty.
func Audit(writer AuditWriter, logger *zap.Logger, action, resource, param string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if writer == nil || c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims := Claims(c); claims != nil {
			userID = &claims.UserID
		}
		if id, ok := c.Get(AuditSubjectKey); ok {
			if owner, ok := id.(string); ok && owner != "" && userID == nil {
				userID = &owner
			}
		}
		var resourceID *string
		if param != "" {
			if v := c.Param(param); v != "" {
				resourceID = &v
			}
		}
		if v, ok := c.Get(AuditResourceKey); ok {
			if id, ok := v.(string); ok && id != "" {
				resourceID = &id
			}
		}

		body, _ := json.Marshal(map[string]interface{}{
			"path":       c.FullPath(),
			"method":     c.Request.Method,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		})

		if err := writer.Create(c.Request.Context(), &models.AuditLog{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			NewValues:  body,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		}); err != nil {
			logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
		}
	}
}

// Handlers without a session set these keys to attribute the audit record.
const (
	AuditSubjectKey  = "audit_subject"
	AuditResourceKey = "audit_resource"
)
