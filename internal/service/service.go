package service

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/okil-ai/consult-api/internal/models"
	appErrors "github.com/okil-ai/consult-api/pkg/errors"
)

type auditLogger interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// EventPublisher receives domain events after the owning transaction committed.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event)
}

func recordAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, log *models.AuditLog) {
	if isNil(audit) || log == nil {
		return
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if err := audit.Create(ctx, log); err != nil {
		logger.Warn("failed to persist audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

// isNil also catches interfaces holding a nil pointer.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func invalid(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func requireSession(claims *models.JWTClaims) error {
	if claims == nil || claims.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
