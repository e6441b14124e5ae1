package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/okil-ai/consult-api/internal/middleware"
	"github.com/okil-ai/consult-api/internal/models"
)

// RouterConfig carries the handlers and guards mounted under the API prefix.
type RouterConfig struct {
	Auth         *AuthHandler
	Lawyers      *LawyerHandler
	Appointments *AppointmentHandler
	Queries      *QueryHandler
	Exports      *ExportHandler
	Tokens       middleware.TokenValidator
	Audit        middleware.AuditWriter
}

// RegisterRoutes mounts the API on group. Nil handlers leave their routes out.
func RegisterRoutes(group *gin.RouterGroup, cfg RouterConfig) {
	authed := middleware.JWT(cfg.Tokens)
	lawyerOnly := middleware.RequireRoles(models.RoleLawyer)
	userOnly := middleware.RequireRoles(models.RoleUser)

	if cfg.Auth != nil {
		auth := group.Group("/auth")
		auth.POST("/register/user", cfg.Auth.RegisterUser)
		auth.POST("/register/lawyer", cfg.Auth.RegisterLawyer)
		auth.POST("/login", cfg.Auth.Login)
		auth.POST("/refresh", cfg.Auth.Refresh)
		auth.POST("/logout", authed, cfg.Auth.Logout)
		auth.GET("/verify", cfg.Auth.VerifyEmail)
		auth.POST("/verify/resend", cfg.Auth.ResendVerification)
		auth.POST("/forgot", cfg.Auth.ForgotPassword)
		auth.POST("/reset", cfg.Auth.ResetPassword)
		auth.GET("/me", authed, cfg.Auth.Me)
		auth.PUT("/me", authed, cfg.Auth.UpdateMe)
		auth.DELETE("/me", authed, cfg.Auth.DeleteMe)
	}

	if cfg.Lawyers != nil {
		lawyers := group.Group("/lawyers")
		lawyers.GET("", cfg.Lawyers.List)

		own := lawyers.Group("/availability", authed, lawyerOnly)
		own.POST("", cfg.Lawyers.Publish)
		own.POST("/window", cfg.Lawyers.PublishWindow)
		own.GET("", cfg.Lawyers.History)
		own.DELETE("/:id", cfg.Lawyers.DeleteSlot)

		lawyers.GET("/:id", cfg.Lawyers.Get)
		lawyers.GET("/:id/availability", middleware.WithResponseMeta(), cfg.Lawyers.OpenSlots)
	}

	if cfg.Appointments != nil {
		appts := group.Group("/appointments", authed)
		appts.POST("", userOnly, cfg.Appointments.Create)
		appts.GET("", cfg.Appointments.List)
		appts.GET("/:id", cfg.Appointments.Get)
		appts.PATCH("/:id", cfg.Appointments.Update)
		if cfg.Exports != nil {
			appts.POST("/exports", lawyerOnly, cfg.Exports.Create)
		}
	}

	if cfg.Exports != nil {
		group.GET("/exports/:token", middleware.Audit(cfg.Audit, nil, models.AuditActionExportDownload, "export", ""), cfg.Exports.Download)
	}

	if cfg.Queries != nil {
		queries := group.Group("/queries", authed)
		queries.POST("", userOnly, cfg.Queries.Create)
		queries.GET("", cfg.Queries.List)
		queries.GET("/:id", cfg.Queries.Get)
		queries.PATCH("/:id", cfg.Queries.Update)
	}
}
