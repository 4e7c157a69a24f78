package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/teachhub/teachhub-api/internal/middleware"
	"github.com/teachhub/teachhub-api/internal/models"
	"github.com/teachhub/teachhub-api/internal/service"
)

// Handlers bundles every route handler for registration.
type Handlers struct {
	Auth          *AuthHandler
	Batches       *BatchHandler
	Sections      *SectionHandler
	Lessons       *LessonHandler
	Notes         *NoteHandler
	Enrollments   *EnrollmentHandler
	Notifications *NotificationHandler
	Exports       *ExportHandler
	Metrics       *MetricsHandler
}

// RegisterRoutes wires all endpoints under the API prefix. Content reads
// sit behind the access gate inside the handlers; mutations require the
// admin role.
func RegisterRoutes(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	r.GET("/metrics", h.Metrics.Prometheus)
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)

	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/register", h.Auth.Register)
	api.GET("/auth/me", middleware.JWT(auth), h.Auth.Me)

	// Download links carry their own signed token; no JWT required.
	api.GET("/exports/download", h.Exports.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(auth))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	authed.GET("/batches", h.Batches.List)
	authed.GET("/batches/:id", h.Batches.Get)
	authed.GET("/batches/:id/content", h.Batches.Content)
	authed.POST("/batches", adminOnly, h.Batches.Create)
	authed.PUT("/batches/:id", adminOnly, h.Batches.Update)
	authed.DELETE("/batches/:id", adminOnly, h.Batches.Delete)

	authed.POST("/batches/:id/sections", adminOnly, routeParamAlias("id", "batchId"), h.Sections.Create)
	authed.GET("/sections/:id/lessons", h.Sections.Lessons)
	authed.PUT("/sections/:id", adminOnly, h.Sections.Update)
	authed.DELETE("/sections/:id", adminOnly, h.Sections.Delete)

	authed.POST("/sections/:id/lessons", adminOnly, routeParamAlias("id", "sectionId"), h.Lessons.Create)
	authed.GET("/lessons/:id", h.Lessons.Get)
	authed.PUT("/lessons/:id", adminOnly, h.Lessons.Update)
	authed.POST("/lessons/:id/live/start", adminOnly, h.Lessons.StartLive)
	authed.POST("/lessons/:id/live/end", adminOnly, h.Lessons.EndLive)
	authed.POST("/lessons/:id/recording", adminOnly, h.Lessons.AttachRecording)
	authed.DELETE("/lessons/:id", adminOnly, h.Lessons.Delete)

	authed.GET("/lessons/:id/notes", routeParamAlias("id", "lessonId"), h.Notes.List)
	authed.POST("/lessons/:id/notes", adminOnly, routeParamAlias("id", "lessonId"), h.Notes.Create)
	authed.PUT("/notes/:id", adminOnly, h.Notes.Update)
	authed.DELETE("/notes/:id", adminOnly, h.Notes.Delete)

	authed.POST("/batches/:id/enroll", routeParamAlias("id", "batchId"), h.Enrollments.Request)
	authed.GET("/enrollments/me", h.Enrollments.Mine)
	authed.GET("/enrollments", adminOnly, h.Enrollments.List)
	authed.POST("/enrollments", adminOnly, h.Enrollments.DirectEnroll)
	authed.PUT("/enrollments/:id/approve", adminOnly, h.Enrollments.Approve)
	authed.PUT("/enrollments/:id/reject", adminOnly, h.Enrollments.Reject)
	authed.DELETE("/batches/:id/enrollments/:userId", adminOnly, routeParamAlias("id", "batchId"), h.Enrollments.Revoke)

	authed.GET("/notifications", h.Notifications.List)
	authed.GET("/notifications/unread-count", h.Notifications.UnreadCount)
	authed.PUT("/notifications/:id/read", h.Notifications.MarkRead)
	authed.PUT("/notifications/read-all", h.Notifications.MarkAllRead)

	authed.POST("/batches/:id/roster", adminOnly, routeParamAlias("id", "batchId"), h.Exports.GenerateRoster)
}

// routeParamAlias maps a path parameter onto the name a handler reads. Gin
// requires a single parameter name per path position, so nested routes
// reuse :id and alias it here.
func routeParamAlias(from, to string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Params = append(c.Params, gin.Param{Key: to, Value: c.Param(from)})
		c.Next()
	}
}
