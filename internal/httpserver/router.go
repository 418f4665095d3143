package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/etutoring/internal/db"
	"github.com/Skotchmaster/etutoring/internal/logging"
	"github.com/Skotchmaster/etutoring/internal/metrics"
	"github.com/Skotchmaster/etutoring/internal/middleware/auth"
	"github.com/Skotchmaster/etutoring/internal/middleware/csrf"
	"github.com/Skotchmaster/etutoring/internal/models"
)

type Deps struct {
	DB        *gorm.DB
	Authn     *auth.Authenticator
	Metrics   *metrics.Metrics
	APISecret string
	CSRF      csrf.Config
	Socket    echo.HandlerFunc

	AuthHandler         *AuthHTTP
	UserHandler         *UserHTTP
	AcademicHandler     *AcademicHTTP
	MeetingHandler      *MeetingHTTP
	DocumentHandler     *DocumentHTTP
	BlogHandler         *BlogHTTP
	MessageHandler      *MessageHTTP
	NotificationHandler *NotificationHTTP
	SearchHandler       *SearchHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()), auth.RequireAPIKey(d.APISecret))
	}
	if d.Socket != nil {
		e.GET("/ws", d.Socket)
	}

	requireAuth := d.Authn.RequireAuth()
	admin := auth.RequireAdmin()
	ownerOrAdmin := auth.RequireOwnerOrAdmin("id")

	v1 := e.Group("/api/v1")

	a := v1.Group("/auth")
	a.POST("/login", d.AuthHandler.Login)
	a.POST("/register-admin", d.AuthHandler.RegisterAdmin, d.Authn.RequireAdminUnlessBootstrap(d.AuthHandler.Users))
	session := a.Group("", csrf.Middleware(d.CSRF))
	session.POST("/refresh", d.AuthHandler.Refresh)
	session.POST("/logout", d.AuthHandler.Logout)
	a.GET("/me", d.AuthHandler.Me, requireAuth)

	api := v1.Group("", requireAuth)

	users := api.Group("/users")
	users.POST("", d.UserHandler.CreateUser, admin)
	users.GET("", d.UserHandler.ListUsers, admin)
	users.GET("/:id", d.UserHandler.GetUser, ownerOrAdmin)
	users.PUT("/:id", d.UserHandler.UpdateUser, ownerOrAdmin)
	users.PATCH("/:id/password", d.UserHandler.ChangePassword)
	users.PATCH("/:id/deactivate", d.UserHandler.Deactivate, admin)
	users.PATCH("/:id/activate", d.UserHandler.Activate, admin)
	users.GET("/:id/logins", d.UserHandler.LoginHistory, ownerOrAdmin)

	adm := api.Group("/admin", admin)
	adm.POST("/allocations", d.UserHandler.Allocate)
	adm.DELETE("/allocations/:studentId", d.UserHandler.Unallocate)
	adm.GET("/students/unassigned", d.UserHandler.UnassignedStudents)
	adm.GET("/stats", d.UserHandler.Stats)

	api.GET("/tutors/:id/students", d.UserHandler.TutorStudents, ownerOrAdmin)
	api.GET("/students/:id/tutor", d.UserHandler.StudentTutor, ownerOrAdmin)
	api.GET("/students/:id/enrollments", d.AcademicHandler.StudentEnrollments, ownerOrAdmin)

	courses := api.Group("/courses")
	courses.GET("", d.AcademicHandler.ListCourses)
	courses.GET("/:id", d.AcademicHandler.GetCourse)
	courses.POST("", d.AcademicHandler.CreateCourse, admin)
	courses.PUT("/:id", d.AcademicHandler.UpdateCourse, admin)
	courses.DELETE("/:id", d.AcademicHandler.DeleteCourse, admin)

	classes := api.Group("/classes")
	classes.GET("", d.AcademicHandler.ListClasses)
	classes.GET("/:id", d.AcademicHandler.GetClass)
	classes.POST("", d.AcademicHandler.CreateClass, admin)
	classes.PUT("/:id", d.AcademicHandler.UpdateClass, admin)
	classes.DELETE("/:id", d.AcademicHandler.DeleteClass, admin)
	classes.POST("/:id/enrollments", d.AcademicHandler.Enroll)
	classes.GET("/:id/enrollments", d.AcademicHandler.ClassEnrollments)
	classes.DELETE("/:id/enrollments/:studentId", d.AcademicHandler.Unenroll)

	meetings := api.Group("/meetings")
	meetings.POST("", d.MeetingHandler.CreateMeeting)
	meetings.GET("", d.MeetingHandler.ListMeetings)
	meetings.GET("/:id", d.MeetingHandler.GetMeeting)
	meetings.PATCH("/:id/status", d.MeetingHandler.UpdateMeetingStatus)
	meetings.DELETE("/:id", d.MeetingHandler.DeleteMeeting)

	appointments := api.Group("/appointments")
	appointments.POST("", d.MeetingHandler.RequestAppointment, auth.RequireRole(models.RoleStudent))
	appointments.GET("", d.MeetingHandler.ListAppointments)
	appointments.PATCH("/:id", d.MeetingHandler.UpdateAppointment)

	docs := api.Group("/documents")
	docs.POST("", d.DocumentHandler.Upload)
	docs.GET("", d.DocumentHandler.List)
	docs.GET("/:id", d.DocumentHandler.Get)
	docs.GET("/:id/download", d.DocumentHandler.Download)
	docs.DELETE("/:id", d.DocumentHandler.Delete)

	blogs := api.Group("/blogs")
	blogs.GET("", d.BlogHandler.List)
	blogs.GET("/:id", d.BlogHandler.Get)
	blogs.POST("", d.BlogHandler.Create)
	blogs.PUT("/:id", d.BlogHandler.Update)
	blogs.DELETE("/:id", d.BlogHandler.Delete)
	blogs.POST("/:id/comments", d.BlogHandler.AddComment)
	blogs.GET("/:id/comments", d.BlogHandler.Comments)

	messages := api.Group("/messages")
	messages.POST("", d.MessageHandler.Send)
	messages.GET("/unread-count", d.MessageHandler.UnreadCount)
	messages.GET("/with/:userId", d.MessageHandler.Conversation)
	messages.PATCH("/:id/read", d.MessageHandler.MarkRead)

	notifications := api.Group("/notifications")
	notifications.GET("", d.NotificationHandler.List)
	notifications.PATCH("/read-all", d.NotificationHandler.MarkAllRead)
	notifications.PATCH("/:id/read", d.NotificationHandler.MarkRead)

	api.GET("/search", d.SearchHandler.Search)
}

func (d *Deps) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := db.Ping(ctx, d.DB); err != nil {
		logging.FromContext(ctx).Error("readiness_failed", "status", http.StatusServiceUnavailable, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
