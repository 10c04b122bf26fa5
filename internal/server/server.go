package server

import (
	"context"
	"net/http"
	"time"

	"gymdesk/internal/auth"
	"gymdesk/internal/booking"
	"gymdesk/internal/catalog"
	"gymdesk/internal/checkin"
	"gymdesk/internal/config"
	"gymdesk/internal/member"
	"gymdesk/internal/schedule"
	"gymdesk/internal/subscription"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers of every domain package.
type Handlers struct {
	Members       *member.Handler
	Subscriptions *subscription.Handler
	Catalog       *catalog.Handler
	Schedule      *schedule.Handler
	Bookings      *booking.Handler
	CheckIns      *checkin.Handler
}

type Server struct {
	router *gin.Engine
	config *config.Config
	http   *http.Server
}

func New(cfg *config.Config, h Handlers) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	admin := auth.RequireRole(auth.RoleAdmin)
	staff := auth.RequireStaff()
	qrLimit := RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)

	protected := router.Group("/api")
	protected.Use(auth.AuthMiddleware(cfg.JWTSecret))
	{
		protected.GET("/me", h.Members.Me)

		protected.GET("/plans", h.Subscriptions.ListPlans)
		subs := protected.Group("/subscriptions")
		{
			subs.GET("/user/:userId", h.Subscriptions.ListForUser)
			subs.POST("/:id/renew", admin, h.Subscriptions.Renew)
			subs.POST("/:id/suspend", admin, h.Subscriptions.Suspend)
			subs.POST("/:id/cancel", admin, h.Subscriptions.Cancel)
		}

		classes := protected.Group("/classes")
		{
			classes.GET("", h.Catalog.ListClasses)
			classes.GET("/:id", h.Catalog.GetClass)
			classes.POST("", admin, h.Catalog.CreateClass)
			classes.PUT("/:id", admin, h.Catalog.UpdateClass)
			classes.DELETE("/:id", admin, h.Catalog.DeleteClass)
			classes.POST("/:id/instructors/:instructorId", admin, h.Catalog.AssignInstructor)
			classes.DELETE("/:id/instructors/:instructorId", admin, h.Catalog.UnassignInstructor)
		}

		instructors := protected.Group("/instructors")
		{
			instructors.GET("", h.Catalog.ListInstructors)
			instructors.GET("/:id", h.Catalog.GetInstructor)
			instructors.POST("", admin, h.Catalog.CreateInstructor)
			instructors.PUT("/:id", admin, h.Catalog.UpdateInstructor)
			instructors.DELETE("/:id", admin, h.Catalog.DeleteInstructor)
		}

		sched := protected.Group("/schedule")
		{
			sched.GET("", h.Schedule.List)
			sched.GET("/weekly", h.Schedule.Weekly)
			sched.GET("/:id", h.Schedule.Get)
			sched.GET("/:id/availability", h.Schedule.Availability)
			sched.POST("", admin, h.Schedule.Create)
			sched.PUT("/:id", admin, h.Schedule.Update)
			sched.DELETE("/:id", admin, h.Schedule.Delete)
			sched.POST("/:id/cancel", admin, h.Schedule.Cancel)
		}

		bookings := protected.Group("/bookings")
		{
			bookings.POST("", h.Bookings.BookSlot)
			bookings.GET("", staff, h.Bookings.ListAll)
			bookings.GET("/stats", staff, h.Bookings.Report)
			bookings.GET("/user/:userId", h.Bookings.ListForUser)
			bookings.GET("/:id", h.Bookings.Get)
			bookings.POST("/:id/cancel", h.Bookings.CancelBooking)
			bookings.POST("/:id/attended", staff, h.Bookings.MarkAttended)
			bookings.POST("/:id/no-show", staff, h.Bookings.MarkNoShow)
		}

		qr := protected.Group("/qr")
		qr.Use(qrLimit)
		{
			qr.POST("/mint", h.CheckIns.Mint)
			qr.POST("/verify", staff, h.CheckIns.Verify)
		}

		checkIns := protected.Group("/check-ins")
		checkIns.Use(staff)
		{
			checkIns.POST("", h.CheckIns.Create)
			checkIns.GET("", h.CheckIns.List)
			checkIns.GET("/stats", h.CheckIns.Stats)
		}
	}

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
