package api

import (
	"alcyxob/rehab-app/internal/domain"
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/metrics"
	"alcyxob/rehab-app/internal/service"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Services bundles what the handlers depend on.
type Services struct {
	Auth        service.AuthService
	Catalog     service.CatalogService
	Assignments service.AssignmentService
	Completion  service.CompletionService
	Sessions    service.SessionService
	Stats       service.StatsService
}

// RouterOptions carries the cross-cutting dependencies of the router.
type RouterOptions struct {
	JWTSecret   string
	ServiceName string
	Log         *logger.Logger
	Metrics     *metrics.Manager
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

func SetupRoutes(router *gin.Engine, opts RouterOptions, svc Services) {
	router.Use(
		PanicRecovery(opts.Log, opts.Metrics),
		sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second}),
		otelgin.Middleware(opts.ServiceName),
		RequestID(),
		RequestLogger(opts.Log, opts.Metrics),
	)

	authHandler := NewAuthHandler(svc.Auth, opts.Log)
	exerciseHandler := NewExerciseHandler(svc.Catalog, opts.Log)
	assignmentHandler := NewAssignmentHandler(svc.Assignments, svc.Completion, opts.Log)
	reportHandler := NewReportHandler(svc.Stats, svc.Sessions, opts.Log)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(opts.JWTSecret))
	{
		protected.GET("/me", authHandler.Me)
		protected.PUT("/me/password", authHandler.ChangePassword)

		// Catalog: readable by everyone signed in, written by clinicians.
		clinician := RoleMiddleware(domain.RoleClinician)

		protected.GET("/categories", exerciseHandler.ListCategories)
		protected.POST("/categories", clinician, exerciseHandler.CreateCategory)

		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("", exerciseHandler.ListExercises)
			exerciseGroup.POST("", clinician, exerciseHandler.CreateExercise)
			exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
			exerciseGroup.POST("/:id/video-upload-url", clinician, exerciseHandler.RequestVideoUploadURL)
			exerciseGroup.POST("/:id/video", clinician, exerciseHandler.ConfirmVideoUpload)
		}

		protected.GET("/injury-types", exerciseHandler.ListInjuryTypes)
		protected.POST("/injury-types", clinician, exerciseHandler.CreateInjuryType)

		// Patient routes
		patient := protected.Group("")
		patient.Use(RoleMiddleware(domain.RolePatient))
		{
			assignmentGroup := patient.Group("/assignments")
			{
				assignmentGroup.GET("", assignmentHandler.ListActive)
				assignmentGroup.GET("/inactive", assignmentHandler.ListInactive)
				assignmentGroup.PUT("/:id/completion", assignmentHandler.RecordCompletion)
				assignmentGroup.GET("/:id/can-increase", assignmentHandler.CanIncrease)
				assignmentGroup.POST("/:id/transitions", assignmentHandler.ConfirmTransition)
				assignmentGroup.PUT("/:id/reactivate", assignmentHandler.Reactivate)
			}

			reportGroup := patient.Group("/reports")
			{
				reportGroup.GET("/adherence", reportHandler.Adherence)
				reportGroup.GET("/pain", reportHandler.Pain)
				reportGroup.GET("/history", reportHandler.History)
				reportGroup.PUT("/today/notes", reportHandler.UpdateTodayNotes)
			}
		}
	}
}
