package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/societyhub/internal/api"
	"github.com/MarkoPoloResearchLab/societyhub/internal/auth"
	"github.com/MarkoPoloResearchLab/societyhub/internal/contact"
	"github.com/MarkoPoloResearchLab/societyhub/internal/content"
	"github.com/MarkoPoloResearchLab/societyhub/internal/metrics"
	"github.com/MarkoPoloResearchLab/societyhub/internal/notifications"
	"github.com/MarkoPoloResearchLab/societyhub/internal/ratelimit"
	"github.com/MarkoPoloResearchLab/societyhub/internal/storage"
)

const (
	apiRoutePrefix         = "/api"
	adminRoutePrefix       = "/api/admin"
	routeHealth            = "/healthz"
	routeMetrics           = "/metrics"
	corsOriginWildcard     = "*"
	logEventNotifications  = "contact_notifications_disabled"
	loginRateLimitAttempts = 5
	loginRateLimitWindow   = 15 * time.Minute
	registrationAttempts   = 5
	registrationWindow     = time.Hour
)

var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsAllowedHeaders = []string{"Authorization", "Content-Type"}
	corsExposedHeaders = []string{"Content-Type"}
)

type routerDependencies struct {
	logger          *zap.Logger
	responder       *api.Responder
	collectors      *metrics.Collectors
	tokenVerifier   api.TokenVerifier
	databasePinger  api.DatabasePinger
	allowedOrigins  []string
	contactHandlers *api.ContactHandlers
	authHandlers    *api.AuthHandlers
	eventHandlers   *api.EventHandlers
	blogHandlers    *api.BlogHandlers
	galleryHandlers *api.GalleryHandlers
}

func buildRouterDependencies(configuration ServerConfig, logger *zap.Logger, database *gorm.DB, now func() time.Time) (routerDependencies, error) {
	collectors := metrics.NewCollectors()
	responder := api.NewResponder(logger, configuration.Development())

	contactLimiter, limiterErr := ratelimit.NewFixedWindowLimiter(ratelimit.Config{
		MaxAttempts: configuration.ContactRateLimit,
		Window:      configuration.ContactRateWindow,
	}, ratelimit.WithClock(now))
	if limiterErr != nil {
		return routerDependencies{}, fmt.Errorf("contact rate limiter: %w", limiterErr)
	}
	loginLimiter, limiterErr := ratelimit.NewFixedWindowLimiter(ratelimit.Config{
		MaxAttempts: loginRateLimitAttempts,
		Window:      loginRateLimitWindow,
	}, ratelimit.WithClock(now))
	if limiterErr != nil {
		return routerDependencies{}, fmt.Errorf("login rate limiter: %w", limiterErr)
	}
	registrationLimiter, limiterErr := ratelimit.NewFixedWindowLimiter(ratelimit.Config{
		MaxAttempts: registrationAttempts,
		Window:      registrationWindow,
	}, ratelimit.WithClock(now))
	if limiterErr != nil {
		return routerDependencies{}, fmt.Errorf("registration rate limiter: %w", limiterErr)
	}

	emailSender, senderErr := newEmailSender(configuration, logger)
	if senderErr != nil {
		return routerDependencies{}, senderErr
	}
	dispatcher := notifications.NewContactDispatcher(logger, emailSender, notifications.ContactDispatcherConfig{
		Recipient: configuration.NotificationTo,
		Timeout:   configuration.NotificationTimeout,
	}, collectors)

	contactService, serviceErr := contact.NewService(
		logger,
		storage.NewContactStore(database),
		contactLimiter,
		dispatcher,
		contact.WithClock(now),
		contact.WithRejectionRecorder(collectors),
	)
	if serviceErr != nil {
		return routerDependencies{}, serviceErr
	}

	tokenService, tokenErr := auth.NewTokenService(configuration.JWTSecret, configuration.JWTTTL, auth.WithTokenClock(now))
	if tokenErr != nil {
		return routerDependencies{}, fmt.Errorf("%s: %s: %w", invalidConfigurationMessage, flagNameJWTSecret, tokenErr)
	}
	credentials := auth.AdminCredentials{
		Username:     configuration.AdminUsername,
		PasswordHash: configuration.AdminPasswordHash,
	}

	sqlDatabase, sqlErr := database.DB()
	if sqlErr != nil {
		return routerDependencies{}, fmt.Errorf("database handle: %w", sqlErr)
	}

	return routerDependencies{
		logger:          logger,
		responder:       responder,
		collectors:      collectors,
		tokenVerifier:   tokenService,
		databasePinger:  sqlDatabase,
		allowedOrigins:  configuration.CORSOrigins,
		contactHandlers: api.NewContactHandlers(contactService, responder),
		authHandlers:    api.NewAuthHandlers(logger, credentials, tokenService, loginLimiter, collectors, responder),
		eventHandlers:   api.NewEventHandlers(logger, storage.NewEventStore(database), registrationLimiter, collectors, responder, now),
		blogHandlers:    api.NewBlogHandlers(storage.NewBlogStore(database), content.NewRenderer(), responder, now),
		galleryHandlers: api.NewGalleryHandlers(storage.NewGalleryStore(database), responder),
	}, nil
}

func newEmailSender(configuration ServerConfig, logger *zap.Logger) (notifications.EmailSender, error) {
	if configuration.SMTPHost == "" || configuration.NotificationFrom == "" || configuration.NotificationTo == "" {
		logger.Info(logEventNotifications)
		return nil, nil
	}
	sender, senderErr := notifications.NewSMTPSender(logger, notifications.SMTPConfig{
		Host:     configuration.SMTPHost,
		Port:     configuration.SMTPPort,
		Username: configuration.SMTPUsername,
		Password: configuration.SMTPPassword,
		From:     configuration.NotificationFrom,
		Timeout:  configuration.NotificationTimeout,
	})
	if senderErr != nil {
		return nil, fmt.Errorf("smtp sender: %w", senderErr)
	}
	return sender, nil
}

func newCORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	configuration := cors.Config{
		AllowMethods:     corsAllowedMethods,
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || containsWildcard(allowedOrigins) {
		configuration.AllowOrigins = []string{corsOriginWildcard}
	} else {
		configuration.AllowOrigins = allowedOrigins
	}
	return cors.New(configuration)
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == corsOriginWildcard {
			return true
		}
	}
	return false
}

func buildRouter(dependencies routerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestLogger(dependencies.logger))
	router.Use(dependencies.collectors.Middleware())
	router.Use(newCORSMiddleware(dependencies.allowedOrigins))

	router.NoRoute(dependencies.responder.NotFound)
	router.GET(routeHealth, api.HealthHandler(dependencies.databasePinger, dependencies.responder))
	router.GET(routeMetrics, gin.WrapH(dependencies.collectors.Handler()))

	registerPublicRoutes(router.Group(apiRoutePrefix), dependencies)

	adminGroup := router.Group(adminRoutePrefix)
	adminGroup.Use(api.AdminAuthMiddleware(dependencies.tokenVerifier, dependencies.responder, dependencies.logger))
	registerAdminRoutes(adminGroup, dependencies)

	return router
}

func registerPublicRoutes(group *gin.RouterGroup, dependencies routerDependencies) {
	group.POST("/contacts", dependencies.contactHandlers.Submit)

	group.POST("/auth/login", dependencies.authHandlers.Login)
	group.GET("/auth/verify",
		api.AdminAuthMiddleware(dependencies.tokenVerifier, dependencies.responder, dependencies.logger),
		dependencies.authHandlers.Verify,
	)

	group.GET("/events", dependencies.eventHandlers.ListPublished)
	group.GET("/events/:ref", dependencies.eventHandlers.GetPublished)
	group.POST("/events/:ref/registrations", dependencies.eventHandlers.Register)

	group.GET("/blog", dependencies.blogHandlers.ListPublished)
	group.GET("/blog/:slug", dependencies.blogHandlers.GetPublished)

	group.GET("/gallery", dependencies.galleryHandlers.List)
}

func registerAdminRoutes(group *gin.RouterGroup, dependencies routerDependencies) {
	group.GET("/contacts", dependencies.contactHandlers.List)
	group.GET("/contacts/:id", dependencies.contactHandlers.Get)
	group.PUT("/contacts/:id", dependencies.contactHandlers.Update)
	group.DELETE("/contacts/:id", dependencies.contactHandlers.Delete)

	group.GET("/events", dependencies.eventHandlers.ListAll)
	group.POST("/events", dependencies.eventHandlers.Create)
	group.PUT("/events/:id", dependencies.eventHandlers.Update)
	group.DELETE("/events/:id", dependencies.eventHandlers.Delete)
	group.GET("/events/:id/registrations", dependencies.eventHandlers.ListRegistrations)
	group.DELETE("/events/:id/registrations/:registrationId", dependencies.eventHandlers.DeleteRegistration)

	group.GET("/blog", dependencies.blogHandlers.ListAll)
	group.GET("/blog/:id", dependencies.blogHandlers.Get)
	group.POST("/blog", dependencies.blogHandlers.Create)
	group.PUT("/blog/:id", dependencies.blogHandlers.Update)
	group.DELETE("/blog/:id", dependencies.blogHandlers.Delete)

	group.POST("/gallery", dependencies.galleryHandlers.Create)
	group.PUT("/gallery/:id", dependencies.galleryHandlers.Update)
	group.DELETE("/gallery/:id", dependencies.galleryHandlers.Delete)
}
