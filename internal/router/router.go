package router

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"bahafit/internal/auth"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/handler"
	"bahafit/internal/model"
	"bahafit/internal/service"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth          *handler.AuthHandler
	Events        *handler.EventHandler
	Registrations *handler.RegistrationHandler
	Listings      *handler.ListingHandler
	Admin         *handler.AdminHandler
	Users         *handler.UserHandler
	Seed          *handler.SeedHandler
	Payments      *handler.PaymentHandler
}

// Deps are the collaborators of the session middleware.
type Deps struct {
	JWT         *auth.JWTService
	AuthService service.AuthService
	Log         *zap.Logger
}

// Register wires routes and middleware.
func Register(e *echo.Echo, d Deps, h Handlers) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	e.HTTPErrorHandler = errorHandler(d.Log)
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	optional := []echo.MiddlewareFunc{jwtMiddleware(d.JWT, true), session(d.AuthService, true)}

	// Page entry points
	e.GET("/events/:slug/checkout", h.Events.CheckoutPage, optional...)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/logout", h.Auth.Logout, optional...)
	api.GET("/auth/oauth/:provider", h.Auth.OAuthStart)
	api.GET("/auth/oauth/:provider/callback", h.Auth.OAuthCallback)

	api.GET("/events", h.Events.ListEvents)
	api.GET("/events/:slug", h.Events.GetEvent)
	api.GET("/events/:slug/checkout", h.Events.Checkout)
	api.GET("/listings", h.Listings.ListListings)
	api.GET("/listings/:slug", h.Listings.GetListing)
	api.GET("/cms/schema", h.Listings.Schema)

	api.POST("/payments/webhook", h.Payments.Webhook)

	// Secured routes (require an active session)
	secured := api.Group("",
		jwtMiddleware(d.JWT, false),
		session(d.AuthService, false),
		requireRole(model.RoleUser, model.RoleAdmin),
	)

	secured.GET("/auth/session", h.Auth.Session)
	secured.GET("/dashboard", h.Registrations.Dashboard)

	secured.GET("/events/user", h.Events.ListHostedEvents)
	secured.POST("/events/user", h.Events.CreateUserEvent)
	secured.PATCH("/events/user/:id", h.Events.UpdateUserEvent)

	secured.GET("/registrations", h.Registrations.ListMyRegistrations)
	secured.POST("/registrations", h.Registrations.CreateRegistration)
	secured.POST("/registrations/:id/cancel", h.Registrations.CancelRegistration)

	// Admin routes
	admin := secured.Group("/admin", requireRole(model.RoleAdmin))

	admin.GET("/events", h.Admin.ListEvents)
	admin.GET("/events/:id", h.Admin.GetEvent)
	admin.PATCH("/events/:id", h.Admin.PatchEvent)
	admin.DELETE("/events/:id", h.Admin.DeleteEvent)

	admin.GET("/listings", h.Admin.ListListings)
	admin.GET("/listings/:id", h.Admin.GetListing)
	admin.PATCH("/listings/:id", h.Admin.PatchListing)
	admin.DELETE("/listings/:id", h.Admin.DeleteListing)

	admin.GET("/users", h.Users.ListUsers)
	admin.GET("/users/:id", h.Users.GetUser)
	admin.PATCH("/users/:id", h.Users.UpdateUser)
	admin.DELETE("/users/:id", h.Users.DeleteUser)

	admin.GET("/registrations", h.Admin.ListRegistrations)
	admin.GET("/registrations/stats", h.Admin.RegistrationStats)
	admin.POST("/registrations/:id/check-in", h.Admin.CheckIn)
	admin.POST("/registrations/:id/cancel", h.Admin.CancelRegistration)
	admin.PATCH("/registrations/:id/status", h.Admin.SetRegistrationStatus)

	admin.POST("/import", h.Seed.ImportCMS)
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			if v.Status >= http.StatusInternalServerError {
				log.Error("request", fields...)
			} else {
				log.Info("request", fields...)
			}
			return nil
		},
	})
}

// errorHandler renders every failure as {error, code}.
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		var body apperrors.ErrorResponse

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			switch m := he.Message.(type) {
			case apperrors.ErrorResponse:
				body = m
			case string:
				body.Error = m
			case error:
				body.Error = m.Error()
			}
		} else {
			mapped := apperrors.MapErrorToHTTP(err)
			status = mapped.StatusCode
			body = mapped.ToErrorResponse()
		}
		if body.Error == "" {
			body.Error = http.StatusText(status)
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed", zap.Error(err), zap.String("uri", c.Request().RequestURI))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
