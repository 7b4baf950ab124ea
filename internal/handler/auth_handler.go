package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bahafit/internal/auth"
	"bahafit/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService   service.AuthService
	jwtService    *auth.JWTService
	providers     auth.Providers
	siteURL       string
	secureCookies bool
	log           *zap.Logger
}

// AuthHandlerConfig groups what the auth endpoints need besides the service.
type AuthHandlerConfig struct {
	JWT           *auth.JWTService
	Providers     auth.Providers
	SiteURL       string
	SecureCookies bool
	Log           *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, cfg AuthHandlerConfig) *AuthHandler {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &AuthHandler{
		authService:   authService,
		jwtService:    cfg.JWT,
		providers:     cfg.Providers,
		siteURL:       strings.TrimRight(cfg.SiteURL, "/"),
		secureCookies: cfg.SecureCookies,
		log:           cfg.Log,
	}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required,max=120"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// safeCallback keeps redirects on our own site.
func safeCallback(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return "/"
	}
	return raw
}

func (h *AuthHandler) setSessionCookie(c echo.Context, s *service.Session) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    s.AccessToken,
		Path:     "/",
		MaxAge:   int(s.ExpiresIn),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(err)
	}

	user, err := h.authService.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return fail(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "user registered successfully",
		"user":    auth.IdentityFromUser(user),
	})
}

// Login godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.Session
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(err)
	}

	session, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(err)
	}
	h.setSessionCookie(c, session)
	return c.JSON(http.StatusOK, session)
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} service.Session
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(err)
	}

	session, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return fail(err)
	}
	h.setSessionCookie(c, session)
	return c.JSON(http.StatusOK, session)
}

// Logout godoc
// @Summary Sign out
// @Description Revokes the refresh token and the access token used for the call.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return validationError(err)
	}

	if err := h.authService.Logout(c.Request().Context(), req.RefreshToken, AccessClaims(c)); err != nil {
		return fail(err)
	}
	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

// Session godoc
// @Summary Current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} auth.Identity
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, CurrentUser(c))
}

// OAuthStart godoc
// @Summary Start an OAuth sign-in
// @Tags auth
// @Param provider path string true "google or facebook"
// @Param callbackUrl query string false "Site path to return to"
// @Success 302
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/oauth/{provider} [get]
func (h *AuthHandler) OAuthStart(c echo.Context) error {
	provider, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		return fail(err)
	}
	state, err := h.jwtService.GenerateStateToken(provider.Name(), safeCallback(c.QueryParam("callbackUrl")))
	if err != nil {
		return fail(err)
	}
	return c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// OAuthCallback godoc
// @Summary Finish an OAuth sign-in
// @Description Exchanges the code, signs the user in and redirects to the remembered callback.
// @Tags auth
// @Param provider path string true "google or facebook"
// @Param code query string true "Authorization code"
// @Param state query string true "State token"
// @Success 302
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /auth/oauth/{provider}/callback [get]
func (h *AuthHandler) OAuthCallback(c echo.Context) error {
	provider, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		return fail(err)
	}
	state, err := h.jwtService.ValidateStateToken(c.QueryParam("state"), provider.Name())
	if err != nil {
		return badRequest("invalid or expired sign-in state")
	}
	if reason := c.QueryParam("error"); reason != "" {
		h.log.Info("provider sign-in declined", zap.String("provider", provider.Name()), zap.String("reason", reason))
		return c.Redirect(http.StatusFound, h.siteURL+"/auth/signin?error="+provider.Name())
	}
	code := c.QueryParam("code")
	if code == "" {
		return badRequest("missing code")
	}

	ctx := c.Request().Context()
	profile, err := provider.Exchange(ctx, code)
	if err != nil {
		h.log.Warn("provider exchange failed", zap.String("provider", provider.Name()), zap.Error(err))
		return badRequest("sign-in with " + provider.Name() + " failed")
	}
	session, err := h.authService.LoginWithProvider(ctx, profile)
	if err != nil {
		return fail(err)
	}
	h.setSessionCookie(c, session)
	return c.Redirect(http.StatusFound, h.siteURL+safeCallback(state.CallbackURL))
}
