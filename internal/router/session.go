package router

import (
	"errors"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"bahafit/internal/auth"
	apperrors "bahafit/internal/errors"
	"bahafit/internal/handler"
	"bahafit/internal/model"
	"bahafit/internal/service"
)

const tokenLookup = "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:" + handler.SessionCookie

func fail(err error) *echo.HTTPError {
	mapped := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse())
}

// jwtMiddleware parses the access token from the Authorization header or
// the session cookie. Only access tokens are accepted. With optional set,
// requests without a usable token continue anonymously.
func jwtMiddleware(jwtService *auth.JWTService, optional bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.TokenKey,
		TokenLookup: tokenLookup,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateAccessToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if optional {
				return nil
			}
			return fail(apperrors.ErrUnauthorized)
		},
		ContinueOnIgnoredError: optional,
	})
}

// session resolves the identity behind the access token on every request.
// Role and active flag come from the user store, so admin changes apply on
// the user's next request. Revoked tokens are rejected.
func session(authService service.AuthService, optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := handler.AccessClaims(c)
			if claims == nil {
				if optional {
					return next(c)
				}
				return fail(apperrors.ErrUnauthorized)
			}

			ctx := c.Request().Context()
			revoked, err := authService.IsRevoked(ctx, claims.ID)
			if err != nil {
				return fail(err)
			}
			var id *auth.Identity
			if !revoked {
				id, err = authService.RefreshSession(ctx, claims)
				if err != nil && !errors.Is(err, apperrors.ErrUnauthorized) {
					return fail(err)
				}
			}
			if id == nil {
				if optional {
					c.Set(handler.TokenKey, nil)
					return next(c)
				}
				return fail(apperrors.ErrUnauthorized)
			}

			c.Set(handler.IdentityKey, id)
			return next(c)
		}
	}
}

// requireRole admits active sessions holding one of the allowed roles.
func requireRole(allowed ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := auth.RequireRole(handler.CurrentUser(c), allowed...); err != nil {
				return fail(err)
			}
			return next(c)
		}
	}
}
