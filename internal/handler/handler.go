package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"bahafit/internal/auth"
	"bahafit/internal/errors"
)

const (
	// IdentityKey is where the session middleware stores the current *auth.Identity.
	IdentityKey = "identity"
	// TokenKey is where echo-jwt stores the *auth.Claims of the access token.
	TokenKey = "user"
	// SessionCookie carries the access token for page requests.
	SessionCookie = "session_token"
)

// CurrentUser returns the identity resolved for this request, or nil.
func CurrentUser(c echo.Context) *auth.Identity {
	id, _ := c.Get(IdentityKey).(*auth.Identity)
	return id
}

// AccessClaims returns the claims of the access token that authenticated
// the request, or nil.
func AccessClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(TokenKey).(*auth.Claims)
	return claims
}

// fail converts a domain error into the standard error body.
func fail(err error) *echo.HTTPError {
	mapped := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse())
}

func badRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: msg,
		Code:  "INVALID_REQUEST",
	})
}

func validationError(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, badRequest("invalid " + name)
	}
	return id, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badRequest("invalid " + name)
	}
	return &v, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, badRequest("invalid " + name)
	}
	return v, nil
}

func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, badRequest("invalid " + name)
	}
	return &id, nil
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
