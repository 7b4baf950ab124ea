package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrMissingPassword is returned when an OAuth-only account attempts a password login.
	ErrMissingPassword = errors.New("account has no password set")
	// ErrAccountInactive is returned when the account has been deactivated.
	ErrAccountInactive = errors.New("account is not active")
	// ErrUnauthorized is returned when a request carries no valid session.
	ErrUnauthorized = errors.New("authentication required")
	// ErrInsufficientPermissions is returned when the session role is not allowed.
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	// ErrUserAlreadyExists is returned when signing up with a taken email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrProviderNotConfigured is returned for an unknown or disabled OAuth provider.
	ErrProviderNotConfigured = errors.New("sign-in provider is not configured")

	ErrUserNotFound         = errors.New("user not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrListingNotFound      = errors.New("listing not found")
	ErrRegistrationNotFound = errors.New("registration not found")

	// ErrValidationFailed wraps request payload problems.
	ErrValidationFailed = errors.New("validation failed")
	// ErrSoldOut is returned when the event or tier has no spots left.
	ErrSoldOut = errors.New("this event is sold out")
	// ErrPriceChanged is returned when the submitted price no longer matches the event.
	ErrPriceChanged = errors.New("the price for this ticket has changed, please review and try again")
	// ErrRegistrationClosed is returned when an event does not accept registrations.
	ErrRegistrationClosed = errors.New("this event is not accepting registrations")
	// ErrAlreadyRegistered is returned when the user already holds a registration for the event.
	ErrAlreadyRegistered = errors.New("you are already registered for this event")
	// ErrInvalidTransition is returned for a registration status change that is not allowed.
	ErrInvalidTransition = errors.New("invalid registration status change")
	// ErrImmutableField is returned when an update tries to change an identifier.
	ErrImmutableField = errors.New("field cannot be modified")
	// ErrInvalidWebhook is returned when a payment webhook fails verification.
	ErrInvalidWebhook = errors.New("invalid webhook payload")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mappings = []struct {
	target error
	status int
	code   string
}{
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrMissingPassword, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrAccountInactive, http.StatusForbidden, "ACCOUNT_INACTIVE"},
	{ErrInsufficientPermissions, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
	{ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
	{ErrProviderNotConfigured, http.StatusNotFound, "PROVIDER_NOT_CONFIGURED"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrEventNotFound, http.StatusNotFound, "EVENT_NOT_FOUND"},
	{ErrListingNotFound, http.StatusNotFound, "LISTING_NOT_FOUND"},
	{ErrRegistrationNotFound, http.StatusNotFound, "REGISTRATION_NOT_FOUND"},
	{ErrValidationFailed, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrImmutableField, http.StatusBadRequest, "IMMUTABLE_FIELD"},
	{ErrInvalidWebhook, http.StatusBadRequest, "INVALID_WEBHOOK"},
	{ErrSoldOut, http.StatusConflict, "SOLD_OUT"},
	{ErrPriceChanged, http.StatusConflict, "PRICE_CHANGED"},
	{ErrRegistrationClosed, http.StatusConflict, "REGISTRATION_CLOSED"},
	{ErrAlreadyRegistered, http.StatusConflict, "ALREADY_REGISTERED"},
	{ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Credential failures share
// one message so responses do not reveal whether an account exists. Validation
// errors keep their wrapped detail.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if !errors.Is(err, m.target) {
			continue
		}
		switch m.target {
		case ErrMissingPassword:
			return NewHTTPError(m.status, ErrInvalidCredentials.Error(), m.code)
		case ErrValidationFailed, ErrImmutableField:
			return NewHTTPError(m.status, err.Error(), m.code)
		}
		return NewHTTPError(m.status, m.target.Error(), m.code)
	}
	return NewHTTPError(http.StatusInternalServerError, "something went wrong", "INTERNAL_ERROR")
}
