package entity

import "errors"

// Authentication lifecycle
var (
	// ErrCredentialsNotFound means no google_access_data row exists for the company
	ErrCredentialsNotFound = errors.New("no google credentials configured for company")

	// ErrNotAuthenticated means the company never completed the OAuth consent
	ErrNotAuthenticated = errors.New("not authenticated: complete the google consent flow first")

	// ErrReauthenticationRequired means the refresh token is missing or was rejected
	ErrReauthenticationRequired = errors.New("authentication required, please re-authenticate")

	// ErrUnauthorized is returned when the provider still answers 401 after a forced renewal
	ErrUnauthorized = errors.New("unauthorized: token renewal did not help, re-authorization required")
)

// Calendar provider
var (
	ErrProvider          = errors.New("calendar provider error")
	ErrInvalidEventDraft = errors.New("event draft requires startDateTime and endDateTime in RFC3339")
)

// Booking flow
var (
	ErrNoMentorAvailable   = errors.New("no mentor available for the selected slot")
	ErrAppointmentNotFound = errors.New("no pending appointment for flow token")
	ErrUnhandledRequest    = errors.New("unhandled endpoint request, check the action and screen in the logged payload")
	ErrTamperedFlow        = errors.New("booking fields do not match the signed summary")
	ErrInvalidFlowInput    = errors.New("invalid flow input")
)

// Transport security
var (
	ErrInvalidSignature = errors.New("request signature did not match")
	ErrDecryption       = errors.New("failed to decrypt request")
)
