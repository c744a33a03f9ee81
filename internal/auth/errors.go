package auth

import (
	"errors"
	"strings"
)

// ErrNotAuthenticated is returned when no user is signed in.
var ErrNotAuthenticated = errors.New("User not authenticated")

type Code string

const (
	CodeUserNotFound         Code = "auth/user-not-found"
	CodeWrongPassword        Code = "auth/wrong-password"
	CodeInvalidCredential    Code = "auth/invalid-credential"
	CodeEmailAlreadyInUse    Code = "auth/email-already-in-use"
	CodeWeakPassword         Code = "auth/weak-password"
	CodeInvalidEmail         Code = "auth/invalid-email"
	CodeTooManyRequests      Code = "auth/too-many-requests"
	CodeNetworkRequestFailed Code = "auth/network-request-failed"
	CodeUserDisabled         Code = "auth/user-disabled"
	CodeUserTokenExpired     Code = "auth/user-token-expired"
	CodeInternalError        Code = "auth/internal-error"
	CodeSignOutFailed        Code = "auth/sign-out-failed"
)

var messages = map[Code]string{
	CodeUserNotFound:         "No account found with this email address",
	CodeWrongPassword:        "Incorrect password",
	CodeEmailAlreadyInUse:    "An account with this email already exists",
	CodeWeakPassword:         "Password should be at least 6 characters",
	CodeInvalidEmail:         "Invalid email address",
	CodeTooManyRequests:      "Too many failed attempts. Please try again later",
	CodeNetworkRequestFailed: "Network error. Please check your connection",
	CodeSignOutFailed:        "Failed to sign out",
}

const defaultMessage = "An error occurred. Please try again"

// providerCodes maps identity toolkit error messages to codes.
var providerCodes = map[string]Code{
	"EMAIL_NOT_FOUND":             CodeUserNotFound,
	"USER_NOT_FOUND":              CodeUserNotFound,
	"INVALID_PASSWORD":            CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":   CodeInvalidCredential,
	"EMAIL_EXISTS":                CodeEmailAlreadyInUse,
	"WEAK_PASSWORD":               CodeWeakPassword,
	"INVALID_EMAIL":               CodeInvalidEmail,
	"MISSING_EMAIL":               CodeInvalidEmail,
	"TOO_MANY_ATTEMPTS_TRY_LATER": CodeTooManyRequests,
	"USER_DISABLED":               CodeUserDisabled,
	"TOKEN_EXPIRED":               CodeUserTokenExpired,
	"INVALID_REFRESH_TOKEN":       CodeUserTokenExpired,
	"INVALID_ID_TOKEN":            CodeUserTokenExpired,
}

// Error is a failure reported to the user. Message is safe to display.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, err error) *Error {
	message, ok := messages[code]
	if !ok {
		message = defaultMessage
	}
	return &Error{Code: code, Message: message, Err: err}
}

// providerCode extracts the code from messages such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func providerCode(message string) Code {
	key := strings.TrimSpace(strings.SplitN(message, ":", 2)[0])
	if code, ok := providerCodes[key]; ok {
		return code
	}
	return CodeInternalError
}
