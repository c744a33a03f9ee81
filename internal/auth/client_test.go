package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sessionFile := filepath.Join(t.TempDir(), "session.yml")
	client, err := NewClient(Config{
		APIKey:           "api-key",
		IdentityURL:      server.URL + "/v1",
		TokenURL:         server.URL + "/token-service",
		SessionFile:      sessionFile,
		MaxRetryAttempts: 2,
	})
	require.NoError(t, err)
	return client, sessionFile
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func providerError(message string) map[string]any {
	return map[string]any{
		"error": map[string]any{"code": 400, "message": message},
	}
}

func identityHandler(t *testing.T, calls *[]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*calls = append(*calls, r.URL.Path)
		assert.Equal(t, "api-key", r.URL.Query().Get("key"))

		var body map[string]any
		if r.Header.Get("Content-Type") == "application/json" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		}

		switch r.URL.Path {
		case "/v1/accounts:signUp", "/v1/accounts:signInWithPassword":
			assert.Equal(t, true, body["returnSecureToken"])
			writeJSON(t, w, http.StatusOK, map[string]any{
				"idToken":      "id-token-1",
				"refreshToken": "refresh-1",
				"expiresIn":    "3600",
				"localId":      "uid-1",
				"email":        body["email"],
			})
		case "/v1/accounts:update":
			assert.Equal(t, "id-token-1", body["idToken"])
			writeJSON(t, w, http.StatusOK, map[string]any{
				"localId":      "uid-1",
				"displayName":  body["displayName"],
				"idToken":      "id-token-2",
				"refreshToken": "refresh-2",
				"expiresIn":    "3600",
			})
		case "/v1/accounts:lookup":
			displayName := ""
			if body["idToken"] == "id-token-2" {
				displayName = "Ada"
			}
			writeJSON(t, w, http.StatusOK, map[string]any{
				"users": []map[string]any{{
					"localId":       "uid-1",
					"email":         "ada@example.com",
					"displayName":   displayName,
					"emailVerified": true,
				}},
			})
		case "/v1/accounts:sendOobCode":
			assert.Equal(t, "PASSWORD_RESET", body["requestType"])
			writeJSON(t, w, http.StatusOK, map[string]any{"email": body["email"]})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestClient_SignUp(t *testing.T) {
	var calls []string
	client, sessionFile := newTestClient(t, identityHandler(t, &calls))

	user, err := client.SignUp(context.Background(), "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)

	assert.Equal(t, &User{UID: "uid-1", Email: "ada@example.com", DisplayName: "Ada", EmailVerified: true}, user)
	assert.Equal(t, []string{"/v1/accounts:signUp", "/v1/accounts:update", "/v1/accounts:lookup"}, calls)

	token, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id-token-2", token)

	// A new client shares the persisted session.
	reloaded, err := NewClient(Config{SessionFile: sessionFile})
	require.NoError(t, err)
	assert.Equal(t, user, reloaded.CurrentUser())
}

func TestClient_SignInAndOut(t *testing.T) {
	var calls []string
	client, sessionFile := newTestClient(t, identityHandler(t, &calls))

	var observed []*User
	unsubscribe := client.Subscribe(func(user *User) {
		observed = append(observed, user)
	})
	defer unsubscribe()

	_, err := client.SignIn(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, client.SignOut(context.Background()))

	require.Len(t, observed, 3)
	assert.Nil(t, observed[0])
	assert.Equal(t, "uid-1", observed[1].UID)
	assert.Nil(t, observed[2])

	assert.Nil(t, client.CurrentUser())
	_, err = os.Stat(sessionFile)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = client.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestClient_ResetPassword(t *testing.T) {
	var calls []string
	client, _ := newTestClient(t, identityHandler(t, &calls))

	require.NoError(t, client.ResetPassword(context.Background(), "ada@example.com"))
	assert.Equal(t, []string{"/v1/accounts:sendOobCode"}, calls)
}

func TestClient_ProviderErrors(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		wantCode    Code
		wantMessage string
	}{
		{name: "unknown email", message: "EMAIL_NOT_FOUND", wantCode: CodeUserNotFound, wantMessage: "No account found with this email address"},
		{name: "wrong password", message: "INVALID_PASSWORD", wantCode: CodeWrongPassword, wantMessage: "Incorrect password"},
		{name: "email in use", message: "EMAIL_EXISTS", wantCode: CodeEmailAlreadyInUse, wantMessage: "An account with this email already exists"},
		{name: "weak password with detail", message: "WEAK_PASSWORD : Password should be at least 6 characters", wantCode: CodeWeakPassword, wantMessage: "Password should be at least 6 characters"},
		{name: "invalid email", message: "INVALID_EMAIL", wantCode: CodeInvalidEmail, wantMessage: "Invalid email address"},
		{name: "throttled", message: "TOO_MANY_ATTEMPTS_TRY_LATER : Access disabled", wantCode: CodeTooManyRequests, wantMessage: "Too many failed attempts. Please try again later"},
		{name: "unknown", message: "OPERATION_NOT_ALLOWED", wantCode: CodeInternalError, wantMessage: "An error occurred. Please try again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, sessionFile := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusBadRequest, providerError(tt.message))
			})

			_, err := client.SignIn(context.Background(), "ada@example.com", "x")

			var authErr *Error
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, tt.wantCode, authErr.Code)
			assert.Equal(t, tt.wantMessage, authErr.Error())

			assert.Nil(t, client.CurrentUser())
			_, statErr := os.Stat(sessionFile)
			assert.True(t, errors.Is(statErr, os.ErrNotExist))
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	client, err := NewClient(Config{
		APIKey:      "api-key",
		IdentityURL: "http://127.0.0.1:1/v1",
		SessionFile: filepath.Join(t.TempDir(), "session.yml"),
	})
	require.NoError(t, err)

	_, err = client.SignIn(context.Background(), "ada@example.com", "x")

	var authErr *Error
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, CodeNetworkRequestFailed, authErr.Code)
	assert.Equal(t, "Network error. Please check your connection", authErr.Error())
}

func TestClient_SignOutFailure(t *testing.T) {
	// A non-empty directory cannot be removed as a session file.
	sessionFile := filepath.Join(t.TempDir(), "session.yml")
	require.NoError(t, os.MkdirAll(filepath.Join(sessionFile, "child"), 0o755))

	client := &Client{
		config:    Config{SessionFile: sessionFile},
		now:       time.Now,
		observers: make(map[int]func(*User)),
	}

	err := client.SignOut(context.Background())
	var authErr *Error
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, CodeSignOutFailed, authErr.Code)
	assert.Equal(t, "Failed to sign out", authErr.Error())
}

func TestClient_TokenRefresh(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		wantToken    string
		wantCode     Code
		wantAttempts int32
	}{
		{
			name:         "refreshes an expired token",
			statuses:     []int{http.StatusOK},
			wantToken:    "fresh-token",
			wantAttempts: 1,
		},
		{
			name:         "retries server errors",
			statuses:     []int{http.StatusServiceUnavailable, http.StatusOK},
			wantToken:    "fresh-token",
			wantAttempts: 2,
		},

		{
			name:         "gives up after the retry budget",
			statuses:     []int{http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests},
			wantCode:     CodeTooManyRequests,
			wantAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			client, sessionFile := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/token-service/token", r.URL.Path)
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
				assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))

				attempt := attempts.Add(1)
				status := tt.statuses[attempt-1]
				if status != http.StatusOK {
					writeJSON(t, w, status, providerError("INVALID_REFRESH_TOKEN"))
					return
				}
				writeJSON(t, w, http.StatusOK, map[string]any{
					"id_token":      "fresh-token",
					"refresh_token": "refresh-2",
					"expires_in":    "3600",
					"user_id":       "uid-1",
				})
			})

			now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
			client.now = func() time.Time { return now }
			client.session = &session{
				User:         User{UID: "uid-1"},
				IDToken:      "stale-token",
				RefreshToken: "refresh-1",
				ExpiresAt:    now.Add(30 * time.Second),
			}

			token, err := client.Token(context.Background())
			assert.Equal(t, tt.wantAttempts, attempts.Load())
			if tt.wantCode != "" {
				var authErr *Error
				require.True(t, errors.As(err, &authErr))
				assert.Equal(t, tt.wantCode, authErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)

			saved, err := loadSession(sessionFile)
			require.NoError(t, err)
			assert.Equal(t, "refresh-2", saved.RefreshToken)
			assert.True(t, now.Add(time.Hour).Equal(saved.ExpiresAt))
		})
	}
}

func TestClient_TokenRefreshWithDeadSession(t *testing.T) {
	tests := []struct {
		message  string
		wantCode Code
	}{
		{message: "TOKEN_EXPIRED", wantCode: CodeUserTokenExpired},
		{message: "INVALID_REFRESH_TOKEN", wantCode: CodeUserTokenExpired},
		{message: "USER_NOT_FOUND", wantCode: CodeUserNotFound},
		{message: "USER_DISABLED", wantCode: CodeUserDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			var attempts atomic.Int32
			client, sessionFile := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				writeJSON(t, w, http.StatusBadRequest, providerError(tt.message))
			})

			now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
			client.now = func() time.Time { return now }
			client.session = &session{
				User:         User{UID: "uid-1"},
				IDToken:      "stale-token",
				RefreshToken: "refresh-1",
				ExpiresAt:    now.Add(-time.Hour),
			}
			require.NoError(t, saveSession(sessionFile, client.session))

			var users []*User
			unsubscribe := client.Subscribe(func(user *User) {
				users = append(users, user)
			})
			defer unsubscribe()

			_, err := client.Token(context.Background())
			assert.ErrorIs(t, err, ErrNotAuthenticated)
			var authErr *Error
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, tt.wantCode, authErr.Code)
			assert.Equal(t, int32(1), attempts.Load())

			assert.Nil(t, client.CurrentUser())
			assert.NoFileExists(t, sessionFile)
			require.Len(t, users, 2)
			assert.Nil(t, users[1])

			_, err = client.Token(context.Background())
			assert.ErrorIs(t, err, ErrNotAuthenticated)
			assert.Equal(t, int32(1), attempts.Load())
		})
	}
}

func TestClient_TokenNotExpired(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	now := time.Now()
	client.session = &session{IDToken: "valid", ExpiresAt: now.Add(time.Hour)}

	token, err := client.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "valid", token)
}
