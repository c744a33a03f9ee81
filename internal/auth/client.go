// Package auth signs users in against the Firebase Identity Toolkit REST API and
// keeps the session on disk so that every command shares it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
)

// Tokens are refreshed this long before they expire.
const expiryLeeway = time.Minute

type Config struct {
	APIKey           string
	IdentityURL      string
	TokenURL         string
	SessionFile      string
	MaxRetryAttempts uint
}

// Client is the identity provider client. It is safe for concurrent use.
type Client struct {
	httpClient *resty.Client
	config     Config
	now        func() time.Time

	mu        sync.Mutex
	session   *session
	observers map[int]func(*User)
	nextID    int
}

func NewClient(config Config) (*Client, error) {
	s, err := loadSession(config.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("loadSession > %w", err)
	}

	return &Client{
		httpClient: resty.New(),
		config:     config,
		now:        time.Now,
		session:    s,
		observers:  make(map[int]func(*User)),
	}, nil
}

type identityError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type tokenResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
}

type lookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		DisplayName   string `json:"displayName"`
		PhotoURL      string `json:"photoUrl"`
		EmailVerified bool   `json:"emailVerified"`
	} `json:"users"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*User, error) {
	var tokens tokenResponse
	if err := c.callIdentity(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &tokens); err != nil {
		return nil, err
	}

	if displayName != "" {
		var updated tokenResponse
		if err := c.callIdentity(ctx, "accounts:update", map[string]any{
			"idToken":           tokens.IDToken,
			"displayName":       displayName,
			"returnSecureToken": true,
		}, &updated); err != nil {
			return nil, err
		}
		if updated.IDToken != "" {
			tokens.IDToken = updated.IDToken
			tokens.RefreshToken = updated.RefreshToken
			tokens.ExpiresIn = updated.ExpiresIn
		}
	}

	return c.establish(ctx, tokens)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	var tokens tokenResponse
	if err := c.callIdentity(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &tokens); err != nil {
		return nil, err
	}
	return c.establish(ctx, tokens)
}

// SignOut forgets the session.
func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	if err := removeSession(c.config.SessionFile); err != nil {
		c.mu.Unlock()
		return newError(CodeSignOutFailed, err)
	}
	c.session = nil
	c.mu.Unlock()

	c.notify(nil)
	return nil
}

// ResetPassword sends a password reset email.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.callIdentity(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

// CurrentUser returns nil when nobody is signed in.
func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	user := c.session.User
	return &user
}

// Subscribe calls fn with the current user now and again after every sign-in or sign-out.
// The returned function stops the notifications.
func (c *Client) Subscribe(fn func(*User)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()

	fn(c.CurrentUser())

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Token returns a valid ID token, refreshing it when it is about to expire.
// A refresh rejected because the session is dead signs the user out and
// returns an error matching ErrNotAuthenticated.
func (c *Client) Token(ctx context.Context) (string, error) {
	token, err := c.token(ctx)
	if err == nil || !isDeadSession(err) {
		return token, err
	}

	c.mu.Lock()
	c.session = nil
	if removeErr := removeSession(c.config.SessionFile); removeErr != nil {
		slog.Default().Warn("failed to remove the expired session", "error", removeErr)
	}
	c.mu.Unlock()
	c.notify(nil)
	return "", fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return "", ErrNotAuthenticated
	}
	if c.now().Add(expiryLeeway).Before(c.session.ExpiresAt) {
		return c.session.IDToken, nil
	}

	refreshed, err := c.refresh(ctx, c.session.RefreshToken)
	if err != nil {
		return "", err
	}
	c.session.IDToken = refreshed.IDToken
	c.session.RefreshToken = refreshed.RefreshToken
	c.session.ExpiresAt = c.expiresAt(refreshed.ExpiresIn)
	if err := saveSession(c.config.SessionFile, c.session); err != nil {
		slog.Default().Warn("failed to save the refreshed session", "error", err)
	}
	return c.session.IDToken, nil
}

// isDeadSession reports whether the refresh token can never be used again.
func isDeadSession(err error) bool {
	var authErr *Error
	if !errors.As(err, &authErr) {
		return false
	}
	switch authErr.Code {
	case CodeUserTokenExpired, CodeUserNotFound, CodeUserDisabled:
		return true
	}
	return false
}

func (c *Client) establish(ctx context.Context, tokens tokenResponse) (*User, error) {
	user := User{
		UID:         tokens.LocalID,
		Email:       tokens.Email,
		DisplayName: tokens.DisplayName,
	}

	var lookup lookupResponse
	if err := c.callIdentity(ctx, "accounts:lookup", map[string]any{
		"idToken": tokens.IDToken,
	}, &lookup); err != nil {
		return nil, err
	}
	if len(lookup.Users) > 0 {
		found := lookup.Users[0]
		user = User{
			UID:           found.LocalID,
			Email:         found.Email,
			DisplayName:   found.DisplayName,
			PhotoURL:      found.PhotoURL,
			EmailVerified: found.EmailVerified,
		}
	}

	s := &session{
		User:         user,
		IDToken:      tokens.IDToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    c.expiresAt(tokens.ExpiresIn),
	}

	c.mu.Lock()
	if err := saveSession(c.config.SessionFile, s); err != nil {
		c.mu.Unlock()
		return nil, newError(CodeInternalError, err)
	}
	c.session = s
	c.mu.Unlock()

	c.notify(&user)
	return &user, nil
}

func (c *Client) expiresAt(expiresIn string) time.Time {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil {
		seconds = 3600
	}
	return c.now().Add(time.Duration(seconds) * time.Second)
}

func (c *Client) callIdentity(ctx context.Context, method string, body map[string]any, result any) error {
	var providerErr identityError
	request := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", c.config.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetError(&providerErr)
	if result != nil {
		request.SetResult(result)
	}

	res, err := request.Post(c.config.IdentityURL + "/" + method)
	if err != nil {
		return newError(CodeNetworkRequestFailed, fmt.Errorf("httpClient.Post(%s) > %w", method, err))
	}
	if res.IsError() {
		slog.Default().Debug("identity provider error",
			"method", method,
			"status", res.StatusCode(),
			"message", providerErr.Error.Message,
		)
		return newError(
			providerCode(providerErr.Error.Message),
			fmt.Errorf("%s: status %d: %s", method, res.StatusCode(), providerErr.Error.Message),
		)
	}
	return nil
}

type refreshStatusError struct {
	statusCode int
	message    string
}

func (e *refreshStatusError) Error() string {
	return fmt.Sprintf("token refresh failed with status %d: %s", e.statusCode, e.message)
}

func isRetryableRefreshError(err error) bool {
	var statusErr *refreshStatusError
	if errors.As(err, &statusErr) {
		return statusErr.statusCode >= http.StatusInternalServerError ||
			statusErr.statusCode == http.StatusTooManyRequests
	}
	// Transport failures
	return true
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (refreshResponse, error) {
	var result refreshResponse
	err := retry.Do(
		func() error {
			response, err := c.refreshOnce(ctx, refreshToken)
			if err != nil {
				if !isRetryableRefreshError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = response
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.config.MaxRetryAttempts+1),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err == nil {
		return result, nil
	}

	var statusErr *refreshStatusError
	if errors.As(err, &statusErr) {
		if statusErr.statusCode == http.StatusTooManyRequests {
			return refreshResponse{}, newError(CodeTooManyRequests, err)
		}
		return refreshResponse{}, newError(providerCode(statusErr.message), err)
	}
	return refreshResponse{}, newError(CodeNetworkRequestFailed, err)
}

func (c *Client) refreshOnce(ctx context.Context, refreshToken string) (refreshResponse, error) {
	var result refreshResponse
	var providerErr identityError
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", c.config.APIKey).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		}).
		SetResult(&result).
		SetError(&providerErr).
		Post(c.config.TokenURL + "/token")
	if err != nil {
		return refreshResponse{}, fmt.Errorf("httpClient.Post(token) > %w", err)
	}
	if res.IsError() {
		return refreshResponse{}, &refreshStatusError{
			statusCode: res.StatusCode(),
			message:    providerErr.Error.Message,
		}
	}
	return result, nil
}

func (c *Client) notify(user *User) {
	c.mu.Lock()
	observers := make([]func(*User), 0, len(c.observers))
	for i := 0; i < c.nextID; i++ {
		if fn, ok := c.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range observers {
		if user == nil {
			fn(nil)
			continue
		}
		copied := *user
		fn(&copied)
	}
}
