package authclient

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Navigator performs navigation side effects on behalf of the lifecycle.
// In a browser host this maps to a location change; in tests it records.
type Navigator interface {
	Push(path string)
}

// NavigatorFunc adapts a function into a Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Push(path string) {
	if f != nil {
		f(path)
	}
}

type noopNavigator struct{}

func (noopNavigator) Push(string) {}

// API is the backend collaborator contract consumed by the Manager. The
// backend owns session issuance and validation; this package only reconciles
// its responses into local state.
type API interface {
	LoginURL(ctx context.Context, redirectTo string) (string, error)
	Session(ctx context.Context, accessToken string) (*SessionResponse, error)
	Me(ctx context.Context, accessToken string) (*MeResponse, error)
	SignOut(ctx context.Context, accessToken string) error
	ExchangeCode(ctx context.Context, code string) (*LoginResponse, error)
	PasswordLogin(ctx context.Context, email, password string) (*LoginResponse, error)
}

// Config holds lifecycle options
type Config interface {
	GetBaseURL() string
	GetOrigin() string
	GetStorageKey() string
	GetHydrationTimeout() int
	GetRequestTimeout() int
	GetCallbackPath() string
	GetLandingPath() string
	GetRootPath() string
}

// DefaultLogger returns the stdout logger used when none is provided.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHC "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHC "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHC "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHC "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
