package identity

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/saasbilling/pkg/logger"
)

// Caller is the authenticated principal of a request.
type Caller struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
}

// Authenticated reports whether the caller carries a user id.
func (c Caller) Authenticated() bool { return c.UID != "" }

// VerifiedEmail returns the normalized email when it has been verified by the
// identity provider, or "" otherwise.
func (c Caller) VerifiedEmail() string {
	if !c.EmailVerified {
		return ""
	}
	return NormalizeEmail(c.Email)
}

// Require returns ErrUnauthenticated for an anonymous caller.
func (c Caller) Require() error {
	if !c.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

type contextKey struct{}

// WithCaller stores the caller in ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the caller stored in ctx. The zero Caller is returned
// for unauthenticated requests.
func FromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(contextKey{}).(Caller)
	return c
}

var lower = cases.Lower(language.Und)

// NormalizeEmail trims and case-folds an email address. Every stored and
// compared email goes through it.
func NormalizeEmail(email string) string {
	return lower.String(strings.TrimSpace(email))
}

// LoggerExtractor adds the caller uid to log records written with a request
// context.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if c := FromContext(ctx); c.Authenticated() {
			return logger.UserID(c.UID), true
		}
		return slog.Attr{}, false
	}
}
