// Package auth verifies OIDC bearer tokens on incoming HTTP requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/emoclassify/pkg/handlers"
	"github.com/JaimeStill/emoclassify/pkg/middleware"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid bearer token")
	ErrNotConfigured = errors.New("auth not configured")
)

type subjectKey struct{}

// NewVerifier builds a token verifier for cfg. When JWKSURL is set the keys
// are fetched lazily from it; otherwise the issuer's discovery document is
// read immediately.
func NewVerifier(ctx context.Context, cfg *Config) (*oidc.IDTokenVerifier, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	oc := &oidc.Config{ClientID: cfg.Audience}

	if cfg.JWKSURL != "" {
		keys := oidc.NewRemoteKeySet(context.WithoutCancel(ctx), cfg.JWKSURL)
		return oidc.NewVerifier(cfg.Issuer, keys, oc), nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover issuer %s: %w", cfg.Issuer, err)
	}
	return provider.Verifier(oc), nil
}

// Middleware rejects requests without a bearer token that v accepts. The
// token subject is available to downstream handlers through Subject.
func Middleware(v *oidc.IDTokenVerifier, logger *slog.Logger) middleware.Middleware {
	logger = logger.With("system", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrMissingToken)
				return
			}

			token, err := v.Verify(r.Context(), raw)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "error", err)
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, token.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Subject returns the verified token subject, or "" for unauthenticated
// requests.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
