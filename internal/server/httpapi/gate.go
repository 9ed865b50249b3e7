package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/garagebook/internal/common"
	"github.com/dmitrijs2005/garagebook/internal/logging"
	"github.com/dmitrijs2005/garagebook/internal/server/auth"
)

const claimKey ctxKey = "garagebook.claim"

// TokenVerifier is satisfied by *auth.TokenCodec.
type TokenVerifier interface {
	Verify(token string) (auth.Claim, error)
}

// ClaimFromContext returns the session claim attached by Gate.
func ClaimFromContext(ctx context.Context) (auth.Claim, bool) {
	c, ok := ctx.Value(claimKey).(auth.Claim)
	return c, ok
}

func withClaim(ctx context.Context, c auth.Claim) context.Context {
	return context.WithValue(ctx, claimKey, c)
}

// Gate admits only requests bearing a valid session token. Rejected requests
// never reach next.
func Gate(verifier TokenVerifier, logger logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeErr(w, http.StatusUnauthorized, common.ErrUnauthenticated.Error())
				return
			}

			claim, err := verifier.Verify(token)
			if err != nil {
				logger.Debug(r.Context(), "token rejected", "reason", err)
				writeErr(w, http.StatusUnauthorized, common.ErrUnauthenticated.Error())
				return
			}

			ctx := logging.ContextWithAttrs(withClaim(r.Context(), claim), "account_id", claim.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get(common.AuthorizationHeaderName))
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
