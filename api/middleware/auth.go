package middleware

import (
	"net/http"
	"strings"

	"github.com/farmyapp/farmyapp-backend/api/responses"
	pkgAuth "github.com/farmyapp/farmyapp-backend/pkg/auth"
	"github.com/farmyapp/farmyapp-backend/pkg/config"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if !claims.PartyType.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid party type"))
				return
			}

			ctx := WithParty(r.Context(), claims.PartyID.String(), string(claims.PartyType), claims.Roles)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"party_id":   claims.PartyID.String(),
					"party_type": string(claims.PartyType),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
