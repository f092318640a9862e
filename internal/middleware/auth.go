package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Alturino/cart/internal"
	inErrors "github.com/Alturino/cart/internal/errors"
	inHttp "github.com/Alturino/cart/internal/http"
	"github.com/Alturino/cart/internal/log"
)

// OptionalAuth attaches the verified JWT to the request context when an
// Authorization header is present and rejects the request when the header is
// present but invalid. Requests without the header pass through as anonymous;
// handlers that need an authenticated identity enforce it themselves.
func OptionalAuth(secretKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context()).
				With().
				Str(log.KEY_TAG, "middleware OptionalAuth").
				Logger()
			c := logger.WithContext(r.Context())

			authorization := r.Header.Get("Authorization")
			if authorization == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(authorization, "Bearer ")
			token = strings.TrimPrefix(token, "bearer ")
			verified, err := internal.VerifyToken(c, token, secretKey)
			if err != nil {
				logger.Error().Err(err).Msg(inErrors.ErrTokenInvalid.Error())
				inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
					"status":     "failed",
					"statusCode": http.StatusUnauthorized,
					"message":    inErrors.ErrTokenInvalid.Error(),
				})
				return
			}

			c = internal.AttachJwtToken(c, verified)
			next.ServeHTTP(w, r.WithContext(c))
		})
	}
}
