package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	cookieSessionID = "storefront_session"
	cookieMaxAge    = 60 * 60 * 48

	headerUserID    = "X-User-ID"
	headerUserEmail = "X-User-Email"
	headerUserName  = "X-User-Name"
)

type (
	ctxKeySessionID struct{}
	ctxKeyAccount   struct{}
)

// ensureSessionID gives every visitor a session cookie; the cart is keyed by it.
func ensureSessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		c, err := r.Cookie(cookieSessionID)
		if err != nil || c.Value == "" {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     cookieSessionID,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   cookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		} else {
			sessionID = c.Value
		}

		ctx := context.WithValue(r.Context(), ctxKeySessionID{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	if v, ok := r.Context().Value(ctxKeySessionID{}).(string); ok {
		return v
	}
	return ""
}

// MockAuthMiddleware trusts identity headers set by an authenticating proxy in front of the service.
func MockAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get(headerUserID)
		if uid == "" {
			next.ServeHTTP(w, r)
			return
		}
		acc := domain.Account{UID: uid, Email: r.Header.Get(headerUserEmail), Name: r.Header.Get(headerUserName)}
		ctx := context.WithValue(r.Context(), ctxKeyAccount{}, acc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFromContext(ctx context.Context) (domain.Account, bool) {
	acc, ok := ctx.Value(ctxKeyAccount{}).(domain.Account)
	return acc, ok
}

// requestLogger stores a request-scoped logger in the context and logs each completed request.
func requestLogger(base logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := logger.WithTrace(r.Context(), base).WithFields(logrus.Fields{
				"http.req.path":   r.URL.Path,
				"http.req.method": r.Method,
				"http.req.id":     middleware.GetReqID(r.Context()),
			})
			if id := sessionID(r); id != "" {
				log = log.WithField("session", id)
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				log.WithFields(logrus.Fields{
					"http.resp.took_ms": time.Since(start).Milliseconds(),
					"http.resp.status":  ww.Status(),
					"http.resp.bytes":   ww.BytesWritten(),
				}).Debug("request complete")
			}()

			next.ServeHTTP(ww, r.WithContext(logger.NewContext(r.Context(), log)))
		})
	}
}
