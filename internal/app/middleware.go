package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/meridian-hr/meridian-hr/internal/authz"
	"github.com/meridian-hr/meridian-hr/internal/observability"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

// ActorDirectory resolves session actor ids to actors.
type ActorDirectory interface {
	GetActor(ctx context.Context, id string) (authz.Actor, error)
}

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Actors         ActorDirectory
	Resolver       *authz.EffectiveRoleResolver
	Metrics        *observability.Metrics
}

type responseWriterWithCommit struct {
	http.ResponseWriter
	sess          *shared.Session
	manager       *shared.SessionManager
	ctx           context.Context
	headerWritten bool
}

func (w *responseWriterWithCommit) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		_ = w.manager.Commit(w.ctx, w.ResponseWriter, w.sess)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWithCommit) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

// MiddlewareStack installs the Meridian middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	sessionMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, err := cfg.SessionManager.Load(ctx, r)
			if err != nil {
				cfg.Logger.Error("failed to load session", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			ctx = shared.ContextWithSession(ctx, sess)

			wrapped := &responseWriterWithCommit{
				ResponseWriter: w,
				sess:           sess,
				manager:        cfg.SessionManager,
				ctx:            ctx,
			}
			next.ServeHTTP(wrapped, r.WithContext(ctx))
		})
	}

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	rateLimit := 300
	if cfg.Config != nil && cfg.Config.RateLimitPerMinute > 0 {
		rateLimit = cfg.Config.RateLimitPerMinute
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		httprate.LimitByIP(rateLimit, time.Minute),
		secureMiddleware.Handler,
		sessionMiddleware,
		AuthContextMiddleware(cfg),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}

// AuthContextMiddleware resolves the session's actor id against the directory
// and attaches an immutable authz.AuthContext to the request, including the
// coarse effective role. Anonymous requests pass through without one; the
// authorization middleware rejects those on protected routes. A directory
// failure answers 503 rather than letting the request continue unchecked.
func AuthContextMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.Actor() == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := cfg.Actors.GetActor(r.Context(), sess.Actor())
			if err != nil {
				if errors.Is(err, authz.ErrNotFound) {
					next.ServeHTTP(w, r)
					return
				}
				cfg.Logger.Error("resolve session actor", slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Access Check Unavailable", "actor could not be resolved")
				return
			}
			if !actor.IsActive {
				next.ServeHTTP(w, r)
				return
			}

			resolution := cfg.Resolver.Resolve(r.Context(), actor)
			if resolution.Degraded && cfg.Logger != nil {
				cfg.Logger.Warn("effective role degraded",
					slog.String("actor_id", actor.ID),
					slog.Any("cause", resolution.Cause))
			}

			ctx := authz.ContextWithAuth(r.Context(), authz.AuthContext{
				Actor:         actor,
				EffectiveRole: resolution,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
