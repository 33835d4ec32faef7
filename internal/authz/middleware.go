package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/meridian-hr/meridian-hr/internal/observability"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// Middleware wires the decision engine into HTTP routing. Every protected
// route declares its (module, action) pair at registration time.
type Middleware struct {
	Engine  *Engine
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Require gates the wrapped handler on a Decide call for the fixed pair.
// A deny answers 403 with the diagnostic triple; an engine failure answers
// 503 and is never downgraded to a pass-through.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := AuthFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no authenticated actor")
				return
			}

			decision, err := m.Engine.Decide(r.Context(), ac.Actor, module, action)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("access decision failed",
						slog.String("module", string(module)),
						slog.String("action", string(action)),
						slog.Any("error", err))
				}
				outcome := "unavailable"
				if errors.Is(err, ErrInvalidCatalogValue) {
					outcome = "invalid"
				}
				m.Metrics.ObserveDecision(string(module), outcome)
				RespondError(w, err)
				return
			}
			if !decision.Granted {
				m.Metrics.ObserveDecision(string(module), "denied")
				httpx.ProblemWithFields(w, http.StatusForbidden, "Forbidden", "access denied", map[string]any{
					"required_module": decision.Module,
					"required_action": decision.Action,
					"actor_base_role": decision.ActorBaseRole,
				})
				return
			}

			m.Metrics.ObserveDecision(string(module), "granted")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates the wrapped handler on the coarse effective role computed
// at authentication time. Used by call sites that only need a tier check.
func (m Middleware) RequireRole(roles ...BaseRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := AuthFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no authenticated actor")
				return
			}
			for _, role := range roles {
				if ac.EffectiveRole.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
		})
	}
}
