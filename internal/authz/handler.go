package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// Handler serves the static permission catalog and the per-actor permission
// union used by the UI to render a permissions summary.
type Handler struct {
	logger *slog.Logger
	union  *UnionQuery
	mw     Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, union *UnionQuery, mw Middleware) *Handler {
	return &Handler{logger: logger, union: union, mw: mw}
}

// MountRoutes registers the permission query routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(ModulePermissions, ActionRead))
		r.Get("/catalog", h.catalog)
		r.Get("/effective/{actorID}", h.effectivePermissions)
	})
}

type catalogResponse struct {
	Modules []Module `json:"modules"`
	Actions []Action `json:"actions"`
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, catalogResponse{
		Modules: Modules(),
		Actions: Actions(),
	})
}

type effectivePermissionsResponse struct {
	ActorID     string              `json:"actor_id"`
	Permissions map[Module][]Action `json:"permissions"`
	Roles       []string            `json:"roles"`
}

// effectivePermissions is informational only. Gating always goes through
// Decide; this union ignores bypass rules and the legacy table on purpose.
func (h *Handler) effectivePermissions(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")
	permissions, roles, err := h.union.EffectivePermissions(r.Context(), actorID)
	if err != nil {
		h.logger.Error("effective permissions", slog.String("actor_id", actorID), slog.Any("error", err))
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, effectivePermissionsResponse{
		ActorID:     actorID,
		Permissions: permissions,
		Roles:       roles,
	})
}
