package assignments

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-hr/meridian-hr/internal/authz"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// Handler manages the assignment surface.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	mw        authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		mw:        mw,
	}
}

// MountRoutes registers assignment routes with their fixed module/action pairs.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ModulePermissions, authz.ActionRead))
		r.Get("/actor/{actorID}", h.listAssignments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ModulePermissions, authz.ActionCreate))
		r.Post("/", h.assignRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ModulePermissions, authz.ActionDelete))
		r.Delete("/actor/{actorID}/role/{roleID}", h.revokeRole)
	})
}

type assignRequest struct {
	ActorID   string     `json:"actor_id" validate:"required"`
	RoleID    string     `json:"role_id" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type assignmentResponse struct {
	ID         string     `json:"id"`
	ActorID    string     `json:"actor_id"`
	RoleID     string     `json:"role_id"`
	AssignedBy string     `json:"assigned_by"`
	AssignedAt time.Time  `json:"assigned_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	IsActive   bool       `json:"is_active"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	RevokedBy  string     `json:"revoked_by,omitempty"`
}

func toResponse(a authz.RoleAssignment) assignmentResponse {
	return assignmentResponse{
		ID:         a.ID,
		ActorID:    a.ActorID,
		RoleID:     a.RoleID,
		AssignedBy: a.AssignedBy,
		AssignedAt: a.AssignedAt,
		ExpiresAt:  a.ExpiresAt,
		IsActive:   a.IsActive,
		RevokedAt:  a.RevokedAt,
		RevokedBy:  a.RevokedBy,
	}
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ac, _ := authz.AuthFromContext(r.Context())
	assignment, err := h.service.Assign(r.Context(), AssignInput{
		ActorID:    req.ActorID,
		RoleID:     req.RoleID,
		AssignedBy: ac.Actor.ID,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		authz.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(assignment))
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	ac, _ := authz.AuthFromContext(r.Context())
	err := h.service.Revoke(r.Context(), chi.URLParam(r, "actorID"), chi.URLParam(r, "roleID"), ac.Actor.ID)
	if err != nil {
		authz.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")
	history, err := h.service.ListHistory(r.Context(), actorID)
	if err != nil {
		h.logger.Error("list assignments", slog.String("actor_id", actorID), slog.Any("error", err))
		authz.RespondError(w, err)
		return
	}
	out := make([]assignmentResponse, 0, len(history))
	for _, a := range history {
		out = append(out, toResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": out})
}
