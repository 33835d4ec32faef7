package roles

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-hr/meridian-hr/internal/authz"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

// Handler manages the role CRUD surface.
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

// MountRoutes registers role routes. Every route declares its module/action
// pair here, at registration time.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ModulePermissions, authz.ActionRead))
		r.Get("/", h.listRoles)
		r.Get("/{roleID}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ModulePermissions, authz.ActionCreate))
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ModulePermissions, authz.ActionUpdate))
		r.Put("/{roleID}", h.updateRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ModulePermissions, authz.ActionDelete))
		r.Delete("/{roleID}", h.deactivateRole)
	})
}

type roleResponse struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	DisplayName  string                  `json:"display_name"`
	Description  string                  `json:"description,omitempty"`
	Permissions  []authz.PermissionGrant `json:"permissions"`
	IsSystemRole bool                    `json:"is_system_role"`
	IsActive     bool                    `json:"is_active"`
}

func toResponse(role authz.Role) roleResponse {
	return roleResponse{
		ID:           role.ID,
		Name:         role.Name,
		DisplayName:  role.DisplayName,
		Description:  role.Description,
		Permissions:  role.Permissions,
		IsSystemRole: role.IsSystemRole,
		IsActive:     role.IsActive,
	}
}

type createRoleRequest struct {
	Name        string       `json:"name" validate:"required,min=2,max=64"`
	DisplayName string       `json:"display_name" validate:"required,max=128"`
	Description string       `json:"description" validate:"max=512"`
	Permissions []GrantInput `json:"permissions" validate:"required,min=1,dive"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ac, _ := authz.AuthFromContext(r.Context())
	role, err := h.service.Create(r.Context(), ac.Actor.ID, CreateRoleInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		authz.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(role))
}

type updateRoleRequest struct {
	DisplayName *string      `json:"display_name" validate:"omitempty,max=128"`
	Description *string      `json:"description" validate:"omitempty,max=512"`
	Permissions []GrantInput `json:"permissions" validate:"omitempty,min=1,dive"`
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ac, _ := authz.AuthFromContext(r.Context())
	role, err := h.service.Update(r.Context(), ac.Actor.ID, chi.URLParam(r, "roleID"), UpdateRolePatch{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		authz.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(role))
}

func (h *Handler) deactivateRole(w http.ResponseWriter, r *http.Request) {
	ac, _ := authz.AuthFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), ac.Actor.ID, chi.URLParam(r, "roleID")); err != nil {
		authz.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.Get(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		authz.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(role))
}

type listRolesResponse struct {
	Roles      []roleResponse `json:"roles"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Query:   r.URL.Query().Get("q"),
		Page:    queryInt(r, "page"),
		PerPage: queryInt(r, "per_page"),
	}
	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		authz.RespondError(w, err)
		return
	}

	out := make([]roleResponse, 0, len(result.Roles))
	for _, role := range result.Roles {
		out = append(out, toResponse(role))
	}
	httpx.JSON(w, http.StatusOK, listRolesResponse{
		Roles:      out,
		Page:       result.Pagination.Page,
		PerPage:    result.Pagination.PerPage,
		Total:      result.Pagination.Total,
		TotalPages: result.Pagination.TotalPages,
	})
}

func queryInt(r *http.Request, key string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(key))
	return v
}
