package authz

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-hr/meridian-hr/internal/observability"
)

func performRequest(t *testing.T, mw Middleware, module Module, action Action, ac *AuthContext) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	handler := mw.Require(module, action)(next)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if ac != nil {
		req = req.WithContext(ContextWithAuth(req.Context(), *ac))
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestRequireWithoutActorIsUnauthorized(t *testing.T) {
	engine := newTestEngine(
		&memoryRoleSource{roles: map[string]Role{}},
		&memoryAssignmentSource{byActor: map[string][]RoleAssignment{}},
		time.Now(),
	)
	mw := Middleware{Engine: engine, Metrics: observability.NewMetrics()}

	res := performRequest(t, mw, ModuleLeave, ActionRead, nil)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequireDenyAnswers403WithTriple(t *testing.T) {
	engine := newTestEngine(
		&memoryRoleSource{roles: map[string]Role{}},
		&memoryAssignmentSource{byActor: map[string][]RoleAssignment{}},
		time.Now(),
	)
	mw := Middleware{Engine: engine, Metrics: observability.NewMetrics()}
	ac := AuthContext{Actor: Actor{ID: "m1", BaseRole: BaseRoleManager, IsActive: true}}

	res := performRequest(t, mw, ModuleEmployees, ActionDelete, &ac)
	require.Equal(t, http.StatusForbidden, res.Code)

	var problem struct {
		Fields map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &problem))
	require.Equal(t, "employees", problem.Fields["required_module"])
	require.Equal(t, "delete", problem.Fields["required_action"])
	require.Equal(t, "manager", problem.Fields["actor_base_role"])
}

func TestRequireGrantPassesThrough(t *testing.T) {
	engine := newTestEngine(
		&memoryRoleSource{roles: map[string]Role{}},
		&memoryAssignmentSource{byActor: map[string][]RoleAssignment{}},
		time.Now(),
	)
	mw := Middleware{Engine: engine, Metrics: observability.NewMetrics()}
	ac := AuthContext{Actor: Actor{ID: "a1", BaseRole: BaseRoleAdmin, IsActive: true}}

	res := performRequest(t, mw, ModulePayroll, ActionApprove, &ac)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "ok", res.Body.String())
}

func TestRequireSeparatesInvalidPairFromUnavailable(t *testing.T) {
	engine := newTestEngine(
		&memoryRoleSource{roles: map[string]Role{}},
		&memoryAssignmentSource{byActor: map[string][]RoleAssignment{}},
		time.Now(),
	)
	metrics := observability.NewMetrics()
	mw := Middleware{Engine: engine, Metrics: metrics}
	ac := AuthContext{Actor: Actor{ID: "e1", BaseRole: BaseRoleEmployee, IsActive: true}}

	res := performRequest(t, mw, Module("timesheets"), ActionRead, &ac)
	require.Equal(t, http.StatusBadRequest, res.Code)

	// A bad registration-time pair counts as invalid, never as unavailable.
	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, scrape.Body.String(), `meridian_access_decisions_total{module="timesheets",outcome="invalid"} 1`)
	require.NotContains(t, scrape.Body.String(), `outcome="unavailable"`)
}

func TestRequireEngineFailureAnswers503(t *testing.T) {
	engine := newTestEngine(
		&memoryRoleSource{roles: map[string]Role{}},
		&memoryAssignmentSource{err: errors.New("timeout")},
		time.Now(),
	)
	mw := Middleware{Engine: engine, Metrics: observability.NewMetrics()}
	ac := AuthContext{Actor: Actor{ID: "e1", BaseRole: BaseRoleEmployee, IsActive: true}}

	res := performRequest(t, mw, ModuleLeave, ActionRead, &ac)
	require.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestRequireRoleChecksEffectiveTier(t *testing.T) {
	mw := Middleware{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.RequireRole(BaseRoleAdmin, BaseRoleHR)(next)

	// Base role employee escalated to hr by an active tier assignment.
	req := httptest.NewRequest(http.MethodGet, "/coarse", nil)
	req = req.WithContext(ContextWithAuth(req.Context(), AuthContext{
		Actor:         Actor{ID: "e1", BaseRole: BaseRoleEmployee, IsActive: true},
		EffectiveRole: Resolution{Role: BaseRoleHR},
	}))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/coarse", nil)
	req = req.WithContext(ContextWithAuth(req.Context(), AuthContext{
		Actor:         Actor{ID: "e2", BaseRole: BaseRoleEmployee, IsActive: true},
		EffectiveRole: Resolution{Role: BaseRoleEmployee},
	}))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusForbidden, res.Code)
}
