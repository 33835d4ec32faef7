package authz

// LegacyFallback is the hard-coded (module, action) to base-role matrix
// consulted only after explicit role assignments found no grant. It exists for
// backward compatibility with the single-base-role actor model and is built
// once at process start, never per request.
//
// The matrix always evaluates the actor's raw base role, not the escalated
// effective role computed by EffectiveRoleResolver. The two notions diverge
// on purpose: call sites that gate on the coarse tier use the resolver, the
// fallback keeps the historical single-role behavior pending product
// clarification.
type LegacyFallback struct {
	table map[Module]map[Action][]BaseRole
}

// NewLegacyFallback constructs the immutable fallback matrix.
func NewLegacyFallback() *LegacyFallback {
	all := []BaseRole{BaseRoleAdmin, BaseRoleHR, BaseRoleManager, BaseRoleEmployee}
	adminOnly := []BaseRole{BaseRoleAdmin}
	adminHR := []BaseRole{BaseRoleAdmin, BaseRoleHR}
	adminHRManager := []BaseRole{BaseRoleAdmin, BaseRoleHR, BaseRoleManager}

	return &LegacyFallback{table: map[Module]map[Action][]BaseRole{
		ModuleEmployees: {
			ActionRead:   adminHRManager,
			ActionCreate: adminHR,
			ActionUpdate: adminHR,
			ActionDelete: adminOnly,
			ActionExport: adminHR,
			ActionImport: adminHR,
		},
		ModuleAttendance: {
			ActionRead:    all,
			ActionCreate:  []BaseRole{BaseRoleAdmin, BaseRoleHR, BaseRoleEmployee},
			ActionUpdate:  adminHR,
			ActionDelete:  adminOnly,
			ActionApprove: adminHRManager,
			ActionExport:  adminHRManager,
		},
		ModuleLeave: {
			ActionRead:    all,
			ActionCreate:  all,
			ActionUpdate:  adminHR,
			ActionDelete:  adminOnly,
			ActionApprove: adminHRManager,
			ActionExport:  adminHR,
		},
		ModulePayroll: {
			ActionRead:    adminHR,
			ActionCreate:  adminHR,
			ActionUpdate:  adminHR,
			ActionDelete:  adminOnly,
			ActionApprove: adminOnly,
			ActionExport:  adminHR,
		},
		ModuleOnboarding: {
			ActionRead:   adminHR,
			ActionCreate: adminHR,
			ActionUpdate: adminHR,
			ActionDelete: adminOnly,
		},
		ModuleAssets: {
			ActionRead:   adminHRManager,
			ActionCreate: adminHR,
			ActionUpdate: adminHR,
			ActionDelete: adminOnly,
			ActionExport: adminHRManager,
		},
		ModuleExit: {
			ActionRead:    adminHRManager,
			ActionCreate:  adminHR,
			ActionUpdate:  adminHR,
			ActionDelete:  adminOnly,
			ActionApprove: adminHR,
		},
		ModuleDocuments: {
			ActionRead:   all,
			ActionCreate: adminHR,
			ActionUpdate: adminHR,
			ActionDelete: adminOnly,
			ActionExport: adminHR,
		},
		ModuleAnnouncements: {
			ActionRead:   all,
			ActionCreate: adminHR,
			ActionUpdate: adminHR,
			ActionDelete: adminOnly,
		},
		ModulePermissions: {
			ActionRead:   adminHR,
			ActionCreate: adminOnly,
			ActionUpdate: adminOnly,
			ActionDelete: adminOnly,
		},
		ModuleReports: {
			ActionRead:   adminHRManager,
			ActionExport: adminHR,
		},
		ModuleSettings: {
			ActionRead:   adminOnly,
			ActionUpdate: adminOnly,
		},
	}}
}

// Allows reports whether the base role is listed for the pair. A pair absent
// from the matrix denies: the table never fails open.
func (f *LegacyFallback) Allows(m Module, a Action, role BaseRole) bool {
	actions, ok := f.table[m]
	if !ok {
		return false
	}
	for _, r := range actions[a] {
		if r == role {
			return true
		}
	}
	return false
}

// Roles returns the base roles listed for the pair, nil when absent.
func (f *LegacyFallback) Roles(m Module, a Action) []BaseRole {
	actions, ok := f.table[m]
	if !ok {
		return nil
	}
	roles := actions[a]
	if len(roles) == 0 {
		return nil
	}
	out := make([]BaseRole, len(roles))
	copy(out, roles)
	return out
}
