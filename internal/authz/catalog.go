package authz

import (
	"errors"
	"fmt"
)

// Module identifies a functional area subject to access control.
type Module string

// Catalog of modules. The set is closed; extending it means adding a
// constant here and a row to the legacy fallback table.
const (
	ModuleEmployees     Module = "employees"
	ModuleAttendance    Module = "attendance"
	ModuleLeave         Module = "leave"
	ModulePayroll       Module = "payroll"
	ModuleOnboarding    Module = "onboarding"
	ModuleAssets        Module = "assets"
	ModuleExit          Module = "exit"
	ModuleDocuments     Module = "documents"
	ModuleAnnouncements Module = "announcements"
	ModulePermissions   Module = "permissions"
	ModuleReports       Module = "reports"
	ModuleSettings      Module = "settings"
)

// Action identifies an operation performable within a module.
type Action string

// Catalog of actions. Closed set.
const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionExport  Action = "export"
	ActionImport  Action = "import"
)

// ErrInvalidCatalogValue indicates a module or action outside the catalog.
var ErrInvalidCatalogValue = errors.New("authz: value not in permission catalog")

var moduleOrder = []Module{
	ModuleEmployees,
	ModuleAttendance,
	ModuleLeave,
	ModulePayroll,
	ModuleOnboarding,
	ModuleAssets,
	ModuleExit,
	ModuleDocuments,
	ModuleAnnouncements,
	ModulePermissions,
	ModuleReports,
	ModuleSettings,
}

var actionOrder = []Action{
	ActionRead,
	ActionCreate,
	ActionUpdate,
	ActionDelete,
	ActionApprove,
	ActionExport,
	ActionImport,
}

var (
	moduleSet = buildIndex(moduleOrder)
	actionSet = buildIndex(actionOrder)
)

func buildIndex[T comparable](ordered []T) map[T]int {
	index := make(map[T]int, len(ordered))
	for i, v := range ordered {
		index[v] = i
	}
	return index
}

// IsValidModule reports whether m belongs to the catalog.
func IsValidModule(m Module) bool {
	_, ok := moduleSet[m]
	return ok
}

// IsValidAction reports whether a belongs to the catalog.
func IsValidAction(a Action) bool {
	_, ok := actionSet[a]
	return ok
}

// Modules returns every catalog module in stable declaration order.
func Modules() []Module {
	out := make([]Module, len(moduleOrder))
	copy(out, moduleOrder)
	return out
}

// Actions returns every catalog action in stable declaration order.
func Actions() []Action {
	out := make([]Action, len(actionOrder))
	copy(out, actionOrder)
	return out
}

// ValidatePair rejects module/action values outside the catalog.
func ValidatePair(m Module, a Action) error {
	if !IsValidModule(m) {
		return fmt.Errorf("%w: module %q", ErrInvalidCatalogValue, m)
	}
	if !IsValidAction(a) {
		return fmt.Errorf("%w: action %q", ErrInvalidCatalogValue, a)
	}
	return nil
}
