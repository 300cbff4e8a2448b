// Package authz implements the permission model and evaluation rules that gate
// every screen and mutation in the console.
package authz

import (
	"sort"
	"strings"
)

// Module is a named functional area subject to access control.
type Module string

// Action is an operation kind within a module.
type Action string

// Known modules.
const (
	ModuleDepartments Module = "department-management"
	ModulePermits     Module = "permit-management"
	ModuleJobTitles   Module = "job-title-management"
	ModuleUsers       Module = "user-management"
	ModuleRoles       Module = "role-management"
)

// Known actions.
const (
	ActionView           Action = "view"
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionToggleActivity Action = "toggle-activity"
	ActionViewHistory    Action = "view-history"
)

// Permission is a typed (module, action) pair. The "module:action" string form
// is only a serialization format at storage and network boundaries.
type Permission struct {
	Module Module
	Action Action
}

// ID returns the stable string identifier of the permission.
func (p Permission) ID() string {
	return string(p.Module) + ":" + string(p.Action)
}

// ParsePermission parses a "module:action" identifier. The boolean is false
// for malformed input; callers treat that as an unknown (denied) permission.
func ParsePermission(id string) (Permission, bool) {
	module, action, ok := strings.Cut(id, ":")
	if !ok || module == "" || action == "" {
		return Permission{}, false
	}
	return Permission{Module: Module(module), Action: Action(action)}, true
}

// Label carries the bilingual display names of a permission.
type Label struct {
	NameEn string
	NameAr string
}

// Catalog is the source of truth for which permissions exist. Lookups against
// it fail closed: a permission that was never registered is denied.
type Catalog struct {
	labels map[Permission]Label
}

// NewCatalog returns a catalog pre-registered with the console's modules.
func NewCatalog() *Catalog {
	c := &Catalog{labels: make(map[Permission]Label)}
	all := []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionToggleActivity, ActionViewHistory}
	c.Register(ModuleDepartments, "Departments", "الأقسام", all...)
	c.Register(ModulePermits, "Permits", "التصاريح", all...)
	c.Register(ModuleJobTitles, "Job Titles", "المسميات الوظيفية", all...)
	c.Register(ModuleUsers, "Users", "المستخدمون", all...)
	c.Register(ModuleRoles, "Roles", "الأدوار", all...)
	return c
}

// Register adds the given actions for a module to the catalog.
func (c *Catalog) Register(module Module, nameEn, nameAr string, actions ...Action) {
	for _, action := range actions {
		c.labels[Permission{Module: module, Action: action}] = Label{
			NameEn: nameEn + " - " + string(action),
			NameAr: nameAr + " - " + string(action),
		}
	}
}

// Contains reports whether the permission is registered.
func (c *Catalog) Contains(p Permission) bool {
	_, ok := c.labels[p]
	return ok
}

// Label returns the display label for a registered permission.
func (c *Catalog) Label(p Permission) (Label, bool) {
	label, ok := c.labels[p]
	return label, ok
}

// Permissions returns every registered permission ordered by identifier.
func (c *Catalog) Permissions() []Permission {
	perms := make([]Permission, 0, len(c.labels))
	for p := range c.labels {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].ID() < perms[j].ID() })
	return perms
}

// ModuleActions returns the registered actions for one module, sorted.
func (c *Catalog) ModuleActions(module Module) []Action {
	var actions []Action
	for p := range c.labels {
		if p.Module == module {
			actions = append(actions, p.Action)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}
