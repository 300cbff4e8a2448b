// Package gate enforces the permission rules at the network boundary,
// independent of whether the UI correctly hid a disabled control.
package gate

import (
	"net/http"
	"strings"

	"github.com/keystone-admin/keystone/internal/authz"
)

// Rule maps an HTTP method and resource path prefix to a permission.
type Rule struct {
	Method     string
	Prefix     string
	Permission authz.Permission
}

// Table is the fixed mapping from (method, path) to the permission guarding it.
// It must be kept in sync whenever a new mutating endpoint is added; the gate
// denies mutating requests that have no mapping so a forgotten entry fails
// closed instead of shipping an unguarded endpoint.
type Table struct {
	rules []Rule
}

// NewTable builds a table from the given rules.
func NewTable(rules ...Rule) *Table {
	return &Table{rules: rules}
}

// DefaultTable returns the mapping for the console's managed resources.
func DefaultTable() *Table {
	var rules []Rule
	resources := []struct {
		path   string
		module authz.Module
	}{
		{"/departments", authz.ModuleDepartments},
		{"/job-titles", authz.ModuleJobTitles},
		{"/permits", authz.ModulePermits},
		{"/users", authz.ModuleUsers},
		{"/roles", authz.ModuleRoles},
	}
	for _, res := range resources {
		rules = append(rules,
			Rule{http.MethodGet, res.path, authz.Permission{Module: res.module, Action: authz.ActionView}},
			Rule{http.MethodGet, res.path + "/history", authz.Permission{Module: res.module, Action: authz.ActionViewHistory}},
			Rule{http.MethodPost, res.path, authz.Permission{Module: res.module, Action: authz.ActionCreate}},
			Rule{http.MethodPut, res.path, authz.Permission{Module: res.module, Action: authz.ActionUpdate}},
			Rule{http.MethodPatch, res.path, authz.Permission{Module: res.module, Action: authz.ActionUpdate}},
			Rule{http.MethodPatch, res.path + "/toggle", authz.Permission{Module: res.module, Action: authz.ActionToggleActivity}},
			Rule{http.MethodDelete, res.path, authz.Permission{Module: res.module, Action: authz.ActionDelete}},
			Rule{http.MethodPost, res.path + "/bulk-delete", authz.Permission{Module: res.module, Action: authz.ActionDelete}},
			Rule{http.MethodPost, res.path + "/bulk-toggle", authz.Permission{Module: res.module, Action: authz.ActionToggleActivity}},
		)
	}
	rules = append(rules,
		Rule{http.MethodPost, "/users/reset-password", authz.Permission{Module: authz.ModuleUsers, Action: authz.ActionUpdate}},
	)
	return NewTable(rules...)
}

// Resolve returns the permission guarding the request. The longest matching
// prefix for the method wins, so "/departments/history" takes precedence over
// "/departments". Toggle rules match with the entity id between the resource
// prefix and the trailing segment.
func (t *Table) Resolve(method, path string) (authz.Permission, bool) {
	path = normalizePath(path)
	var (
		best    authz.Permission
		bestLen = -1
	)
	for _, rule := range t.rules {
		if rule.Method != method {
			continue
		}
		if !matchesPrefix(path, rule.Prefix) {
			continue
		}
		if len(rule.Prefix) > bestLen {
			best = rule.Permission
			bestLen = len(rule.Prefix)
		}
	}
	return best, bestLen >= 0
}

func normalizePath(path string) string {
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// matchesPrefix matches rule prefixes segment-wise, allowing a single entity
// id between the first segment and the remainder of the prefix, so that
// PATCH /departments/42/toggle matches the "/departments/toggle" rule.
func matchesPrefix(path, prefix string) bool {
	if path == prefix || strings.HasPrefix(path, prefix+"/") {
		return true
	}
	pathSegs := splitSegments(path)
	prefixSegs := splitSegments(prefix)
	if len(prefixSegs) < 2 || len(pathSegs) != len(prefixSegs)+1 {
		return false
	}
	if pathSegs[0] != prefixSegs[0] {
		return false
	}
	for i := 1; i < len(prefixSegs); i++ {
		if pathSegs[i+1] != prefixSegs[i] {
			return false
		}
	}
	return true
}

func splitSegments(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}
