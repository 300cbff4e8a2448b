package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateDeniesWithoutActor(t *testing.T) {
	eval := NewEvaluator(NewCatalog())
	for _, module := range []Module{ModuleDepartments, ModuleUsers, ModuleRoles} {
		for _, action := range []Action{ActionView, ActionCreate, ActionDelete} {
			assert.False(t, eval.Evaluate(nil, module, action), "%s:%s", module, action)
		}
	}
}

func TestEvaluateFullAccessOverride(t *testing.T) {
	eval := NewEvaluator(NewCatalog())
	actor := &Actor{ID: "u1", HasFullAccess: true, Grants: NewPermissionSet()}
	for _, p := range NewCatalog().Permissions() {
		assert.True(t, eval.Evaluate(actor, p.Module, p.Action), p.ID())
	}
}

func TestEvaluateSuperAdminOverride(t *testing.T) {
	eval := NewEvaluator(NewCatalog())
	actor := &Actor{
		ID:     "u1",
		Role:   &Role{ID: "r1", IsSuperAdmin: true, Permissions: NewPermissionSet()},
		Grants: NewPermissionSet(),
	}
	for _, p := range NewCatalog().Permissions() {
		assert.True(t, eval.Evaluate(actor, p.Module, p.Action), p.ID())
	}
}

func TestEvaluateFailsClosedOnUnknown(t *testing.T) {
	eval := NewEvaluator(NewCatalog())
	actor := &Actor{ID: "u1", Grants: NewPermissionSet("department-management:view")}
	assert.NotPanics(t, func() {
		assert.False(t, eval.Evaluate(actor, "nonexistent-module", ActionView))
		assert.False(t, eval.Evaluate(actor, ModuleDepartments, "nonexistent-action"))
	})
}

func TestEvaluateDirectGrantSufficiency(t *testing.T) {
	eval := NewEvaluator(NewCatalog())
	actor := &Actor{
		ID:     "u1",
		Role:   &Role{ID: "r1", Permissions: NewPermissionSet()},
		Grants: NewPermissionSet("department-management:create"),
	}
	assert.True(t, eval.CanCreate(actor, ModuleDepartments))
	assert.False(t, eval.CanDelete(actor, ModuleDepartments))
}

func TestEvaluateGroupedRoleGrant(t *testing.T) {
	eval := NewEvaluator(NewCatalog())
	role := &Role{ID: "r1", Permissions: NewPermissionSet()}
	role.Permissions.Grant(Permission{Module: ModuleRoles, Action: ActionDelete})
	actor := &Actor{ID: "u1", Role: role, Grants: NewPermissionSet()}

	assert.True(t, eval.Evaluate(actor, ModuleRoles, ActionDelete))
	assert.False(t, eval.Evaluate(actor, ModuleRoles, ActionCreate))
}

func TestEvaluateViewOnlyScenario(t *testing.T) {
	eval := NewEvaluator(NewCatalog())
	actor := &Actor{
		ID:     "u1",
		Role:   &Role{ID: "r1", Permissions: NewPermissionSet("department-management:view")},
		Grants: NewPermissionSet(),
	}
	assert.True(t, eval.CanAccess(actor, ModuleDepartments))
	assert.False(t, eval.CanCreate(actor, ModuleDepartments))
	assert.False(t, eval.CanUpdate(actor, ModuleDepartments))
	assert.False(t, eval.CanViewHistory(actor, ModuleDepartments))
}

func TestPermissionSetNormalization(t *testing.T) {
	set := NewPermissionSet(
		"user-management:view",
		"user-management:view",
		"malformed",
		":",
		"role-management:update",
	)
	require.True(t, set.Has(ModuleUsers, ActionView))
	require.True(t, set.Has(ModuleRoles, ActionUpdate))
	assert.Equal(t, []string{"role-management:update", "user-management:view"}, set.IDs())
}

func TestEffectivePermissionIDsUnion(t *testing.T) {
	actor := &Actor{
		ID:     "u1",
		Role:   &Role{ID: "r1", Permissions: NewPermissionSet("department-management:view", "department-management:update")},
		Grants: NewPermissionSet("department-management:view", "permit-management:create"),
	}
	assert.Equal(t, []string{
		"department-management:update",
		"department-management:view",
		"permit-management:create",
	}, actor.EffectivePermissionIDs())
}
