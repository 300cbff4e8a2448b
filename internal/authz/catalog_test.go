package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionIDRoundTrip(t *testing.T) {
	p := Permission{Module: ModulePermits, Action: ActionToggleActivity}
	require.Equal(t, "permit-management:toggle-activity", p.ID())

	parsed, ok := ParsePermission(p.ID())
	require.True(t, ok)
	assert.Equal(t, p, parsed)
}

func TestParsePermissionRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "view", ":view", "users:", ":"} {
		_, ok := ParsePermission(id)
		assert.False(t, ok, "id %q", id)
	}
}

func TestCatalogFailsClosed(t *testing.T) {
	c := NewCatalog()
	assert.True(t, c.Contains(Permission{Module: ModuleUsers, Action: ActionDelete}))
	assert.False(t, c.Contains(Permission{Module: "billing-management", Action: ActionView}))
	assert.False(t, c.Contains(Permission{Module: ModuleUsers, Action: "approve"}))
}

func TestCatalogModuleActions(t *testing.T) {
	c := NewCatalog()
	actions := c.ModuleActions(ModuleDepartments)
	assert.Len(t, actions, 6)
	assert.Contains(t, actions, ActionViewHistory)

	assert.Empty(t, c.ModuleActions("nonexistent-module"))
}

func TestCatalogLabels(t *testing.T) {
	c := NewCatalog()
	label, ok := c.Label(Permission{Module: ModuleRoles, Action: ActionView})
	require.True(t, ok)
	assert.NotEmpty(t, label.NameEn)
	assert.NotEmpty(t, label.NameAr)
}
