package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/keystone-admin/keystone/internal/testing/guard"
)

func TestGuardEnablesTestMode(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}

func TestRefreshTestModeTracksEnvironment(t *testing.T) {
	t.Setenv("KEYSTONE_TEST_MODE", "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv("KEYSTONE_TEST_MODE", "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
}
