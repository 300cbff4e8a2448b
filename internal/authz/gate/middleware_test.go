package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keystone-admin/keystone/internal/authz"
)

func TestMiddlewareRequire(t *testing.T) {
	viewer := &authz.Actor{
		ID:     "u1",
		Grants: authz.NewPermissionSet("department-management:view"),
	}
	mw := Middleware{
		Gate:  New(DefaultTable(), authz.NewEvaluator(authz.NewCatalog())),
		Actor: fixedActor(viewer),
	}

	var handled bool
	handler := mw.Require()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/departments", nil))
	assert.True(t, handled)
	assert.Equal(t, http.StatusOK, rec.Code)

	handled = false
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/departments/42", nil))
	assert.False(t, handled, "handler must not run on deny")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestMiddlewareRequirePermission(t *testing.T) {
	mw := Middleware{
		Gate:  New(DefaultTable(), authz.NewEvaluator(authz.NewCatalog())),
		Actor: fixedActor(nil),
	}
	handler := mw.RequirePermission(authz.Permission{Module: authz.ModuleRoles, Action: authz.ActionView})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roles", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
