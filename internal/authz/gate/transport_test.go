package gate

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystone-admin/keystone/internal/authz"
)

type recordingRoundTripper struct {
	calls  int
	status int
}

func (rt *recordingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.calls++
	return &http.Response{
		StatusCode: rt.status,
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    req,
	}, nil
}

type recordingInvalidator struct {
	userIDs []string
}

func (ri *recordingInvalidator) Invalidate(ctx context.Context, userID string) error {
	ri.userIDs = append(ri.userIDs, userID)
	return nil
}

func fixedActor(actor *authz.Actor) func(context.Context) *authz.Actor {
	return func(context.Context) *authz.Actor { return actor }
}

func newTransport(actor *authz.Actor, base *recordingRoundTripper, sessions SessionInvalidator) *Transport {
	return &Transport{
		Base:     base,
		Gate:     New(DefaultTable(), authz.NewEvaluator(authz.NewCatalog())),
		Actor:    fixedActor(actor),
		Sessions: sessions,
	}
}

func TestTransportBlocksDeniedBeforeTransmission(t *testing.T) {
	viewer := &authz.Actor{
		ID:     "u1",
		Role:   &authz.Role{ID: "r1", Permissions: authz.NewPermissionSet("department-management:view")},
		Grants: authz.NewPermissionSet(),
	}
	base := &recordingRoundTripper{status: http.StatusOK}
	transport := newTransport(viewer, base, nil)

	req, err := http.NewRequest(http.MethodPost, "https://api.internal/departments", nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	assert.Nil(t, resp)
	var denied *authz.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	// The denial must short-circuit the call, not just log it.
	assert.Equal(t, 0, base.calls)
}

func TestTransportAllowsGrantedRequest(t *testing.T) {
	creator := &authz.Actor{ID: "u1", Grants: authz.NewPermissionSet("department-management:create")}
	base := &recordingRoundTripper{status: http.StatusCreated}
	transport := newTransport(creator, base, nil)

	req, err := http.NewRequest(http.MethodPost, "https://api.internal/departments", nil)
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, base.calls)
}

func TestTransportInvalidatesSessionOn401(t *testing.T) {
	admin := &authz.Actor{ID: "u9", HasFullAccess: true}
	base := &recordingRoundTripper{status: http.StatusUnauthorized}
	sessions := &recordingInvalidator{}
	transport := newTransport(admin, base, sessions)

	req, err := http.NewRequest(http.MethodDelete, "https://api.internal/users/3", nil)
	require.NoError(t, err)

	_, err = transport.RoundTrip(req)
	assert.ErrorIs(t, err, authz.ErrSessionExpired)
	assert.Equal(t, []string{"u9"}, sessions.userIDs)
}

func TestTransportKeepsSessionOn403(t *testing.T) {
	admin := &authz.Actor{ID: "u9", HasFullAccess: true}
	base := &recordingRoundTripper{status: http.StatusForbidden}
	sessions := &recordingInvalidator{}
	transport := newTransport(admin, base, sessions)

	req, err := http.NewRequest(http.MethodDelete, "https://api.internal/users/3", nil)
	require.NoError(t, err)

	_, err = transport.RoundTrip(req)
	assert.ErrorIs(t, err, authz.ErrForbidden)
	// 403 invalidates the action, not the actor.
	assert.Empty(t, sessions.userIDs)
}
