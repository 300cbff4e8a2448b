package gate

import (
	"net/http"

	"github.com/keystone-admin/keystone/internal/authz"
)

// Gate is the stateless pre-flight check shared by the outgoing transport and
// the server middleware. It never mutates evaluator or actor state.
type Gate struct {
	table *Table
	eval  *authz.Evaluator
}

// New constructs a Gate over the mapping table and evaluator.
func New(table *Table, eval *authz.Evaluator) *Gate {
	return &Gate{table: table, eval: eval}
}

// Check authorizes one request. Mutating requests without a table entry are
// denied: an endpoint nobody mapped is an endpoint nobody audited. Reads
// without an entry pass through untouched.
func (g *Gate) Check(actor *authz.Actor, method, path string) error {
	perm, ok := g.table.Resolve(method, path)
	if !ok {
		if isMutating(method) {
			return &authz.PermissionDeniedError{
				Method: method,
				Path:   path,
				Reason: "no permission mapping for endpoint",
			}
		}
		return nil
	}
	if g.eval.Evaluate(actor, perm.Module, perm.Action) {
		return nil
	}
	return authz.Denied(method, path, perm)
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
