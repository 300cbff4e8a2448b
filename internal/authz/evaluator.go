package authz

// Evaluator decides whether an actor may perform an action on a module.
// Evaluate is pure and holds no lock; it may be called concurrently.
type Evaluator struct {
	catalog *Catalog
}

// NewEvaluator constructs an Evaluator over the given catalog.
func NewEvaluator(catalog *Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Evaluate applies the resolution rules in priority order, first match wins:
// no actor denies, the full-access and super-admin overrides allow, then the
// direct grants and role grants are consulted. Unknown modules or actions are
// denied; Evaluate never returns an error.
func (e *Evaluator) Evaluate(actor *Actor, module Module, action Action) bool {
	if actor == nil {
		return false
	}
	if actor.HasFullAccess {
		return true
	}
	if actor.Role != nil && actor.Role.IsSuperAdmin {
		return true
	}
	if e.catalog != nil && !e.catalog.Contains(Permission{Module: module, Action: action}) {
		return false
	}
	if actor.Grants.Has(module, action) {
		return true
	}
	if actor.Role != nil && actor.Role.Permissions.Has(module, action) {
		return true
	}
	return false
}

// CanAccess reports whether the actor may view the module at all.
func (e *Evaluator) CanAccess(actor *Actor, module Module) bool {
	return e.Evaluate(actor, module, ActionView)
}

// CanCreate reports whether the actor may create records in the module.
func (e *Evaluator) CanCreate(actor *Actor, module Module) bool {
	return e.Evaluate(actor, module, ActionCreate)
}

// CanUpdate reports whether the actor may edit records in the module.
func (e *Evaluator) CanUpdate(actor *Actor, module Module) bool {
	return e.Evaluate(actor, module, ActionUpdate)
}

// CanDelete reports whether the actor may delete records in the module.
func (e *Evaluator) CanDelete(actor *Actor, module Module) bool {
	return e.Evaluate(actor, module, ActionDelete)
}

// CanToggleActivity reports whether the actor may activate or deactivate records.
func (e *Evaluator) CanToggleActivity(actor *Actor, module Module) bool {
	return e.Evaluate(actor, module, ActionToggleActivity)
}

// CanViewHistory reports whether the actor may read the module's revision history.
func (e *Evaluator) CanViewHistory(actor *Actor, module Module) bool {
	return e.Evaluate(actor, module, ActionViewHistory)
}
