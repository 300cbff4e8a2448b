package authz

import "sort"

// PermissionSet is a grouped grant structure: module -> action -> granted.
type PermissionSet map[Module]map[Action]bool

// NewPermissionSet normalizes a flattened list of "module:action" identifiers
// into a grouped set. Malformed identifiers are dropped, duplicates collapse.
func NewPermissionSet(ids ...string) PermissionSet {
	set := make(PermissionSet)
	for _, id := range ids {
		p, ok := ParsePermission(id)
		if !ok {
			continue
		}
		set.Grant(p)
	}
	return set
}

// Grant adds a permission to the set.
func (s PermissionSet) Grant(p Permission) {
	actions, ok := s[p.Module]
	if !ok {
		actions = make(map[Action]bool)
		s[p.Module] = actions
	}
	actions[p.Action] = true
}

// Has reports whether the set grants the given module and action.
func (s PermissionSet) Has(module Module, action Action) bool {
	return s[module][action]
}

// IDs returns the flattened, sorted identifier form of the set.
func (s PermissionSet) IDs() []string {
	var ids []string
	for module, actions := range s {
		for action, granted := range actions {
			if granted {
				ids = append(ids, Permission{Module: module, Action: action}.ID())
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Role is the resolved role attached to an actor.
type Role struct {
	ID            string        `json:"id"`
	NameEn        string        `json:"nameEn"`
	NameAr        string        `json:"nameAr"`
	DescriptionEn string        `json:"descriptionEn,omitempty"`
	DescriptionAr string        `json:"descriptionAr,omitempty"`
	IsActive      bool          `json:"isActive"`
	IsSuperAdmin  bool          `json:"isSuperAdmin"`
	Permissions   PermissionSet `json:"permissions"`
}

// Actor is the normalized authenticated user the evaluator works against.
// The role is resolved once at load time; call sites never see a bare role id.
type Actor struct {
	ID            string        `json:"id"`
	Email         string        `json:"email"`
	NameEn        string        `json:"nameEn"`
	NameAr        string        `json:"nameAr"`
	Role          *Role         `json:"role,omitempty"`
	Grants        PermissionSet `json:"grants"`
	HasFullAccess bool          `json:"hasFullAccess"`
	Locale        string        `json:"locale,omitempty"`
}

// EffectivePermissionIDs returns the flattened union of role and direct grants.
// Override flags are not expanded here; they remain flags on the actor.
func (a *Actor) EffectivePermissionIDs() []string {
	if a == nil {
		return nil
	}
	union := make(map[string]struct{})
	for _, id := range a.Grants.IDs() {
		union[id] = struct{}{}
	}
	if a.Role != nil {
		for _, id := range a.Role.Permissions.IDs() {
			union[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(union))
	for id := range union {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
