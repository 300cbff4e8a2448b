// Package revision implements the append-only field-level change log. Every
// committed create, edit, or delete produces immutable Revision records that
// reconstruct an entity's history.
package revision

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Op is the kind of change a revision records.
type Op string

// Revision operations.
const (
	OpCreate Op = "create"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
)

// ErrHistoryUnavailable indicates a revision fetch failed. Consumers degrade
// to an empty history plus a non-fatal notice; it never blocks the screen.
var ErrHistoryUnavailable = errors.New("revision: history unavailable")

// Revision is one immutable record of a single field (or whole-entity) change.
// A create revision has no meaningful previous value and a delete revision no
// meaningful current value; edit revisions carry exactly one changed field.
type Revision struct {
	ID               string    `json:"id"`
	EntityType       string    `json:"entityType"`
	EntityID         string    `json:"entityId"`
	Op               Op        `json:"operation"`
	FieldName        string    `json:"fieldName,omitempty"`
	PreviousValue    any       `json:"previousValue,omitempty"`
	CurrentValue     any       `json:"currentValue,omitempty"`
	ModifiedBy       string    `json:"modifiedBy,omitempty"`
	ModificationDate time.Time `json:"modificationDate"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newRevisionID returns a ULID seeded from the revision timestamp, so ids sort
// in the same order as the history itself.
func newRevisionID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
