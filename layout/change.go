package layout

import "time"

// ChangeType classifies a single component delta.
type ChangeType string

const (
	ChangeUpdate ChangeType = "update"
	ChangeAdd    ChangeType = "add"
	ChangeRemove ChangeType = "remove"
	ChangeMove   ChangeType = "move"
)

// Change is an atomic, invertible delta to one component. Before and
// After are full snapshots (nil meaning "absent"), so applying After
// then Before to the same slot is a no-op on the tree. Sibling
// renumbering caused by a structural mutation is emitted as additional
// ChangeUpdate entries in the same group.
type Change struct {
	ComponentID string     `json:"componentId"`
	Type        ChangeType `json:"type"`
	Before      *Component `json:"before"`
	After       *Component `json:"after"`
	Timestamp   time.Time  `json:"timestamp"`
}

func newChange(t ChangeType, id string, before, after *Component) Change {
	return Change{
		ComponentID: id,
		Type:        t,
		Before:      before,
		After:       after,
		Timestamp:   time.Now(),
	}
}
