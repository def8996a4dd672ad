package layout

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/alimasry/go-live-edit/registry"
)

// Tree is the canonical ordered component collection for the page being
// edited. All mutations are synchronous and return the invertible
// change set they produced. Subscribers are notified after every
// committed mutation.
type Tree struct {
	mu         sync.RWMutex
	registry   registry.Registry
	components map[string]*Component

	subs    map[int]func([]Change)
	nextSub int
}

// NewTree creates an empty tree validating component types against reg.
func NewTree(reg registry.Registry) *Tree {
	return &Tree{
		registry:   reg,
		components: make(map[string]*Component),
		subs:       make(map[int]func([]Change)),
	}
}

// Subscribe registers a change listener and returns its unsubscribe func.
func (t *Tree) Subscribe(fn func([]Change)) func() {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *Tree) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	t.mu.RLock()
	fns := make([]func([]Change), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.RUnlock()

	for _, fn := range fns {
		fn(changes)
	}
}

// siblingsLocked returns the components under parentID sorted by order.
// Caller must hold the lock.
func (t *Tree) siblingsLocked(parentID string) []*Component {
	var sibs []*Component
	for _, c := range t.components {
		if c.ParentID == parentID {
			sibs = append(sibs, c)
		}
	}
	sort.Slice(sibs, func(i, j int) bool {
		if sibs[i].Order != sibs[j].Order {
			return sibs[i].Order < sibs[j].Order
		}
		return sibs[i].ID < sibs[j].ID
	})
	return sibs
}

// compactLocked renumbers a sibling group to contiguous 0..n-1 orders,
// emitting an update change per component that shifted.
func (t *Tree) compactLocked(parentID string) []Change {
	var changes []Change
	for i, s := range t.siblingsLocked(parentID) {
		if s.Order != i {
			before := s.Clone()
			s.Order = i
			changes = append(changes, newChange(ChangeUpdate, s.ID, before, s.Clone()))
		}
	}
	return changes
}

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}

// Add inserts a new component of the given registered type at pos.
// Registry default props are merged under the caller's props. Returns
// registry.ErrUnknownType (wrapped) before any mutation if the type is
// not registered.
func (t *Tree) Add(componentType string, pos Position, props map[string]any) (string, []Change, error) {
	cfg, err := t.registry.Get(componentType)
	if err != nil {
		return "", nil, err
	}

	t.mu.Lock()
	sibs := t.siblingsLocked(pos.ParentID)
	index := clampIndex(pos.Index, len(sibs))

	merged := cloneProps(cfg.DefaultProps)
	if merged == nil {
		merged = make(map[string]any)
	}
	for k, v := range props {
		merged[k] = cloneValue(v)
	}

	comp := &Component{
		ID:       uuid.NewString(),
		Type:     componentType,
		Order:    index,
		ParentID: pos.ParentID,
		Props:    merged,
	}

	var changes []Change
	for _, s := range sibs[index:] {
		before := s.Clone()
		s.Order++
		changes = append(changes, newChange(ChangeUpdate, s.ID, before, s.Clone()))
	}
	t.components[comp.ID] = comp
	changes = append(changes, newChange(ChangeAdd, comp.ID, nil, comp.Clone()))
	t.mu.Unlock()

	t.notify(changes)
	return comp.ID, changes, nil
}

// Remove deletes a component and compacts its sibling group. A missing
// id is a benign no-op: rapid UI events can race with removal.
func (t *Tree) Remove(id string) []Change {
	t.mu.Lock()
	comp, ok := t.components[id]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	changes := []Change{newChange(ChangeRemove, id, comp.Clone(), nil)}
	delete(t.components, id)
	changes = append(changes, t.compactLocked(comp.ParentID)...)
	t.mu.Unlock()

	t.notify(changes)
	return changes
}

// UpdateProps shallow-merges partial into the component's props.
// No-op if the id is absent.
func (t *Tree) UpdateProps(id string, partial map[string]any) []Change {
	t.mu.Lock()
	comp, ok := t.components[id]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	before := comp.Clone()
	if comp.Props == nil {
		comp.Props = make(map[string]any)
	}
	for k, v := range partial {
		comp.Props[k] = cloneValue(v)
	}
	changes := []Change{newChange(ChangeUpdate, id, before, comp.Clone())}
	t.mu.Unlock()

	t.notify(changes)
	return changes
}

// Update applies an arbitrary mutation to a component's content fields
// (props, styles, content ref). Identity and placement fields are
// managed by Add/Move and are restored if the callback touches them.
func (t *Tree) Update(id string, mutate func(*Component)) []Change {
	t.mu.Lock()
	comp, ok := t.components[id]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	before := comp.Clone()
	mutate(comp)
	comp.ID = before.ID
	comp.Type = before.Type
	comp.Order = before.Order
	comp.ParentID = before.ParentID
	changes := []Change{newChange(ChangeUpdate, id, before, comp.Clone())}
	t.mu.Unlock()

	t.notify(changes)
	return changes
}

// Move removes the component from its current slot and reinserts it at
// pos, renumbering both affected sibling groups. No-op on absent id.
func (t *Tree) Move(id string, pos Position) []Change {
	t.mu.Lock()
	comp, ok := t.components[id]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	before := comp.Clone()
	oldParent := comp.ParentID

	var sibs []*Component
	for _, s := range t.siblingsLocked(pos.ParentID) {
		if s.ID != id {
			sibs = append(sibs, s)
		}
	}
	index := clampIndex(pos.Index, len(sibs))
	comp.ParentID = pos.ParentID
	comp.Order = index

	var changes []Change
	for i, s := range sibs {
		newOrder := i
		if i >= index {
			newOrder = i + 1
		}
		if s.Order != newOrder {
			sb := s.Clone()
			s.Order = newOrder
			changes = append(changes, newChange(ChangeUpdate, s.ID, sb, s.Clone()))
		}
	}
	changes = append(changes, newChange(ChangeMove, id, before, comp.Clone()))
	if oldParent != pos.ParentID {
		changes = append(changes, t.compactLocked(oldParent)...)
	}
	t.mu.Unlock()

	t.notify(changes)
	return changes
}

// Duplicate deep-clones a component and inserts the copy immediately
// after the source in the same parent. Returns "" if the source is absent.
func (t *Tree) Duplicate(id string) (string, []Change) {
	t.mu.Lock()
	src, ok := t.components[id]
	if !ok {
		t.mu.Unlock()
		return "", nil
	}

	var changes []Change
	for _, s := range t.siblingsLocked(src.ParentID) {
		if s.Order > src.Order {
			before := s.Clone()
			s.Order++
			changes = append(changes, newChange(ChangeUpdate, s.ID, before, s.Clone()))
		}
	}

	clone := src.Clone()
	clone.ID = uuid.NewString()
	clone.Order = src.Order + 1
	t.components[clone.ID] = clone
	changes = append(changes, newChange(ChangeAdd, clone.ID, nil, clone.Clone()))
	t.mu.Unlock()

	t.notify(changes)
	return clone.ID, changes
}

// Reorder atomically replaces the top-level order sequence. The ids
// must be a permutation of the current top level, else it is a no-op.
func (t *Tree) Reorder(ids []string) []Change {
	t.mu.Lock()
	top := t.siblingsLocked("")
	if len(ids) != len(top) {
		t.mu.Unlock()
		return nil
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		c, ok := t.components[id]
		if !ok || c.ParentID != "" || seen[id] {
			t.mu.Unlock()
			return nil
		}
		seen[id] = true
	}

	var changes []Change
	for i, id := range ids {
		c := t.components[id]
		if c.Order != i {
			before := c.Clone()
			c.Order = i
			changes = append(changes, newChange(ChangeMove, id, before, c.Clone()))
		}
	}
	t.mu.Unlock()

	t.notify(changes)
	return changes
}

// ApplyChange writes one change snapshot back into the tree: the Before
// snapshot when reverse is true (undo), else the After snapshot (redo).
// A nil snapshot deletes the slot.
func (t *Tree) ApplyChange(c Change, reverse bool) {
	snap := c.After
	if reverse {
		snap = c.Before
	}
	t.mu.Lock()
	if snap == nil {
		delete(t.components, c.ComponentID)
	} else {
		t.components[c.ComponentID] = snap.Clone()
	}
	t.mu.Unlock()

	t.notify([]Change{c})
}

// Load replaces the whole tree with the given components, normalizing
// each sibling group to contiguous orders. Programmatic initialization:
// no changes are emitted and no history should be recorded for it.
func (t *Tree) Load(components []Component) {
	t.mu.Lock()
	t.components = make(map[string]*Component, len(components))
	for i := range components {
		c := components[i].Clone()
		t.components[c.ID] = c
	}
	parents := make(map[string]bool)
	for _, c := range t.components {
		parents[c.ParentID] = true
	}
	for p := range parents {
		for i, s := range t.siblingsLocked(p) {
			s.Order = i
		}
	}
	t.mu.Unlock()
}

// Get returns a copy of the component, if present.
func (t *Tree) Get(id string) (*Component, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.components[id]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Has reports whether the id currently exists in the tree.
func (t *Tree) Has(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.components[id]
	return ok
}

// Len returns the total number of components.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.components)
}

// All returns copies of every component, ordered by (parent, order).
// This is the serialization order used for drafts and diffs.
func (t *Tree) All() []Component {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Component, 0, len(t.components))
	for _, c := range t.components {
		result = append(result, *c.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ParentID != result[j].ParentID {
			return result[i].ParentID < result[j].ParentID
		}
		return result[i].Order < result[j].Order
	})
	return result
}

// ComponentOrder returns the top-level ids in render order.
func (t *Tree) ComponentOrder() []string {
	return t.ChildOrder("")
}

// ChildOrder returns the ids under parentID in render order.
func (t *Tree) ChildOrder(parentID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	sibs := t.siblingsLocked(parentID)
	ids := make([]string, len(sibs))
	for i, s := range sibs {
		ids[i] = s.ID
	}
	return ids
}
