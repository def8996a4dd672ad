package history

import (
	"testing"

	"github.com/alimasry/go-live-edit/layout"
	"github.com/alimasry/go-live-edit/registry"
)

func newTree(t *testing.T) *layout.Tree {
	t.Helper()
	return layout.NewTree(registry.Builtin())
}

func TestManager_Empty(t *testing.T) {
	m := NewManager()
	tr := newTree(t)

	if m.CanUndo() || m.CanRedo() {
		t.Error("empty history should have nothing to undo or redo")
	}
	if m.Undo(tr) {
		t.Error("undo on empty history should return false")
	}
	if m.Redo(tr) {
		t.Error("redo on empty history should return false")
	}
}

func TestManager_RecordEmptyChangesIsNoop(t *testing.T) {
	m := NewManager()
	m.Record(nil, "nothing")
	m.Record([]layout.Change{}, "still nothing")
	if m.Len() != 0 {
		t.Errorf("len = %d, want 0", m.Len())
	}
}

func TestManager_UndoRedoRoundTrip(t *testing.T) {
	m := NewManager()
	tr := newTree(t)

	id, addChanges, err := tr.Add("heading", layout.Position{}, map[string]any{"text": "one"})
	if err != nil {
		t.Fatal(err)
	}
	m.Record(addChanges, "Added Heading")
	m.Record(tr.UpdateProps(id, map[string]any{"text": "two"}), "Updated Heading")

	if !m.Undo(tr) {
		t.Fatal("undo failed")
	}
	c, _ := tr.Get(id)
	if c.Props["text"] != "one" {
		t.Errorf("after undo text = %v, want one", c.Props["text"])
	}

	if !m.Undo(tr) {
		t.Fatal("second undo failed")
	}
	if tr.Has(id) {
		t.Error("component should be gone after undoing the add")
	}
	if m.CanUndo() {
		t.Error("nothing left to undo")
	}

	if !m.Redo(tr) {
		t.Fatal("redo failed")
	}
	if !tr.Has(id) {
		t.Error("component should be back after redo")
	}

	if !m.Redo(tr) {
		t.Fatal("second redo failed")
	}
	c, _ = tr.Get(id)
	if c.Props["text"] != "two" {
		t.Errorf("after redo text = %v, want two", c.Props["text"])
	}
	if m.CanRedo() {
		t.Error("nothing left to redo")
	}
}

func TestManager_RecordTruncatesRedoTail(t *testing.T) {
	m := NewManager()
	tr := newTree(t)

	id, addChanges, err := tr.Add("heading", layout.Position{}, map[string]any{"text": "one"})
	if err != nil {
		t.Fatal(err)
	}
	m.Record(addChanges, "add")
	m.Record(tr.UpdateProps(id, map[string]any{"text": "two"}), "edit")

	m.Undo(tr)
	if !m.CanRedo() {
		t.Fatal("expected redo available after undo")
	}

	// A new action replaces the redo branch.
	m.Record(tr.UpdateProps(id, map[string]any{"text": "three"}), "edit again")
	if m.CanRedo() {
		t.Error("redo tail should be truncated by a new record")
	}
	if m.Len() != 2 {
		t.Errorf("len = %d, want 2", m.Len())
	}
}

func TestManager_MultiChangeEntryIsAtomic(t *testing.T) {
	m := NewManager()
	tr := newTree(t)

	ids := make([]string, 3)
	for i := range ids {
		id, ch, err := tr.Add("heading", layout.Position{Index: i}, nil)
		if err != nil {
			t.Fatal(err)
		}
		m.Record(ch, "add")
		ids[i] = id
	}

	// Moving the last component to the front touches every sibling but
	// undoes as a single step.
	m.Record(tr.Move(ids[2], layout.Position{Index: 0}), "move")

	if !m.Undo(tr) {
		t.Fatal("undo failed")
	}
	order := tr.ChildOrder("")
	for i, id := range ids {
		if order[i] != id {
			t.Fatalf("order after undo = %v, want %v", order, ids)
		}
	}
}

func TestManager_Clear(t *testing.T) {
	m := NewManager()
	tr := newTree(t)

	_, ch, err := tr.Add("heading", layout.Position{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	m.Record(ch, "add")

	m.Clear()
	if m.Len() != 0 || m.CanUndo() || m.CanRedo() {
		t.Error("clear did not reset history")
	}
}

func TestManager_Entries(t *testing.T) {
	m := NewManager()
	tr := newTree(t)

	id, ch, err := tr.Add("heading", layout.Position{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	m.Record(ch, "Added Heading")
	m.Record(tr.UpdateProps(id, map[string]any{"text": "x"}), "Updated Heading")

	entries := m.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Description != "Added Heading" || entries[1].Description != "Updated Heading" {
		t.Errorf("unexpected descriptions: %+v", entries)
	}

	// Only entries up to the cursor are listed.
	m.Undo(tr)
	if got := len(m.Entries()); got != 1 {
		t.Errorf("entries after undo = %d, want 1", got)
	}
}
