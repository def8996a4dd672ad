package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimasry/go-live-edit/layout"
	"github.com/alimasry/go-live-edit/registry"
	"github.com/alimasry/go-live-edit/store"
)

// flakyStore wraps a LayoutStore and fails operations on demand.
type flakyStore struct {
	store.LayoutStore
	saveErr    error
	publishErr error
}

func (f *flakyStore) SaveDraft(ctx context.Context, pageSlug string, components []layout.Component) (time.Time, error) {
	if f.saveErr != nil {
		return time.Time{}, f.saveErr
	}
	return f.LayoutStore.SaveDraft(ctx, pageSlug, components)
}

func (f *flakyStore) Publish(ctx context.Context, pageSlug string) (time.Time, int, error) {
	if f.publishErr != nil {
		return time.Time{}, 0, f.publishErr
	}
	return f.LayoutStore.Publish(ctx, pageSlug)
}

func newTestController(t *testing.T) (*Controller, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	c := NewController(st, registry.Builtin(), zerolog.Nop())
	t.Cleanup(func() { c.ExitEditMode(true) })
	return c, st
}

func enterEditing(t *testing.T, c *Controller, slug string) {
	t.Helper()
	require.NoError(t, c.EnterEditMode(context.Background(), slug))
}

func TestController_ModeTransitions(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	assert.Equal(t, ModeViewing, c.Mode())

	require.NoError(t, c.EnterEditMode(ctx, "home"))
	assert.Equal(t, ModeEditing, c.Mode())
	assert.Equal(t, "home", c.PageSlug())

	// Re-entering is rejected.
	assert.ErrorIs(t, c.EnterEditMode(ctx, "other"), ErrAlreadyEditing)

	c.TogglePreviewMode()
	assert.Equal(t, ModePreviewing, c.Mode())
	c.TogglePreviewMode()
	assert.Equal(t, ModeEditing, c.Mode())

	require.NoError(t, c.ExitEditMode(false))
	assert.Equal(t, ModeViewing, c.Mode())
	assert.Empty(t, c.PageSlug())
	assert.Nil(t, c.Tree())

	// Exit is idempotent.
	require.NoError(t, c.ExitEditMode(false))
}

func TestController_MutationsRequireEditMode(t *testing.T) {
	c, _ := newTestController(t)

	_, err := c.AddComponent("heading", layout.Position{}, nil)
	assert.ErrorIs(t, err, ErrNotEditing)
	assert.ErrorIs(t, c.RemoveComponent("x"), ErrNotEditing)
	assert.ErrorIs(t, c.SaveDraft(context.Background()), ErrNotEditing)
	assert.False(t, c.Undo())

	// Preview mode also blocks mutations.
	enterEditing(t, c, "home")
	c.TogglePreviewMode()
	_, err = c.AddComponent("heading", layout.Position{}, nil)
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestController_ExitRefusedWhileDirty(t *testing.T) {
	c, _ := newTestController(t)
	enterEditing(t, c, "home")

	_, err := c.AddComponent("heading", layout.Position{}, nil)
	require.NoError(t, err)
	assert.True(t, c.HasUnsavedChanges())

	assert.ErrorIs(t, c.ExitEditMode(false), ErrUnsavedChanges)
	assert.Equal(t, ModeEditing, c.Mode())

	// Force discards and exits.
	require.NoError(t, c.ExitEditMode(true))
	assert.Equal(t, ModeViewing, c.Mode())
}

func TestController_UndoRedo(t *testing.T) {
	c, _ := newTestController(t)
	enterEditing(t, c, "home")

	id, err := c.AddComponent("heading", layout.Position{}, map[string]any{"text": "one"})
	require.NoError(t, err)
	require.NoError(t, c.UpdateComponentProps(id, map[string]any{"text": "two"}))

	require.True(t, c.CanUndo())
	require.True(t, c.Undo())
	comp, ok := c.Tree().Get(id)
	require.True(t, ok)
	assert.Equal(t, "one", comp.Props["text"])

	require.True(t, c.Redo())
	comp, _ = c.Tree().Get(id)
	assert.Equal(t, "two", comp.Props["text"])
	assert.False(t, c.CanRedo())
}

func TestController_UndoSweepsSelection(t *testing.T) {
	c, _ := newTestController(t)
	enterEditing(t, c, "home")

	id, err := c.AddComponent("heading", layout.Position{}, nil)
	require.NoError(t, err)
	c.SelectComponent(id)
	assert.Equal(t, id, c.SelectedComponent())

	// Undoing the add removes the component; selection must not dangle.
	require.True(t, c.Undo())
	assert.Empty(t, c.SelectedComponent())
}

func TestController_SelectUnknownClears(t *testing.T) {
	c, _ := newTestController(t)
	enterEditing(t, c, "home")

	c.SelectComponent("ghost")
	assert.Empty(t, c.SelectedComponent())
	c.HoverComponent("ghost")
	assert.Empty(t, c.HoveredComponent())
}

func TestController_SaveAndPublish(t *testing.T) {
	c, st := newTestController(t)
	ctx := context.Background()
	enterEditing(t, c, "home")

	_, err := c.AddComponent("heading", layout.Position{}, map[string]any{"text": "hello"})
	require.NoError(t, err)

	require.NoError(t, c.SaveDraft(ctx))
	assert.False(t, c.HasUnsavedChanges())
	assert.NotNil(t, c.LastSavedAt())

	l, err := st.Get(ctx, "home")
	require.NoError(t, err)
	assert.True(t, l.HasDraft())
	assert.Len(t, l.DraftComponents, 1)

	version, err := c.PublishChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	l, _ = st.Get(ctx, "home")
	assert.False(t, l.HasDraft())
	assert.Len(t, l.Components, 1)

	// Clean exit is now allowed.
	require.NoError(t, c.ExitEditMode(false))
}

func TestController_SaveFailureStaysDirty(t *testing.T) {
	st := store.NewMemoryStore()
	flaky := &flakyStore{LayoutStore: st, saveErr: errors.New("backend down")}
	c := NewController(flaky, registry.Builtin(), zerolog.Nop())
	t.Cleanup(func() { c.ExitEditMode(true) })
	ctx := context.Background()

	require.NoError(t, c.EnterEditMode(ctx, "home"))
	_, err := c.AddComponent("heading", layout.Position{}, nil)
	require.NoError(t, err)

	require.Error(t, c.SaveDraft(ctx))
	assert.True(t, c.HasUnsavedChanges(), "failed save must leave session dirty")
	assert.Nil(t, c.LastSavedAt())

	// Recovery: clear the fault and retry.
	flaky.saveErr = nil
	require.NoError(t, c.SaveDraft(ctx))
	assert.False(t, c.HasUnsavedChanges())
}

func TestController_PublishFailure(t *testing.T) {
	st := store.NewMemoryStore()
	flaky := &flakyStore{LayoutStore: st, publishErr: errors.New("backend down")}
	c := NewController(flaky, registry.Builtin(), zerolog.Nop())
	t.Cleanup(func() { c.ExitEditMode(true) })
	ctx := context.Background()

	require.NoError(t, c.EnterEditMode(ctx, "home"))
	_, err := c.AddComponent("heading", layout.Position{}, nil)
	require.NoError(t, err)

	_, err = c.PublishChanges(ctx)
	require.Error(t, err)
	assert.False(t, c.IsPublishing())
}

func TestController_DiscardChanges(t *testing.T) {
	c, st := newTestController(t)
	ctx := context.Background()

	// Publish one component so the baseline is non-empty.
	enterEditing(t, c, "home")
	_, err := c.AddComponent("heading", layout.Position{}, map[string]any{"text": "base"})
	require.NoError(t, err)
	_, err = c.PublishChanges(ctx)
	require.NoError(t, err)
	require.NoError(t, c.ExitEditMode(false))

	// New session: make edits, then discard.
	enterEditing(t, c, "home")
	id, err := c.AddComponent("spacer", layout.Position{Index: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, c.SaveDraft(ctx))

	require.NoError(t, c.DiscardChanges(ctx))
	assert.False(t, c.Tree().Has(id))
	assert.Equal(t, 1, c.Tree().Len())
	assert.False(t, c.HasUnsavedChanges())

	l, _ := st.Get(ctx, "home")
	assert.False(t, l.HasDraft(), "stored draft must be deleted on discard")
}

func TestController_EnterEditModePrefersDraft(t *testing.T) {
	c, st := newTestController(t)
	ctx := context.Background()

	_, err := st.SaveDraft(ctx, "home", []layout.Component{
		{ID: "d1", Type: "heading", Props: map[string]any{"text": "draft"}},
	})
	require.NoError(t, err)

	enterEditing(t, c, "home")
	comp, ok := c.Tree().Get("d1")
	require.True(t, ok, "draft components must seed the tree")
	assert.Equal(t, "draft", comp.Props["text"])

	// The untouched draft counts as already saved.
	assert.False(t, c.HasUnsavedChanges())
}

func TestController_RecoverDraft(t *testing.T) {
	c, st := newTestController(t)
	ctx := context.Background()
	enterEditing(t, c, "home")

	_, err := c.AddComponent("heading", layout.Position{}, nil)
	require.NoError(t, err)

	// Simulate another tab writing a newer draft.
	_, err = st.SaveDraft(ctx, "home", []layout.Component{
		{ID: "remote", Type: "spacer"},
	})
	require.NoError(t, err)

	require.NoError(t, c.RecoverDraft(ctx))
	assert.True(t, c.Tree().Has("remote"))
	assert.Equal(t, 1, c.Tree().Len())
	assert.False(t, c.CanUndo(), "history resets on recovery")
}

func TestController_Autosave(t *testing.T) {
	c, st := newTestController(t)
	c.SetAutosaveInterval(20 * time.Millisecond)
	ctx := context.Background()
	enterEditing(t, c, "home")

	_, err := c.AddComponent("heading", layout.Position{}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		l, err := st.Get(ctx, "home")
		return err == nil && l.HasDraft()
	}, 2*time.Second, 10*time.Millisecond, "autosave should persist the dirty draft")
	assert.False(t, c.HasUnsavedChanges())
}

func TestController_DevicePreviewAndSidebar(t *testing.T) {
	c, _ := newTestController(t)

	assert.Equal(t, "desktop", c.DevicePreview())
	c.SetDevicePreview("mobile")
	assert.Equal(t, "mobile", c.DevicePreview())

	open, tab := c.Sidebar()
	assert.False(t, open)
	assert.Equal(t, "components", tab)

	c.SetSidebar(true, "layers")
	open, tab = c.Sidebar()
	assert.True(t, open)
	assert.Equal(t, "layers", tab)
}
