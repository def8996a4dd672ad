package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimasry/go-live-edit/layout"
)

func TestHandleKey_InactiveWhileViewing(t *testing.T) {
	c, _ := newTestController(t)

	handled, err := c.HandleKey(context.Background(), Key{Code: "z", Ctrl: true})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestHandleKey_UndoRedo(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()
	enterEditing(t, c, "home")

	id, err := c.AddComponent("heading", layout.Position{}, nil)
	require.NoError(t, err)

	handled, err := c.HandleKey(ctx, Key{Code: "z", Ctrl: true})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.False(t, c.Tree().Has(id))

	// Cmd+Shift+Z redoes.
	handled, err = c.HandleKey(ctx, Key{Code: "z", Meta: true, Shift: true})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, c.Tree().Has(id))

	// Ctrl+Y also redoes.
	c.Undo()
	handled, err = c.HandleKey(ctx, Key{Code: "y", Ctrl: true})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.True(t, c.Tree().Has(id))
}

func TestHandleKey_Save(t *testing.T) {
	c, st := newTestController(t)
	ctx := context.Background()
	enterEditing(t, c, "home")

	_, err := c.AddComponent("heading", layout.Position{}, nil)
	require.NoError(t, err)

	handled, err := c.HandleKey(ctx, Key{Code: "s", Meta: true})
	require.NoError(t, err)
	assert.True(t, handled)

	l, err := st.Get(ctx, "home")
	require.NoError(t, err)
	assert.True(t, l.HasDraft())
}

func TestHandleKey_EscapeRespectsDirtyState(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()
	enterEditing(t, c, "home")

	_, err := c.AddComponent("heading", layout.Position{}, nil)
	require.NoError(t, err)

	handled, err := c.HandleKey(ctx, Key{Code: "escape"})
	assert.True(t, handled)
	assert.ErrorIs(t, err, ErrUnsavedChanges)
	assert.Equal(t, ModeEditing, c.Mode())

	require.NoError(t, c.SaveDraft(ctx))
	handled, err = c.HandleKey(ctx, Key{Code: "escape"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, ModeViewing, c.Mode())
}

func TestHandleKey_PlainKeysIgnored(t *testing.T) {
	c, _ := newTestController(t)
	enterEditing(t, c, "home")

	handled, err := c.HandleKey(context.Background(), Key{Code: "z"})
	require.NoError(t, err)
	assert.False(t, handled, "z without modifier is not a shortcut")
}
