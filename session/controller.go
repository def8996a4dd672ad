// Package session implements the edit session controller: the mode
// state machine (viewing, editing, previewing), selection state, the
// undo/redo surface, and the draft/publish lifecycle with autosave.
package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alimasry/go-live-edit/history"
	"github.com/alimasry/go-live-edit/layout"
	"github.com/alimasry/go-live-edit/registry"
	"github.com/alimasry/go-live-edit/store"
)

// Mode is the session's rendering/interaction mode.
type Mode string

const (
	ModeViewing    Mode = "viewing"
	ModeEditing    Mode = "editing"
	ModePreviewing Mode = "previewing"
)

var (
	// ErrUnsavedChanges means exit was refused; the caller should
	// confirm with the user and retry with force.
	ErrUnsavedChanges = errors.New("unsaved changes")
	// ErrNotEditing means an edit operation was invoked outside edit mode.
	ErrNotEditing = errors.New("not in edit mode")
	// ErrAlreadyEditing means EnterEditMode was called twice.
	ErrAlreadyEditing = errors.New("already in edit mode")
	// ErrLoadInFlight means a layout load is already pending.
	ErrLoadInFlight = errors.New("layout load already in progress")
	// ErrSaveInFlight means a draft save is already pending.
	ErrSaveInFlight = errors.New("draft save already in progress")
	// ErrPublishInFlight means a publish is already pending.
	ErrPublishInFlight = errors.New("publish already in progress")
)

// DefaultAutosaveInterval is how often dirty sessions autosave.
const DefaultAutosaveInterval = 30 * time.Second

// Controller orchestrates one user's edit session over a single page.
type Controller struct {
	store    store.LayoutStore
	registry registry.Registry
	logger   zerolog.Logger

	mu       sync.Mutex
	mode     Mode
	pageSlug string
	tree     *layout.Tree
	hist     *history.Manager

	// original is the baseline for discard; saved is the last state
	// persisted as a draft. Dirty means current != saved.
	original []layout.Component
	saved    []layout.Component

	selectedID   string
	hoveredID    string
	focusedField string

	devicePreview string
	sidebarOpen   bool
	sidebarTab    string

	isLoading    bool
	isSaving     bool
	isPublishing bool
	lastSavedAt  *time.Time

	autosaveInterval time.Duration
	autosaveStop     chan struct{}
	autosaveDone     chan struct{}
}

// NewController creates a session controller in viewing mode.
func NewController(st store.LayoutStore, reg registry.Registry, logger zerolog.Logger) *Controller {
	return &Controller{
		store:            st,
		registry:         reg,
		logger:           logger,
		mode:             ModeViewing,
		hist:             history.NewManager(),
		devicePreview:    "desktop",
		sidebarTab:       "components",
		autosaveInterval: DefaultAutosaveInterval,
	}
}

// SetAutosaveInterval overrides the autosave cadence. Takes effect on
// the next EnterEditMode.
func (c *Controller) SetAutosaveInterval(d time.Duration) {
	c.mu.Lock()
	c.autosaveInterval = d
	c.mu.Unlock()
}

// EnterEditMode loads the layout for pageSlug and transitions
// Viewing -> Editing. The draft tree is preferred over the published
// one. On load failure the session stays in viewing mode.
func (c *Controller) EnterEditMode(ctx context.Context, pageSlug string) error {
	c.mu.Lock()
	if c.mode != ModeViewing {
		c.mu.Unlock()
		return ErrAlreadyEditing
	}
	if c.isLoading {
		c.mu.Unlock()
		return ErrLoadInFlight
	}
	c.isLoading = true
	c.mu.Unlock()

	l, err := c.store.Get(ctx, pageSlug)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.isLoading = false
	if err != nil {
		return fmt.Errorf("load layout %q: %w", pageSlug, err)
	}

	seed := l.Components
	if l.HasDraft() {
		seed = l.DraftComponents
	}
	tree := layout.NewTree(c.registry)
	tree.Load(seed)

	c.tree = tree
	c.pageSlug = pageSlug
	c.original = tree.All()
	c.saved = tree.All()
	c.hist.Clear()
	c.lastSavedAt = nil
	c.mode = ModeEditing
	c.startAutosaveLocked()

	c.logger.Info().Str("pageSlug", pageSlug).Int("components", tree.Len()).Msg("entered edit mode")
	return nil
}

// ExitEditMode transitions back to viewing. Unless force is set, the
// transition is refused with ErrUnsavedChanges while dirty so the
// caller can confirm. Idempotent once in viewing mode.
func (c *Controller) ExitEditMode(force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeViewing {
		return nil
	}
	if !force && c.hasUnsavedChangesLocked() {
		return ErrUnsavedChanges
	}

	c.stopAutosaveLocked()
	c.mode = ModeViewing
	c.tree = nil
	c.pageSlug = ""
	c.original = nil
	c.saved = nil
	c.hist.Clear()
	c.selectedID = ""
	c.hoveredID = ""
	c.focusedField = ""
	c.logger.Info().Msg("exited edit mode")
	return nil
}

// TogglePreviewMode flips Editing <-> Previewing. Selection is cleared
// so no edit affordances show in preview. The tree, history and
// autosave are untouched.
func (c *Controller) TogglePreviewMode() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case ModeEditing:
		c.mode = ModePreviewing
		c.selectedID = ""
		c.hoveredID = ""
		c.focusedField = ""
	case ModePreviewing:
		c.mode = ModeEditing
	}
}

// Mode returns the current session mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// PageSlug returns the slug being edited, or "".
func (c *Controller) PageSlug() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageSlug
}

// Tree exposes the live component tree, or nil outside an edit session.
func (c *Controller) Tree() *layout.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// editingTree returns the tree iff mutations are currently allowed.
func (c *Controller) editingTree() (*layout.Tree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeEditing || c.tree == nil {
		return nil, ErrNotEditing
	}
	return c.tree, nil
}

// displayName resolves a component type to its registry display name.
func (c *Controller) displayName(componentType string) string {
	if cfg, err := c.registry.Get(componentType); err == nil {
		return cfg.DisplayName
	}
	return componentType
}

// record commits a mutation's change set to history and sweeps any
// selection pointing at components that no longer exist.
func (c *Controller) record(changes []layout.Change, description string) {
	if len(changes) == 0 {
		return
	}
	c.hist.Record(changes, description)
	c.sweepSelection()
}

func (c *Controller) sweepSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		return
	}
	if c.selectedID != "" && !c.tree.Has(c.selectedID) {
		c.selectedID = ""
	}
	if c.hoveredID != "" && !c.tree.Has(c.hoveredID) {
		c.hoveredID = ""
	}
}

// AddComponent inserts a new component and records the change.
func (c *Controller) AddComponent(componentType string, pos layout.Position, props map[string]any) (string, error) {
	tree, err := c.editingTree()
	if err != nil {
		return "", err
	}
	id, changes, err := tree.Add(componentType, pos, props)
	if err != nil {
		return "", err
	}
	c.record(changes, "Added "+c.displayName(componentType))
	return id, nil
}

// RemoveComponent deletes a component. A stale id is a no-op.
func (c *Controller) RemoveComponent(id string) error {
	tree, err := c.editingTree()
	if err != nil {
		return err
	}
	desc := "Removed component"
	if comp, ok := tree.Get(id); ok {
		desc = "Removed " + c.displayName(comp.Type)
	}
	c.record(tree.Remove(id), desc)
	return nil
}

// UpdateComponentProps shallow-merges props into a component.
func (c *Controller) UpdateComponentProps(id string, props map[string]any) error {
	tree, err := c.editingTree()
	if err != nil {
		return err
	}
	desc := "Updated component"
	if comp, ok := tree.Get(id); ok {
		desc = "Updated " + c.displayName(comp.Type)
	}
	c.record(tree.UpdateProps(id, props), desc)
	return nil
}

// UpdateComponent applies an arbitrary content mutation to a component.
func (c *Controller) UpdateComponent(id string, mutate func(*layout.Component)) error {
	tree, err := c.editingTree()
	if err != nil {
		return err
	}
	desc := "Updated component"
	if comp, ok := tree.Get(id); ok {
		desc = "Updated " + c.displayName(comp.Type)
	}
	c.record(tree.Update(id, mutate), desc)
	return nil
}

// MoveComponent moves a component to a new position.
func (c *Controller) MoveComponent(id string, pos layout.Position) error {
	tree, err := c.editingTree()
	if err != nil {
		return err
	}
	desc := "Moved component"
	if comp, ok := tree.Get(id); ok {
		desc = "Moved " + c.displayName(comp.Type)
	}
	c.record(tree.Move(id, pos), desc)
	return nil
}

// DuplicateComponent clones a component next to its source. Returns ""
// if the source no longer exists.
func (c *Controller) DuplicateComponent(id string) (string, error) {
	tree, err := c.editingTree()
	if err != nil {
		return "", err
	}
	desc := "Duplicated component"
	if comp, ok := tree.Get(id); ok {
		desc = "Duplicated " + c.displayName(comp.Type)
	}
	newID, changes := tree.Duplicate(id)
	c.record(changes, desc)
	return newID, nil
}

// ReorderComponents atomically replaces the top-level order. Used by
// drag-and-drop drop events.
func (c *Controller) ReorderComponents(ids []string) error {
	tree, err := c.editingTree()
	if err != nil {
		return err
	}
	c.record(tree.Reorder(ids), "Reordered components")
	return nil
}

// Undo reverts the latest history entry. Returns false if there was
// nothing to undo.
func (c *Controller) Undo() bool {
	tree, err := c.editingTree()
	if err != nil {
		return false
	}
	applied := c.hist.Undo(tree)
	if applied {
		c.sweepSelection()
	}
	return applied
}

// Redo re-applies the next history entry.
func (c *Controller) Redo() bool {
	tree, err := c.editingTree()
	if err != nil {
		return false
	}
	applied := c.hist.Redo(tree)
	if applied {
		c.sweepSelection()
	}
	return applied
}

// CanUndo reports whether an undo is available, for UI gating.
func (c *Controller) CanUndo() bool { return c.hist.CanUndo() }

// CanRedo reports whether a redo is available.
func (c *Controller) CanRedo() bool { return c.hist.CanRedo() }

// History exposes the applied entries, for the publish summary.
func (c *Controller) History() []history.Entry { return c.hist.Entries() }

// SelectComponent sets the selection. Ids not present in the tree are
// silently cleared.
func (c *Controller) SelectComponent(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != "" && (c.tree == nil || !c.tree.Has(id)) {
		id = ""
	}
	c.selectedID = id
}

// HoverComponent sets the hover highlight, same rules as selection.
func (c *Controller) HoverComponent(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != "" && (c.tree == nil || !c.tree.Has(id)) {
		id = ""
	}
	c.hoveredID = id
}

// FocusField sets the focused editable field id.
func (c *Controller) FocusField(fieldID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focusedField = fieldID
}

// SelectedComponent returns the selected component id, or "".
func (c *Controller) SelectedComponent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// HoveredComponent returns the hovered component id, or "".
func (c *Controller) HoveredComponent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hoveredID
}

// FocusedField returns the focused field id, or "".
func (c *Controller) FocusedField() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focusedField
}

// HasUnsavedChanges reports whether the current tree differs from the
// last saved draft, or a save is still in flight.
func (c *Controller) HasUnsavedChanges() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasUnsavedChangesLocked()
}

func (c *Controller) hasUnsavedChangesLocked() bool {
	if c.tree == nil {
		return false
	}
	if c.isSaving {
		return true
	}
	return !reflect.DeepEqual(c.tree.All(), c.saved)
}

// IsLoading reports whether a layout load is in flight.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isLoading
}

// IsSaving reports whether a draft save is in flight.
func (c *Controller) IsSaving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isSaving
}

// IsPublishing reports whether a publish is in flight.
func (c *Controller) IsPublishing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isPublishing
}

// LastSavedAt returns the timestamp of the last successful draft save.
func (c *Controller) LastSavedAt() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSavedAt
}

// SaveDraft persists the current tree as the page's draft. Redundant
// concurrent saves are rejected; a failed save leaves the dirty state
// untouched so it can be retried.
func (c *Controller) SaveDraft(ctx context.Context) error {
	c.mu.Lock()
	if c.mode == ModeViewing || c.tree == nil {
		c.mu.Unlock()
		return ErrNotEditing
	}
	if c.isSaving {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	if c.isPublishing {
		c.mu.Unlock()
		return ErrPublishInFlight
	}
	c.isSaving = true
	slug := c.pageSlug
	comps := c.tree.All()
	c.mu.Unlock()

	savedAt, err := c.store.SaveDraft(ctx, slug, comps)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.isSaving = false
	// Stale-response guard: the session may have been torn down or
	// switched pages while the request was in flight.
	if c.pageSlug != slug {
		return nil
	}
	if err != nil {
		return fmt.Errorf("save draft %q: %w", slug, err)
	}
	c.lastSavedAt = &savedAt
	c.saved = comps
	return nil
}

// PublishChanges saves the current draft and promotes it to the
// published layout. Concurrent publishes are rejected. On success the
// discard baseline becomes the published tree. Returns the new version.
func (c *Controller) PublishChanges(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.mode == ModeViewing || c.tree == nil {
		c.mu.Unlock()
		return 0, ErrNotEditing
	}
	if c.isPublishing {
		c.mu.Unlock()
		return 0, ErrPublishInFlight
	}
	if c.isSaving {
		c.mu.Unlock()
		return 0, ErrSaveInFlight
	}
	c.isPublishing = true
	slug := c.pageSlug
	comps := c.tree.All()
	c.mu.Unlock()

	version, err := c.publish(ctx, slug, comps)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.isPublishing = false
	if c.pageSlug != slug {
		return version, nil
	}
	if err != nil {
		return 0, err
	}
	now := time.Now()
	c.lastSavedAt = &now
	c.original = comps
	c.saved = comps
	c.logger.Info().Str("pageSlug", slug).Int("version", version).Msg("published layout")
	return version, nil
}

func (c *Controller) publish(ctx context.Context, slug string, comps []layout.Component) (int, error) {
	if _, err := c.store.SaveDraft(ctx, slug, comps); err != nil {
		return 0, fmt.Errorf("save draft before publish: %w", err)
	}
	_, version, err := c.store.Publish(ctx, slug)
	if err != nil {
		return 0, fmt.Errorf("publish %q: %w", slug, err)
	}
	return version, nil
}

// DiscardChanges resets the tree to the discard baseline and deletes
// the stored draft. History is untouched; it is cleared on mode exit.
func (c *Controller) DiscardChanges(ctx context.Context) error {
	c.mu.Lock()
	if c.mode == ModeViewing || c.tree == nil {
		c.mu.Unlock()
		return ErrNotEditing
	}
	slug := c.pageSlug
	baseline := c.original
	c.tree.Load(baseline)
	c.saved = c.tree.All()
	c.mu.Unlock()

	if err := c.store.DiscardDraft(ctx, slug); err != nil {
		return fmt.Errorf("discard draft %q: %w", slug, err)
	}
	c.sweepSelection()
	return nil
}

// RecoverDraft re-fetches the stored draft and overwrites the current
// tree in full. Used for session resume after a reload.
func (c *Controller) RecoverDraft(ctx context.Context) error {
	c.mu.Lock()
	if c.mode == ModeViewing || c.tree == nil {
		c.mu.Unlock()
		return ErrNotEditing
	}
	slug := c.pageSlug
	c.mu.Unlock()

	l, err := c.store.Get(ctx, slug)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pageSlug != slug || c.tree == nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("recover draft %q: %w", slug, err)
	}
	seed := l.Components
	if l.HasDraft() {
		seed = l.DraftComponents
	}
	c.tree.Load(seed)
	c.original = l.Components
	c.saved = c.tree.All()
	c.hist.Clear()
	return nil
}

// DevicePreview returns the active device preview mode.
func (c *Controller) DevicePreview() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.devicePreview
}

// SetDevicePreview selects the desktop/tablet/mobile preview frame.
func (c *Controller) SetDevicePreview(device string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.devicePreview = device
}

// SetSidebar updates the sidebar open state and active tab.
func (c *Controller) SetSidebar(open bool, tab string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sidebarOpen = open
	if tab != "" {
		c.sidebarTab = tab
	}
}

// Sidebar returns the sidebar open state and active tab.
func (c *Controller) Sidebar() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sidebarOpen, c.sidebarTab
}

// startAutosaveLocked launches the autosave loop for the new session.
// Caller must hold the lock.
func (c *Controller) startAutosaveLocked() {
	stop := make(chan struct{})
	done := make(chan struct{})
	c.autosaveStop = stop
	c.autosaveDone = done
	interval := c.autosaveInterval

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.autosave()
			case <-stop:
				return
			}
		}
	}()
}

// stopAutosaveLocked tears down the autosave loop. Idempotent.
func (c *Controller) stopAutosaveLocked() {
	if c.autosaveStop == nil {
		return
	}
	close(c.autosaveStop)
	c.autosaveStop = nil
	c.autosaveDone = nil
}

// autosave saves the draft when the session is dirty. Failures are
// logged and retried on the next tick; they never affect the session.
func (c *Controller) autosave() {
	c.mu.Lock()
	skip := c.mode == ModeViewing || c.tree == nil || c.isSaving || c.isPublishing || !c.hasUnsavedChangesLocked()
	c.mu.Unlock()
	if skip {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := c.SaveDraft(ctx); err != nil && !errors.Is(err, ErrSaveInFlight) && !errors.Is(err, ErrNotEditing) {
		c.logger.Warn().Err(err).Msg("autosave failed, will retry")
	}
}
