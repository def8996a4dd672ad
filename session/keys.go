package session

import "context"

// Key is a normalized keyboard event from the host UI.
type Key struct {
	Code  string // lowercase key value, e.g. "z", "s", "escape"
	Ctrl  bool
	Meta  bool
	Shift bool
}

func (k Key) modifier() bool { return k.Ctrl || k.Meta }

// HandleKey maps the editor keyboard shortcuts onto session actions:
// Ctrl/Cmd+Z undo, Ctrl/Cmd+Shift+Z or Ctrl/Cmd+Y redo, Ctrl/Cmd+S save
// draft, Escape exit edit mode (refused while dirty). Returns whether
// the key was consumed, and the action's error if it had one.
func (c *Controller) HandleKey(ctx context.Context, k Key) (bool, error) {
	if c.Mode() == ModeViewing {
		return false, nil
	}

	if k.modifier() {
		switch k.Code {
		case "z":
			if k.Shift {
				c.Redo()
			} else {
				c.Undo()
			}
			return true, nil
		case "y":
			c.Redo()
			return true, nil
		case "s":
			return true, c.SaveDraft(ctx)
		}
	}

	if k.Code == "escape" {
		return true, c.ExitEditMode(false)
	}
	return false, nil
}
