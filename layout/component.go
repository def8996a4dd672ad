// Package layout implements the component tree store: the ordered set of
// page components being edited, and the structural mutation primitives
// over it. Every mutation is reported as invertible before/after
// snapshots so the history manager can undo it.
package layout

// Position addresses an insertion slot: an index among the siblings
// sharing ParentID. An empty ParentID means top level.
type Position struct {
	Index    int    `json:"index"`
	ParentID string `json:"parentId,omitempty"`
}

// ContentRef links a component to a CMS content item.
type ContentRef struct {
	ContentID   string `json:"contentId"`
	ContentType string `json:"contentType"`
}

// Component is a node in the page's component tree.
// Order is the rank among siblings sharing the same ParentID; sibling
// orders are always a contiguous 0..n-1 sequence.
type Component struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Order      int               `json:"order"`
	ParentID   string            `json:"parentId,omitempty"`
	Props      map[string]any    `json:"props"`
	Styles     map[string]string `json:"styles,omitempty"`
	ContentRef *ContentRef       `json:"contentRef,omitempty"`
}

// Clone returns a deep copy. History snapshots must stay valid after
// later mutations, so props and styles are copied recursively.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Props = cloneProps(c.Props)
	if c.Styles != nil {
		cp.Styles = make(map[string]string, len(c.Styles))
		for k, v := range c.Styles {
			cp.Styles[k] = v
		}
	}
	if c.ContentRef != nil {
		ref := *c.ContentRef
		cp.ContentRef = &ref
	}
	return &cp
}

func cloneProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	cp := make(map[string]any, len(props))
	for k, v := range props {
		cp[k] = cloneValue(v)
	}
	return cp
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneProps(val)
	case []any:
		cp := make([]any, len(val))
		for i, e := range val {
			cp[i] = cloneValue(e)
		}
		return cp
	default:
		return v
	}
}
