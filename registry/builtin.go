package registry

// Builtin returns the registry of component types the editor ships with.
func Builtin() *Static {
	return NewStatic(
		Config{
			Type:        "hero",
			DisplayName: "Hero Section",
			Icon:        "🎯",
			Category:    "layout",
			EditableFields: []EditableField{
				{Name: "title", Type: FieldText, Label: "Title", Required: true, MaxLength: 100},
				{Name: "subtitle", Type: FieldText, Label: "Subtitle", MaxLength: 200},
				{Name: "backgroundImage", Type: FieldImage, Label: "Background Image"},
				{Name: "ctaText", Type: FieldText, Label: "Button Text", MaxLength: 50},
				{Name: "ctaLink", Type: FieldLink, Label: "Button Link"},
				{Name: "alignment", Type: FieldSelect, Label: "Text Alignment", Options: []Option{
					{Label: "Left", Value: "left"},
					{Label: "Center", Value: "center"},
					{Label: "Right", Value: "right"},
				}},
			},
			Capabilities: Capabilities{Draggable: true, Deletable: true, Duplicatable: true},
			DefaultProps: map[string]any{
				"title":     "Hero Title",
				"subtitle":  "Hero subtitle goes here",
				"alignment": "center",
				"ctaText":   "Learn More",
				"ctaLink":   "/",
			},
		},
		Config{
			Type:        "heading",
			DisplayName: "Heading",
			Icon:        "🔤",
			Category:    "content",
			EditableFields: []EditableField{
				{Name: "text", Type: FieldText, Label: "Text", Required: true, MaxLength: 120},
				{Name: "level", Type: FieldSelect, Label: "Level", Options: []Option{
					{Label: "H1", Value: "h1"},
					{Label: "H2", Value: "h2"},
					{Label: "H3", Value: "h3"},
				}},
			},
			Capabilities: Capabilities{Draggable: true, Deletable: true, Duplicatable: true},
			DefaultProps: map[string]any{"text": "Heading", "level": "h2"},
		},
		Config{
			Type:        "textBlock",
			DisplayName: "Text Block",
			Icon:        "📝",
			Category:    "content",
			EditableFields: []EditableField{
				{Name: "content", Type: FieldRichText, Label: "Content", Required: true},
			},
			Capabilities: Capabilities{Draggable: true, Deletable: true, Duplicatable: true},
			DefaultProps: map[string]any{"content": "<p>Your text here</p>"},
		},
		Config{
			Type:        "contentCard",
			DisplayName: "Content Card",
			Icon:        "📄",
			Category:    "content",
			EditableFields: []EditableField{
				{Name: "contentRef", Type: FieldContent, Label: "Content", Required: true},
				{Name: "showImage", Type: FieldBoolean, Label: "Show Image"},
				{Name: "showDescription", Type: FieldBoolean, Label: "Show Description"},
			},
			Capabilities: Capabilities{Draggable: true, Resizable: true, Deletable: true, Duplicatable: true},
			DefaultProps: map[string]any{"showImage": true, "showDescription": true},
		},
		Config{
			Type:        "contentGrid",
			DisplayName: "Content Grid",
			Icon:        "📊",
			Category:    "content",
			EditableFields: []EditableField{
				{Name: "contentRefs", Type: FieldContent, Label: "Content Items"},
				{Name: "columns", Type: FieldSelect, Label: "Columns", Options: []Option{
					{Label: "2 Columns", Value: 2},
					{Label: "3 Columns", Value: 3},
					{Label: "4 Columns", Value: 4},
				}},
				{Name: "contentType", Type: FieldSelect, Label: "Content Type Filter", Options: []Option{
					{Label: "All", Value: "all"},
					{Label: "Attractions", Value: "attraction"},
					{Label: "Hotels", Value: "hotel"},
					{Label: "Articles", Value: "article"},
				}},
			},
			Capabilities: Capabilities{Draggable: true, Deletable: true, Duplicatable: true},
			DefaultProps: map[string]any{"columns": 3, "contentType": "all", "contentRefs": []any{}},
		},
		Config{
			Type:        "imageBlock",
			DisplayName: "Image",
			Icon:        "🖼️",
			Category:    "media",
			EditableFields: []EditableField{
				{Name: "src", Type: FieldImage, Label: "Image", Required: true},
				{Name: "alt", Type: FieldText, Label: "Alt Text", MaxLength: 160},
				{Name: "caption", Type: FieldText, Label: "Caption", MaxLength: 200},
			},
			Capabilities: Capabilities{Draggable: true, Resizable: true, Deletable: true, Duplicatable: true},
			DefaultProps: map[string]any{"alt": "", "caption": ""},
		},
		Config{
			Type:        "spacer",
			DisplayName: "Spacer",
			Icon:        "↕️",
			Category:    "layout",
			EditableFields: []EditableField{
				{Name: "height", Type: FieldNumber, Label: "Height (px)"},
			},
			Capabilities: Capabilities{Draggable: true, Deletable: true, Duplicatable: true},
			DefaultProps: map[string]any{"height": 48},
		},
		Config{
			Type:        "columns",
			DisplayName: "Columns",
			Icon:        "🏛️",
			Category:    "layout",
			EditableFields: []EditableField{
				{Name: "count", Type: FieldSelect, Label: "Column Count", Options: []Option{
					{Label: "2", Value: 2},
					{Label: "3", Value: 3},
				}},
				{Name: "gap", Type: FieldNumber, Label: "Gap (px)"},
			},
			Capabilities: Capabilities{Draggable: true, Deletable: true, HasChildren: true},
			DefaultProps: map[string]any{"count": 2, "gap": 24},
		},
	)
}
