package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/lazytree/pkg/tree"
)

// DetailModel renders the entry under the cursor as markdown.
type DetailModel struct {
	theme  Theme
	style  string // glamour standard style, or "auto"
	width  int
	height int

	renderer      *glamour.TermRenderer
	rendererWidth int

	entryID string
	content string
}

// NewDetailModel creates a detail pane using the named glamour style.
func NewDetailModel(theme Theme, style string) DetailModel {
	if style == "" {
		style = "dark"
	}
	return DetailModel{theme: theme, style: style}
}

// SetSize updates the pane dimensions; the renderer is rebuilt lazily when
// the width changes.
func (d *DetailModel) SetSize(width, height int) {
	if width != d.width {
		d.content = ""
	}
	d.width = width
	d.height = height
}

// SetEntry shows e. Passing ok=false clears the pane.
func (d *DetailModel) SetEntry(e tree.Entry, ok bool) {
	if !ok {
		d.entryID, d.content = "", ""
		return
	}
	d.entryID = e.ID
	d.content = d.render(EntryMarkdown(e))
}

// EntryID returns the id currently displayed.
func (d *DetailModel) EntryID() string { return d.entryID }

func (d *DetailModel) View() string {
	if d.entryID == "" {
		return d.theme.MutedText.Render("No entry selected.")
	}
	out := d.content
	if d.height > 0 {
		lines := strings.Split(out, "\n")
		if len(lines) > d.height {
			out = strings.Join(lines[:d.height], "\n")
		}
	}
	return out
}

func (d *DetailModel) render(md string) string {
	wrap := d.width - 4
	if wrap < 20 {
		wrap = 20
	}
	if d.renderer == nil || d.rendererWidth != wrap {
		styleOpt := glamour.WithStandardStyle(d.style)
		if d.style == "auto" {
			styleOpt = glamour.WithAutoStyle()
		}
		r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
		if err != nil {
			return md
		}
		d.renderer, d.rendererWidth = r, wrap
	}
	out, err := d.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// EntryMarkdown formats an entry's record as a markdown document.
func EntryMarkdown(e tree.Entry) string {
	var sb strings.Builder
	title := e.Display.Title
	if title == "" {
		title = e.ID
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	fmt.Fprintf(&sb, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| ID | `%s` |\n", e.ID)
	if e.ParentID != "" {
		fmt.Fprintf(&sb, "| Parent | `%s` |\n", e.ParentID)
	}
	if e.Display.Class != "" {
		fmt.Fprintf(&sb, "| Class | %s |\n", e.Display.Class)
	}
	fmt.Fprintf(&sb, "| Children | %s |\n", childSummary(e))
	if !e.Record.UpdatedAt.IsZero() {
		fmt.Fprintf(&sb, "| Updated | %s |\n", e.Record.UpdatedAt.Format("2006-01-02 15:04"))
	}

	if len(e.Record.Attributes) > 0 {
		sb.WriteString("\n## Attributes\n\n| Name | Value |\n|---|---|\n")
		keys := make([]string, 0, len(e.Record.Attributes))
		for k := range e.Record.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := strings.ReplaceAll(e.Record.Attributes[k], "|", "\\|")
			fmt.Fprintf(&sb, "| %s | %s |\n", k, v)
		}
	}
	return sb.String()
}

func childSummary(e tree.Entry) string {
	switch {
	case e.Loading:
		return "loading"
	case len(e.ChildIDs) > 0:
		return fmt.Sprintf("%d", len(e.ChildIDs))
	case e.HasChildren == tree.ChildrenAbsent:
		return "none"
	case e.HasChildren == tree.ChildrenPresent:
		if e.Loaded {
			return "loaded"
		}
		return "not loaded"
	}
	return "unknown"
}
