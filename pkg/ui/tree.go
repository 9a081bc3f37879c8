// Package ui renders a tree store as an interactive terminal program.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/lazytree/pkg/tree"
)

// TreeModel is the scrollable row list. It renders a tree.View snapshot
// and tracks the cursor; all mutations go through the store.
type TreeModel struct {
	theme  Theme
	view   tree.View
	cursor int
	offset int // first visible row
	width  int
	height int
}

// NewTreeModel creates an empty tree pane.
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{theme: theme}
}

// SetSize sets the pane dimensions. One line is reserved for the position
// indicator.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// SetView swaps in a new snapshot, keeping the cursor on the same row id
// when it is still visible.
func (t *TreeModel) SetView(v tree.View) {
	prev, hadPrev := t.CurrentRow()
	t.view = v
	if hadPrev {
		for i, r := range v.Rows {
			if r.ID == prev.ID {
				t.cursor = i
				t.ensureCursorVisible()
				return
			}
		}
	}
	t.clampCursor()
}

// Reset moves the cursor back to the top.
func (t *TreeModel) Reset() {
	t.cursor, t.offset = 0, 0
}

// Snapshot returns the view being rendered.
func (t *TreeModel) Snapshot() tree.View { return t.view }

// Len returns the number of visible rows.
func (t *TreeModel) Len() int { return len(t.view.Rows) }

// Cursor returns the cursor row index.
func (t *TreeModel) Cursor() int { return t.cursor }

// CurrentRow returns the row under the cursor.
func (t *TreeModel) CurrentRow() (tree.Row, bool) {
	if t.cursor < 0 || t.cursor >= len(t.view.Rows) {
		return tree.Row{}, false
	}
	return t.view.Rows[t.cursor], true
}

// CurrentEntry returns the entry under the cursor.
func (t *TreeModel) CurrentEntry() (tree.Entry, bool) {
	row, ok := t.CurrentRow()
	if !ok {
		return tree.Entry{}, false
	}
	return t.view.Lookup(row.ID)
}

// MoveTo places the cursor on id if it is visible.
func (t *TreeModel) MoveTo(id string) bool {
	for i, r := range t.view.Rows {
		if r.ID == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.view.Rows)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

func (t *TreeModel) JumpToBottom() {
	t.cursor = max(len(t.view.Rows)-1, 0)
	t.ensureCursorVisible()
}

// PageDown moves the cursor forward by one page.
func (t *TreeModel) PageDown() {
	t.cursor = min(t.cursor+t.visibleCount(), max(len(t.view.Rows)-1, 0))
	t.ensureCursorVisible()
}

// PageUp moves the cursor back by one page.
func (t *TreeModel) PageUp() {
	t.cursor = max(t.cursor-t.visibleCount(), 0)
	t.ensureCursorVisible()
}

// ParentID returns the parent of the row under the cursor in the rendered
// forest, or "" for roots.
func (t *TreeModel) ParentID() string {
	row, ok := t.CurrentRow()
	if !ok {
		return ""
	}
	path := t.view.Forest.Path(row.ID)
	if len(path) < 2 {
		return ""
	}
	return path[len(path)-2]
}

func (t *TreeModel) visibleCount() int {
	if t.height <= 1 {
		return max(len(t.view.Rows), 1)
	}
	return t.height - 1
}

func (t *TreeModel) clampCursor() {
	if t.cursor >= len(t.view.Rows) {
		t.cursor = len(t.view.Rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) ensureCursorVisible() {
	n := t.visibleCount()
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+n {
		t.offset = t.cursor - n + 1
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

func (t *TreeModel) visibleRange() (start, end int) {
	start = t.offset
	end = min(start+t.visibleCount(), len(t.view.Rows))
	if start > end {
		start = end
	}
	return start, end
}

// View renders the visible window of rows.
func (t *TreeModel) View() string {
	if len(t.view.Rows) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		sb.WriteString(t.renderRow(t.view.Rows[i], i == t.cursor))
		sb.WriteString("\n")
	}
	if len(t.view.Rows) > t.visibleCount() {
		sb.WriteString(t.theme.MutedText.Render(
			fmt.Sprintf(" %d-%d of %d", start+1, end, len(t.view.Rows))))
	}
	return sb.String()
}

func (t *TreeModel) renderEmptyState() string {
	switch {
	case t.view.Loading:
		return t.theme.MutedText.Render("Loading…")
	case t.view.Query != "" && !t.view.Searching:
		return t.theme.MutedText.Render(fmt.Sprintf("No matches for %q.", t.view.Query))
	case t.view.ContextID == "":
		return t.theme.MutedText.Render("No context selected.")
	}
	return t.theme.MutedText.Render("Nothing to display.")
}

// renderRow lays out [prefix] [indicator] [icon] [title] [id].
func (t *TreeModel) renderRow(row tree.Row, isSelected bool) string {
	r := t.theme.Renderer
	width := t.width
	if width <= 0 {
		width = 80
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	width--

	var left strings.Builder
	prefix := t.buildTreePrefix(row.ID)
	left.WriteString(t.theme.MutedText.Render(prefix))
	left.WriteString(r.NewStyle().Foreground(t.theme.Secondary).Render(expandIndicator(row)))
	left.WriteString(" ")

	icon := row.Display.Icon
	if row.Selected {
		icon = "●"
	} else if icon == "" {
		icon = "·"
	}
	left.WriteString(r.NewStyle().Foreground(t.theme.ClassColor(row.Display.Class)).Render(icon))
	left.WriteString(" ")

	id := truncateRunesHelper(row.ID, 24, "…")
	fixed := runewidth.StringWidth(prefix) + 2 + runewidth.StringWidth(icon) + 1
	titleWidth := width - fixed - runewidth.StringWidth(id) - 1
	if titleWidth < 5 {
		titleWidth = 5
	}
	title := truncateRunesHelper(row.Display.Title, titleWidth, "…")

	titleStyle := r.NewStyle()
	switch {
	case isSelected:
		titleStyle = titleStyle.Foreground(t.theme.Primary).Bold(true)
	case row.Highlighted:
		titleStyle = t.theme.MatchText
	case row.Context:
		titleStyle = t.theme.ContextText
	default:
		titleStyle = t.theme.Base
	}
	left.WriteString(titleStyle.Render(title))

	right := t.theme.SecondaryText.Render(id)
	padding := width - lipgloss.Width(left.String()) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	line := left.String() + strings.Repeat(" ", padding) + right
	line = r.NewStyle().MaxWidth(width).Render(line)
	if isSelected {
		line = t.theme.Selected.Render(line)
	}
	return line
}

func expandIndicator(row tree.Row) string {
	switch {
	case row.Loading:
		return "⟳"
	case !row.Expandable:
		return "•"
	case row.Expanded || row.Context:
		return "▾"
	}
	return "▸"
}

// buildTreePrefix draws the branch lines for a row from the forest links.
func (t *TreeModel) buildTreePrefix(id string) string {
	f := t.view.Forest
	path := f.Path(id)
	if len(path) <= 1 {
		return ""
	}
	var parts []string
	for i := 1; i < len(path)-1; i++ {
		if t.hasSiblingsBelow(path[i]) {
			parts = append(parts, "│   ")
		} else {
			parts = append(parts, "    ")
		}
	}
	if t.hasSiblingsBelow(id) {
		parts = append(parts, "├── ")
	} else {
		parts = append(parts, "└── ")
	}
	return strings.Join(parts, "")
}

func (t *TreeModel) hasSiblingsBelow(id string) bool {
	f := t.view.Forest
	n, ok := f.Lookup(id)
	if !ok {
		return false
	}
	siblings := f.Roots
	if n.Parent >= 0 {
		siblings = f.Nodes[n.Parent].Children
	}
	for i, s := range siblings {
		if f.Nodes[s].ID == id {
			return i < len(siblings)-1
		}
	}
	return false
}

// truncateRunesHelper truncates s to maxWidth display cells, appending
// suffix when shortened.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth-suffixWidth, "") + suffix
}
