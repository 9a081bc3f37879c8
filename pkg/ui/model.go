package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/lazytree/pkg/tree"
)

// StoreEventMsg carries a store event into the update loop.
type StoreEventMsg struct {
	Event tree.Event
}

// ReadyTimeoutMsg makes the UI render even if the terminal never reports
// its size.
type ReadyTimeoutMsg struct{}

// ReadyTimeoutCmd returns a command that sends ReadyTimeoutMsg after 100ms.
func ReadyTimeoutCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return ReadyTimeoutMsg{}
	})
}

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputGoto
)

// Options configures the browser model.
type Options struct {
	Theme       Theme
	Favorites   map[int]string // number key -> context id
	SplitRatio  float64
	ShowDetail  bool
	DetailStyle string
	// Clipboard writes text to the system clipboard. Defaults to
	// clipboard.WriteAll.
	Clipboard func(string) error
	// ContextName labels a context id in the header. Defaults to the id.
	ContextName func(id string) string
}

// Model is the tree browser. All tree state lives in the store; the model
// only tracks cursor, input and layout.
type Model struct {
	store *tree.Store
	keys  KeyMap
	help  help.Model
	theme Theme

	tree   TreeModel
	detail DetailModel
	input  textinput.Model
	mode   inputMode

	favorites   map[int]string
	splitRatio  float64
	showDetail  bool
	showHelp    bool
	clipboard   func(string) error
	contextName func(string) string

	width  int
	height int
	ready  bool

	statusMsg     string
	statusIsError bool

	events      chan tree.Event
	unsubscribe func()
}

// NewModel builds a browser over store and subscribes to its events.
func NewModel(store *tree.Store, opts Options) Model {
	if opts.Theme.Renderer == nil {
		opts.Theme = DefaultTheme(lipgloss.DefaultRenderer())
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.ContextName == nil {
		opts.ContextName = func(id string) string { return id }
	}
	if opts.SplitRatio < 0.2 || opts.SplitRatio > 0.8 {
		opts.SplitRatio = 0.5
	}

	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 40

	m := Model{
		store:       store,
		keys:        DefaultKeys,
		help:        help.New(),
		theme:       opts.Theme,
		tree:        NewTreeModel(opts.Theme),
		detail:      NewDetailModel(opts.Theme, opts.DetailStyle),
		input:       ti,
		favorites:   opts.Favorites,
		splitRatio:  opts.SplitRatio,
		showDetail:  opts.ShowDetail,
		clipboard:   opts.Clipboard,
		contextName: opts.ContextName,
		events:      make(chan tree.Event, 64),
	}
	events := m.events
	m.unsubscribe = store.Subscribe(func(ev tree.Event) {
		// The view is re-derived on every message, so dropping a
		// notification while the buffer is full loses nothing.
		select {
		case events <- ev:
		default:
		}
	})
	m.refresh()
	return m
}

// WaitForStoreEvent blocks until the store publishes an event.
func WaitForStoreEvent(events <-chan tree.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return StoreEventMsg{Event: ev}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(WaitForStoreEvent(m.events), ReadyTimeoutCmd())
}

// Close detaches the model from the store.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case ReadyTimeoutMsg:
		if !m.ready {
			m.ready = true
			m.layout()
		}
		return m, nil

	case StoreEventMsg:
		m.handleStoreEvent(msg.Event)
		return m, WaitForStoreEvent(m.events)

	case tea.KeyMsg:
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		if m.showHelp {
			if key.Matches(msg, m.keys.Quit) {
				return m, tea.Quit
			}
			m.showHelp = false
			return m, nil
		}
		cmd := m.handleKey(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleStoreEvent(ev tree.Event) {
	switch ev.Kind {
	case tree.EventValidation:
		if msgs := m.store.Validation(); len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			m.setStatus(last.Text, last.Fatal)
		} else {
			m.setStatus("", false)
		}
	case tree.EventContextReset:
		m.setStatus(fmt.Sprintf("Switched to %s", m.contextName(ev.ContextID)), false)
	}
	m.refresh()
}

// refresh pulls the latest view from the store.
func (m *Model) refresh() {
	if m.store.TakeReset() {
		m.tree.Reset()
	}
	m.tree.SetView(m.store.View())
	m.syncDetail()
}

func (m *Model) syncDetail() {
	if !m.showDetail {
		return
	}
	row, ok := m.tree.CurrentRow()
	if !ok {
		m.detail.SetEntry(tree.Entry{}, false)
		return
	}
	e, ok := m.store.Entry(row.ID)
	m.detail.SetEntry(e, ok)
}

func (m *Model) setStatus(text string, isError bool) {
	m.statusMsg, m.statusIsError = text, isError
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.setStatus("", false)
	row, hasRow := m.tree.CurrentRow()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Up):
		m.tree.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.tree.MoveDown()
	case key.Matches(msg, m.keys.PageUp):
		m.tree.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.tree.PageDown()
	case key.Matches(msg, m.keys.Top):
		m.tree.JumpToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.tree.JumpToBottom()

	case key.Matches(msg, m.keys.Expand):
		if !hasRow {
			break
		}
		if row.Expandable && !row.Expanded && !row.Context {
			m.store.ExpandKey(row.ID, true, true)
			m.refresh()
		} else if next := m.tree.Cursor() + 1; next < m.tree.Len() && m.tree.Snapshot().Rows[next].Depth > row.Depth {
			m.tree.MoveDown()
		}
	case key.Matches(msg, m.keys.Collapse):
		if !hasRow {
			break
		}
		if row.Expanded && !row.Context {
			m.store.ExpandKey(row.ID, false, true)
			m.refresh()
		} else if parent := m.tree.ParentID(); parent != "" {
			m.tree.MoveTo(parent)
		}
	case key.Matches(msg, m.keys.Toggle):
		if hasRow && row.Expandable {
			m.store.ExpandKey(row.ID, !row.Expanded, true)
			m.refresh()
		}
	case key.Matches(msg, m.keys.Select):
		if hasRow {
			m.store.ToggleSelection(row.ID)
			m.refresh()
		}
	case key.Matches(msg, m.keys.ExpandAll):
		m.store.ExpandAll()
		m.refresh()
	case key.Matches(msg, m.keys.CollapseAll):
		m.store.CollapseAll()
		m.refresh()

	case key.Matches(msg, m.keys.Search):
		m.openInput(inputSearch, "/", m.store.SearchQuery())
		return textinput.Blink
	case key.Matches(msg, m.keys.Goto):
		m.openInput(inputGoto, ":", "")
		return textinput.Blink

	case key.Matches(msg, m.keys.Yank):
		if !hasRow {
			break
		}
		if err := m.clipboard(row.ID); err != nil {
			m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		} else {
			m.setStatus(fmt.Sprintf("Copied %s to clipboard", row.ID), false)
		}
	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
		m.layout()
		m.syncDetail()
	case key.Matches(msg, m.keys.Reload):
		m.store.Reload(context.Background())
		m.setStatus("Reloading…", false)
		m.refresh()

	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			m.switchFavorite(int(s[0] - '0'))
		}
	}
	m.syncDetail()
	return nil
}

func (m *Model) switchFavorite(n int) {
	id, ok := m.favorites[n]
	if !ok || id == "" {
		m.setStatus(fmt.Sprintf("No context assigned to %d", n), false)
		return
	}
	if !m.store.SetContext(id) {
		m.setStatus(fmt.Sprintf("Already on %s", m.contextName(id)), false)
		return
	}
	m.setStatus(fmt.Sprintf("Switched to %s", m.contextName(id)), false)
	m.refresh()
}

func (m *Model) openInput(mode inputMode, prompt, value string) {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	if mode == inputSearch {
		m.input.Placeholder = "Search…"
	} else {
		m.input.Placeholder = "Record id"
	}
	m.input.Focus()
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == inputSearch {
			m.store.Search("")
			m.refresh()
		}
		m.closeInput()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.closeInput()
		switch mode {
		case inputSearch:
			m.store.Search(value)
			if value != "" {
				m.tree.JumpToTop()
			}
		case inputGoto:
			m.reveal(value)
		}
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// reveal expands the ancestors of id and moves the cursor onto it.
func (m *Model) reveal(id string) {
	if id == "" {
		return
	}
	if _, ok := m.store.Entry(id); !ok {
		m.setStatus(fmt.Sprintf("%s is not loaded", id), true)
		return
	}
	m.store.SetSelectedFromExternal(id)
	m.tree.SetView(m.store.View())
	if !m.tree.MoveTo(id) {
		m.setStatus(fmt.Sprintf("Revealing %s…", id), false)
	}
}

func (m *Model) closeInput() {
	m.mode = inputNone
	m.input.Blur()
}

func (m *Model) layout() {
	bodyHeight := m.height - 2 // header + footer
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	treeWidth := m.width
	if m.showDetail {
		treeWidth = int(float64(m.width) * m.splitRatio)
		m.detail.SetSize(m.width-treeWidth-1, bodyHeight)
	}
	m.tree.SetSize(treeWidth, bodyHeight)
	m.help.Width = m.width
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	header := m.renderHeader()
	var body string
	switch {
	case m.showHelp:
		body = m.help.FullHelpView(m.keys.FullHelp())
	case m.showDetail:
		sep := m.theme.MutedText.Render(strings.Repeat("│\n", max(m.height-3, 0)) + "│")
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(m.tree.width).Render(m.tree.View()),
			sep,
			m.detail.View(),
		)
	default:
		body = m.tree.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderFooter())
}

func (m Model) renderHeader() string {
	v := m.tree.Snapshot()
	title := " " + m.contextName(v.ContextID)
	if v.ContextID == "" {
		title = " (no context)"
	}
	if n := favoriteNumber(m.favorites, v.ContextID); n > 0 {
		title = fmt.Sprintf(" [%d]%s", n, title)
	}
	var flags []string
	if v.Loading {
		flags = append(flags, "loading")
	}
	if v.Searching {
		flags = append(flags, "searching")
	} else if v.Query != "" {
		flags = append(flags, fmt.Sprintf("%d matches", len(v.Highlighted)))
	}
	if len(flags) > 0 {
		title += " (" + strings.Join(flags, ", ") + ")"
	}
	return m.theme.Header.Render(title)
}

func (m Model) renderFooter() string {
	if m.mode != inputNone {
		return m.input.View()
	}
	if m.statusMsg != "" {
		if m.statusIsError {
			return m.theme.ErrorText.Render(m.statusMsg)
		}
		return m.theme.SecondaryText.Render(m.statusMsg)
	}
	if q := m.store.SearchQuery(); q != "" {
		return m.theme.MatchText.Render("/"+q) + "  " + m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

func favoriteNumber(favorites map[int]string, contextID string) int {
	for n, id := range favorites {
		if id == contextID && contextID != "" {
			return n
		}
	}
	return 0
}
