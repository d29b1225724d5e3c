package mapcmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lorebookhq/lorebook/pkg/client"
	"github.com/lorebookhq/lorebook/pkg/graph"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

var (
	mapTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	mapMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	mapAccentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	mapSectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	mapDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	mapHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("214")).Bold(true)
	mapKindNoteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	mapKindDraftStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mapKindArtStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	mapTagStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	mapErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// kindFilters cycles through with the filter key. Empty means all kinds.
var kindFilters = []string{"", "note", "draft", "artifact"}

type mapKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Link    key.Binding
	Follow  key.Binding
	Back    key.Binding
	Filter  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func (k mapKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Link, k.Follow, k.Back, k.Filter, k.Refresh, k.Quit}
}

func (k mapKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Link, k.Follow}, {k.Back, k.Filter, k.Refresh, k.Quit}}
}

func defaultKeyMap() mapKeyMap {
	return mapKeyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Link:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next link")),
		Follow:  key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "follow")),
		Back:    key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "back")),
		Filter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "kind")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type graphLoadedMsg struct {
	graph *graph.Graph
	err   error
}

type mapModel struct {
	client    *client.Client
	projectID string
	graph     *graph.Graph

	visible     []graph.Node
	cursor      int
	linkCursor  int
	history     []string
	filterIndex int
	lastErr     error

	width  int
	height int
	keys   mapKeyMap
	help   help.Model
}

func runMapTUI(ctx context.Context, cl *client.Client, projectID string, g *graph.Graph) error {
	model := newMapModel(cl, projectID, g)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func newMapModel(cl *client.Client, projectID string, g *graph.Graph) mapModel {
	m := mapModel{
		client:    cl,
		projectID: projectID,
		graph:     g,
		keys:      defaultKeyMap(),
		help:      help.New(),
	}
	m.applyFilter()
	return m
}

func (m mapModel) Init() bubbletea.Cmd {
	return nil
}

func (m mapModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case graphLoadedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		m.graph = msg.graph
		m.applyFilter()
		return m, nil

	case bubbletea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, bubbletea.Quit

		case key.Matches(msg, m.keys.Down):
			m.cursor = clamp(m.cursor+1, 0, len(m.visible)-1)
			m.linkCursor = 0

		case key.Matches(msg, m.keys.Up):
			m.cursor = clamp(m.cursor-1, 0, len(m.visible)-1)
			m.linkCursor = 0

		case key.Matches(msg, m.keys.Link):
			if links := m.selectedLinks(); len(links) > 0 {
				m.linkCursor = (m.linkCursor + 1) % len(links)
			}

		case key.Matches(msg, m.keys.Follow):
			m.follow()

		case key.Matches(msg, m.keys.Back):
			m.back()

		case key.Matches(msg, m.keys.Filter):
			m.filterIndex = (m.filterIndex + 1) % len(kindFilters)
			m.applyFilter()

		case key.Matches(msg, m.keys.Refresh):
			return m, m.refreshCmd()
		}
	}

	return m, nil
}

func (m *mapModel) refreshCmd() bubbletea.Cmd {
	cl, projectID := m.client, m.projectID
	return func() bubbletea.Msg {
		g, err := loadGraph(context.Background(), cl, projectID)
		return graphLoadedMsg{graph: g, err: err}
	}
}

// applyFilter rebuilds the visible node list for the current kind filter,
// keeping the cursor on the selected node when it survives the filter.
func (m *mapModel) applyFilter() {
	var selectedID string
	if m.cursor < len(m.visible) {
		selectedID = m.visible[m.cursor].ID
	}

	filter := kindFilters[m.filterIndex]
	m.visible = m.visible[:0]
	for _, n := range m.graph.Nodes {
		if filter == "" || string(n.Kind) == filter {
			m.visible = append(m.visible, n)
		}
	}

	m.cursor = 0
	m.linkCursor = 0
	for i, n := range m.visible {
		if n.ID == selectedID {
			m.cursor = i
			break
		}
	}
}

func (m *mapModel) selected() (graph.Node, bool) {
	if m.cursor >= len(m.visible) {
		return graph.Node{}, false
	}
	return m.visible[m.cursor], true
}

func (m *mapModel) selectedLinks() []string {
	node, ok := m.selected()
	if !ok {
		return nil
	}
	return m.graph.Neighbors(node.ID)
}

// follow jumps to the link under the link cursor, pushing the current node
// onto the history stack. Following clears any kind filter so the target is
// always visible.
func (m *mapModel) follow() {
	links := m.selectedLinks()
	if len(links) == 0 {
		return
	}

	node, _ := m.selected()
	target := links[clamp(m.linkCursor, 0, len(links)-1)]
	if _, ok := m.graph.Lookup(target); !ok {
		return
	}

	m.history = append(m.history, node.ID)
	m.filterIndex = 0
	m.applyFilter()
	m.jumpTo(target)
}

func (m *mapModel) back() {
	if len(m.history) == 0 {
		return
	}
	last := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.filterIndex = 0
	m.applyFilter()
	m.jumpTo(last)
}

func (m *mapModel) jumpTo(id string) {
	for i, n := range m.visible {
		if n.ID == id {
			m.cursor = i
			m.linkCursor = 0
			return
		}
	}
}

func (m mapModel) View() string {
	if m.width == 0 {
		return "loading..."
	}

	header := m.renderHeader()
	footer := m.help.View(m.keys)

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer) - 1
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	listWidth := m.width / 2
	detailWidth := m.width - listWidth - 1

	list := m.renderList(listWidth, bodyHeight)
	detail := m.renderDetail(detailWidth)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth).Height(bodyHeight).Render(list),
		lipgloss.NewStyle().Width(detailWidth).Height(bodyHeight).Render(detail),
	)

	return header + "\n" + body + "\n" + footer
}

func (m mapModel) renderHeader() string {
	title := mapTitleStyle.Render("lorebook map")
	counts := mapMutedStyle.Render(fmt.Sprintf("%d nodes, %d links", len(m.graph.Nodes), len(m.graph.Edges)))

	filter := kindFilters[m.filterIndex]
	if filter != "" {
		counts += "  " + mapAccentStyle.Render("[kind: "+filter+"]")
	}
	if m.lastErr != nil {
		counts += "  " + mapErrorStyle.Render("refresh failed: "+m.lastErr.Error())
	}

	return fmt.Sprintf(" %s  %s\n%s", title, counts, renderRule(m.width))
}

func (m mapModel) renderList(width, height int) string {
	if len(m.visible) == 0 {
		return mapMutedStyle.Render("  no nodes")
	}

	// Scroll window around the cursor.
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := start + height
	if end > len(m.visible) {
		end = len(m.visible)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		n := m.visible[i]
		label := truncateText(n.Title, width-10)
		line := fmt.Sprintf("%s %s", kindBadge(string(n.Kind)), label)

		if i == m.cursor {
			line = mapHighlightStyle.Render("▸ " + label)
			line = fmt.Sprintf("%s %s", kindBadge(string(n.Kind)), line)
		}

		b.WriteString(" " + line + "\n")
	}

	return b.String()
}

func (m mapModel) renderDetail(width int) string {
	node, ok := m.selected()
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(" " + mapSectionStyle.Render(truncateText(node.Title, width-2)) + "\n")
	b.WriteString(" " + mapMutedStyle.Render(node.ID) + "\n")
	b.WriteString(" " + kindBadge(string(node.Kind)))
	if len(node.Tags) > 0 {
		b.WriteString("  " + mapTagStyle.Render("#"+strings.Join(node.Tags, " #")))
	}
	b.WriteString("\n\n")

	links := m.graph.Neighbors(node.ID)
	b.WriteString(" " + mapSectionStyle.Render(fmt.Sprintf("Links (%d)", len(links))) + "\n")
	if len(links) == 0 {
		b.WriteString(" " + mapMutedStyle.Render("none") + "\n")
	}
	for i, target := range links {
		label := target
		if t, ok := m.graph.Lookup(target); ok {
			label = t.Title
		}
		label = truncateText(label, width-6)

		if i == m.linkCursor {
			b.WriteString(" " + mapAccentStyle.Render("▸ "+label) + "\n")
		} else {
			b.WriteString("   " + label + "\n")
		}
	}

	backlinks := m.backlinks(node.ID)
	b.WriteString("\n " + mapSectionStyle.Render(fmt.Sprintf("Linked from (%d)", len(backlinks))) + "\n")
	if len(backlinks) == 0 {
		b.WriteString(" " + mapMutedStyle.Render("none") + "\n")
	}
	for _, source := range backlinks {
		label := source
		if s, ok := m.graph.Lookup(source); ok {
			label = s.Title
		}
		b.WriteString("   " + mapMutedStyle.Render(truncateText(label, width-6)) + "\n")
	}

	return b.String()
}

func (m mapModel) backlinks(id string) []string {
	var sources []string
	for _, e := range m.graph.Edges {
		if e.To == id {
			sources = append(sources, e.From)
		}
	}
	return sources
}

func kindBadge(kind string) string {
	switch kind {
	case "draft":
		return mapKindDraftStyle.Render("[draft]")
	case "artifact":
		return mapKindArtStyle.Render("[artfct]")
	default:
		return mapKindNoteStyle.Render("[note] ")
	}
}

func renderRule(width int) string {
	if width <= 0 {
		return ""
	}
	return mapDividerStyle.Render(strings.Repeat("─", width))
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncateText(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
