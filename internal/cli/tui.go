package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tensorlab/opsched/pkg/graph"
	"github.com/tensorlab/opsched/pkg/graph/view"
	"github.com/tensorlab/opsched/pkg/pipeline"
)

var (
	browserDimStyle    = lipgloss.NewStyle().Foreground(inkFaint)
	browserHeaderStyle = lipgloss.NewStyle().Foreground(inkSoft).Bold(true)
	browserCursorStyle = lipgloss.NewStyle().Foreground(inkPrimary).Bold(true)
	browserJumperStyle = lipgloss.NewStyle().Foreground(inkWarn)
)

// orderBrowser is the bubbletea model behind "inspect --interactive". It
// shows one execution order at a time; d and p flip between the default
// and priority orders while keeping the scroll position clamped.
type orderBrowser struct {
	view   *view.View
	orders map[string][]graph.NodeIndex
	errs   map[string]error
	kind   string
	cursor int
	offset int
	height int
}

func newOrderBrowser(v *view.View, orders map[string][]graph.NodeIndex, errs map[string]error) orderBrowser {
	return orderBrowser{
		view:   v,
		orders: orders,
		errs:   errs,
		kind:   pipeline.KindDefault,
		height: 15,
	}
}

func (m orderBrowser) Init() tea.Cmd {
	return nil
}

func (m orderBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.current())-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "d":
			m.kind = pipeline.KindDefault
			m.clamp()
		case "p":
			m.kind = pipeline.KindPriority
			m.clamp()
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 8
		if m.height < 5 {
			m.height = 5
		}
		m.clamp()
	}
	return m, nil
}

// current returns the nodes of the active order kind.
func (m orderBrowser) current() []graph.NodeIndex {
	return m.orders[m.kind]
}

// clamp keeps cursor and offset inside the active order after a kind or
// window change.
func (m *orderBrowser) clamp() {
	n := len(m.current())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.offset > m.cursor {
		m.offset = m.cursor
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m orderBrowser) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Execution order — " + m.kind))
	b.WriteString("\n")
	b.WriteString(browserDimStyle.Render("↑/↓ navigate  d default  p priority  q quit"))
	b.WriteString("\n\n")

	if err, ok := m.errs[m.kind]; ok {
		b.WriteString(StyleWarning.Render(fmt.Sprintf("%s order unavailable: %v", m.kind, err)))
		b.WriteString("\n")
		return b.String()
	}

	nodes := m.current()
	if len(nodes) == 0 {
		b.WriteString(browserDimStyle.Render("(no nodes)"))
		b.WriteString("\n")
		return b.String()
	}
	end := m.offset + m.height
	if end > len(nodes) {
		end = len(nodes)
	}

	rows := [][]string{}
	for i := m.offset; i < end; i++ {
		n := m.view.Node(nodes[i])

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		name := n.Name()
		if name == "" {
			name = "—"
		}
		rows = append(rows, []string{
			cursor,
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%d", int(nodes[i])),
			n.OpType(),
			fmt.Sprintf("%d", n.Priority()),
			name,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(inkFaint)).
		Headers("", "Pos", "Idx", "Op", "Priority", "Name").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return browserHeaderStyle
			}
			idx := m.offset + row
			if idx >= len(nodes) {
				return lipgloss.NewStyle()
			}
			n := m.view.Node(nodes[idx])
			if idx == m.cursor {
				return browserCursorStyle
			}
			// Shape queries jump the priority queue; call them out.
			if m.kind == pipeline.KindPriority && (n.OpType() == "Shape" || n.OpType() == "Size") {
				return browserJumperStyle
			}
			return lipgloss.NewStyle().Foreground(inkBright)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(browserDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(nodes))))

	return b.String()
}
