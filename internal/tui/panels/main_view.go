package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/tui/components"
)

// agentTabs is the tab order of the main view.
var agentTabs = []runstate.Tab{runstate.TabDev, runstate.TabReview}

var agentTabLabels = []string{"Dev", "Review"}

var infoLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

// TabChangedMsg is emitted when the viewer switches an agent between its
// dev and review output.
type TabChangedMsg struct {
	Slot int
	Tab  runstate.Tab
}

// MainProps is what the main view shows for the selected agent. Lines are
// the pre-rendered preview entries of ActiveTab.
type MainProps struct {
	Slot      int
	Status    string
	Task      string
	LogPath   string
	Review    *runstate.ReviewPhase
	ActiveTab runstate.Tab
	Lines     []string
}

// MainView is the right-top panel showing one agent's output preview.
type MainView struct {
	tabbar    components.TabBar
	logview   components.LogView
	slot      int
	hasAgent  bool
	info      string
	activeTab runstate.Tab
	width     int
	height    int
}

// NewMainView creates a MainView with the dev tab active.
func NewMainView(w, h int) MainView {
	return MainView{
		tabbar:    components.NewTabBar(agentTabLabels).SetWidth(w),
		logview:   components.NewLogView(w, contentHeight(h, 2)),
		activeTab: runstate.TabDev,
		width:     w,
		height:    h,
	}
}

func tabIndex(tab runstate.Tab) int {
	for i, t := range agentTabs {
		if t == tab {
			return i
		}
	}
	return 0
}

// Show replaces the displayed agent.
func (v MainView) Show(props MainProps) MainView {
	v.slot = props.Slot
	v.hasAgent = true
	v.activeTab = props.ActiveTab
	if v.activeTab == "" {
		v.activeTab = runstate.TabDev
	}
	v.tabbar = v.tabbar.SetActive(tabIndex(v.activeTab))
	badge := ""
	if props.Review != nil {
		badge = ReviewBadge(*props.Review)
	}
	v.tabbar = v.tabbar.SetBadge(tabIndex(runstate.TabReview), badge)

	parts := []string{fmt.Sprintf("agent %d", props.Slot)}
	if props.Status != "" {
		parts = append(parts, props.Status)
	}
	if props.Task != "" {
		parts = append(parts, props.Task)
	}
	if props.LogPath != "" {
		parts = append(parts, AbbreviatePath(props.LogPath))
	}
	v.info = strings.Join(parts, " · ")
	v.logview = v.logview.SetContent(props.Lines)
	return v
}

// Slot returns the displayed agent slot and whether one is shown.
func (v MainView) Slot() (int, bool) {
	return v.slot, v.hasAgent
}

// ActiveTab returns the displayed tab.
func (v MainView) ActiveTab() runstate.Tab {
	return v.activeTab
}

// SetSize resizes the main view.
func (v MainView) SetSize(w, h int) MainView {
	v.width = w
	v.height = h
	v.tabbar = v.tabbar.SetWidth(w)
	v.logview = v.logview.SetSize(w, contentHeight(h, 2))
	return v
}

// Update handles key messages for the main panel. Switching tabs emits a
// TabChangedMsg so the selection is recorded in the run state.
func (v MainView) Update(msg tea.Msg) (MainView, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "]", "[":
			if msg.String() == "]" {
				v.tabbar = v.tabbar.Next()
			} else {
				v.tabbar = v.tabbar.Prev()
			}
			v.activeTab = agentTabs[v.tabbar.Active()]
			if v.hasAgent {
				changed := TabChangedMsg{Slot: v.slot, Tab: v.activeTab}
				cmd = func() tea.Msg { return changed }
			}
		case "f":
			v.logview = v.logview.ToggleFollow()
		default:
			v.logview, cmd = v.logview.Update(msg)
		}
	default:
		v.logview, cmd = v.logview.Update(msg)
	}
	return v, cmd
}

// View renders the main panel: tab bar, agent line, then output.
func (v MainView) View() string {
	if !v.hasAgent {
		return lipgloss.NewStyle().
			Width(v.width).Height(v.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(lipgloss.Color("#888888")).
			Render("Waiting for agents…")
	}
	info := infoLineStyle.MaxWidth(v.width).Render(v.info)
	return lipgloss.JoinVertical(lipgloss.Left, v.tabbar.View(), info, v.logview.View())
}

// contentHeight is h minus the rows used by fixed chrome, at least 1.
func contentHeight(h, chrome int) int {
	if h-chrome < 1 {
		return 1
	}
	return h - chrome
}
