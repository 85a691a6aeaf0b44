package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/loop"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/store"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/tui/panels"
)

// Model is the root bubbletea model for the swarm TUI.
//
// It renders from two sources: loop events arriving on the events channel
// feed the event log, and run-state snapshots taken whenever the store
// signals an update feed the agent, timeline, and header panels.
type Model struct {
	events      <-chan loop.LogEntry
	state       *runstate.Store
	storeReader store.Reader

	agentsPanel     panels.AgentsPanel
	iterationsPanel panels.IterationsPanel
	mainView        panels.MainView
	eventsPanel     panels.EventsPanel

	layout Layout
	focus  FocusTarget
	theme  Theme
	width  int
	height int

	snap         runstate.Snapshot
	loopState    LoopState
	providerName string
	branch       string
	usage        provider.UsageSummary
	lastCommit   string

	startedAt time.Time
	now       time.Time

	projectName string
	workDir     string

	requestStop   func()
	stopRequested bool

	done bool
}

// New creates the TUI Model. state and storeReader may be nil.
// requestStop, if non-nil, is called once when the user presses 's'.
func New(events <-chan loop.LogEntry, state *runstate.Store, storeReader store.Reader, accentColor, projectName, workDir string, requestStop func()) Model {
	now := time.Now()
	layout := Calculate(80, 24)

	agentsW, agentsH := innerDims(layout.Agents)
	itersW, itersH := innerDims(layout.Iterations)
	mainW, mainH := innerDims(layout.Main)
	eventsW, eventsH := innerDims(layout.Events)

	m := Model{
		events:          events,
		state:           state,
		storeReader:     storeReader,
		agentsPanel:     panels.NewAgentsPanel(agentsW, agentsH),
		iterationsPanel: panels.NewIterationsPanel(itersW, itersH),
		mainView:        panels.NewMainView(mainW, mainH),
		eventsPanel:     panels.NewEventsPanel(eventsW, eventsH),
		layout:          layout,
		focus:           FocusMain,
		theme:           NewTheme(accentColor),
		width:           80,
		height:          24,
		loopState:       StateIdle,
		startedAt:       now,
		now:             now,
		projectName:     projectName,
		workDir:         workDir,
		requestStop:     requestStop,
	}
	if state != nil {
		m = m.applySnapshot(state.Snapshot())
	}
	return m
}

// Done reports whether the loop's event channel has closed.
func (m Model) Done() bool { return m.done }

// Init starts the event listener, the state watcher, and the clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), waitForUpdate(m.state), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the event channel and returns the next message.
func waitForEvent(ch <-chan loop.LogEntry) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return loopDoneMsg{}
		}
		return logEntryMsg(entry)
	}
}

// waitForUpdate blocks until the run state changes and returns a snapshot.
func waitForUpdate(state *runstate.Store) tea.Cmd {
	if state == nil {
		return nil
	}
	return func() tea.Msg {
		<-state.Updated()
		return snapshotMsg(state.Snapshot())
	}
}

// Update handles all incoming bubbletea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case logEntryMsg:
		return m.handleLogEntry(loop.LogEntry(msg))
	case snapshotMsg:
		m = m.applySnapshot(runstate.Snapshot(msg))
		return m, waitForUpdate(m.state)
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case loopDoneMsg:
		// The loop finished; keep the TUI open until the user quits.
		m.done = true
		if m.loopState.CanTransitionTo(StateDone) {
			m.loopState = StateDone
		}
		return m, nil
	case panels.TabChangedMsg:
		if m.state != nil {
			m.state.SetAgentActiveTab(msg.Slot, msg.Tab)
		}
		return m, nil
	case panels.IterationSelectedMsg:
		return m.handleIterationSelected(msg)
	case iterationLogLoadedMsg:
		return m.handleIterationLogLoaded(msg)
	}
	return m.delegateToFocused(msg)
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.layout = Calculate(msg.Width, msg.Height)
	if !m.layout.TooSmall {
		agentsW, agentsH := innerDims(m.layout.Agents)
		itersW, itersH := innerDims(m.layout.Iterations)
		mainW, mainH := innerDims(m.layout.Main)
		eventsW, eventsH := innerDims(m.layout.Events)
		m.agentsPanel = m.agentsPanel.SetSize(agentsW, agentsH)
		m.iterationsPanel = m.iterationsPanel.SetSize(itersW, itersH)
		m.mainView = m.mainView.SetSize(mainW, mainH)
		m.eventsPanel = m.eventsPanel.SetSize(eventsW, eventsH)
		m = m.refreshMain()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, globalKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, globalKeys.Stop):
		if m.requestStop != nil && !m.stopRequested {
			m.stopRequested = true
			m.requestStop()
		}
		return m, nil
	case key.Matches(msg, globalKeys.NextPanel):
		m.focus = m.focus.Next()
		return m, nil
	case key.Matches(msg, globalKeys.PrevPanel):
		m.focus = m.focus.Prev()
		return m, nil
	}
	if target, ok := globalKeys.jumpTarget(msg); ok {
		m.focus = target
		return m, nil
	}
	return m.delegateToFocused(msg)
}

func (m Model) delegateToFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case FocusAgents:
		m.agentsPanel, cmd = m.agentsPanel.Update(msg)
		m = m.refreshMain()
	case FocusIterations:
		m.iterationsPanel, cmd = m.iterationsPanel.Update(msg)
	case FocusMain:
		m.mainView, cmd = m.mainView.Update(msg)
	case FocusEvents:
		m.eventsPanel, cmd = m.eventsPanel.Update(msg)
	}
	return m, cmd
}

func (m Model) handleLogEntry(entry loop.LogEntry) (tea.Model, tea.Cmd) {
	if entry.Provider != "" {
		m.providerName = entry.Provider
	}
	if entry.Branch != "" {
		m.branch = entry.Branch
	}
	if entry.Commit != "" {
		m.lastCommit = entry.Commit
	}

	switch entry.Kind {
	case loop.LogIterStart:
		if m.loopState.CanTransitionTo(StateRunning) {
			m.loopState = StateRunning
		}
	case loop.LogIterComplete:
		if entry.Usage != nil {
			m.usage = m.usage.Add(*entry.Usage)
		}
		rec := store.IterationRecord{
			Number:   entry.Iteration,
			Duration: entry.Duration,
			Outcome:  entry.Outcome,
			Stop:     entry.Stop,
			Commit:   entry.Commit,
			EndAt:    entry.Timestamp,
		}
		if entry.Usage != nil {
			rec.Usage = *entry.Usage
		}
		m.iterationsPanel = m.iterationsPanel.AddRecord(rec)
		m.eventsPanel = m.eventsPanel.AddRecord(rec)
	case loop.LogError:
		if m.loopState.CanTransitionTo(StateFailed) {
			m.loopState = StateFailed
		}
	case loop.LogDone:
		if m.loopState.CanTransitionTo(StateDone) {
			m.loopState = StateDone
		}
	case loop.LogStopped:
		if m.loopState.CanTransitionTo(StateStopped) {
			m.loopState = StateStopped
		}
	}

	// Previews already reach the main view through the run state.
	if entry.Kind != loop.LogPreview {
		m.eventsPanel = m.eventsPanel.AppendLine(m.theme.RenderLogLine(entry, m.layout.Events.Width))
	}
	return m, waitForEvent(m.events)
}

// applySnapshot pushes a run-state snapshot into every panel that shows it.
func (m Model) applySnapshot(snap runstate.Snapshot) Model {
	m.snap = snap
	if snap.Run != nil {
		if snap.Run.Provider != "" {
			m.providerName = snap.Run.Provider
		}
		if snap.Run.Branch != "" {
			m.branch = snap.Run.Branch
		}
	}
	var tasks map[int]runstate.Task
	if snap.Summary != nil {
		tasks = snap.Summary.PickedBeadsByAgent
	}
	m.agentsPanel = m.agentsPanel.SetAgents(snap.Agents, tasks)
	m.iterationsPanel = m.iterationsPanel.SetTimeline(snap.Timeline)
	return m.refreshMain()
}

// refreshMain shows the agent selected in the sidebar in the main view.
func (m Model) refreshMain() Model {
	slot, ok := m.agentsPanel.SelectedSlot()
	if !ok {
		return m
	}
	for _, a := range m.snap.Agents {
		if a.Slot != slot {
			continue
		}
		tab := a.Selector.ActiveTab
		width, _ := innerDims(m.layout.Main)
		entries := a.Preview[tab]
		lines := make([]string, len(entries))
		for i, e := range entries {
			lines[i] = m.theme.RenderPreviewEntry(e, width)
		}
		props := panels.MainProps{
			Slot:      slot,
			Status:    a.Status,
			Review:    a.Selector.Review,
			ActiveTab: tab,
			Lines:     lines,
		}
		if m.snap.Run != nil {
			props.LogPath = m.snap.Run.AgentLogPaths[slot]
		}
		if m.snap.Summary != nil {
			if t, ok := m.snap.Summary.PickedBeadsByAgent[slot]; ok {
				props.Task = t.ID
			}
		}
		m.mainView = m.mainView.Show(props)
		break
	}
	return m
}

func (m Model) handleIterationSelected(msg panels.IterationSelectedMsg) (tea.Model, tea.Cmd) {
	if m.storeReader == nil {
		return m, nil
	}
	n := msg.Number
	reader := m.storeReader
	return m, func() tea.Msg {
		entries, err := reader.IterationLog(n)
		rec := store.IterationRecord{Number: n}
		if records, rErr := reader.Iterations(); rErr == nil {
			for _, r := range records {
				if r.Number == n {
					rec = r
					break
				}
			}
		}
		return iterationLogLoadedMsg{Number: n, Entries: entries, Record: rec, Err: err}
	}
}

func (m Model) handleIterationLogLoaded(msg iterationLogLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.eventsPanel = m.eventsPanel.AppendLine(errorStyle.Render(
			fmt.Sprintf("❌ cannot load iteration %d: %v", msg.Number, msg.Err)))
		return m, nil
	}
	rendered := make([]string, 0, len(msg.Entries))
	for _, e := range msg.Entries {
		rendered = append(rendered, m.theme.RenderLogLine(e, m.layout.Events.Width))
	}
	m.eventsPanel = m.eventsPanel.ShowIteration(msg.Record, rendered)
	m.focus = FocusEvents
	return m, nil
}

// countdown describes a pending pause or retry wait, if any.
func (m Model) countdown() string {
	switch {
	case m.snap.RetrySeconds != nil:
		return fmt.Sprintf("⟳ retry in %.1fs", *m.snap.RetrySeconds)
	case m.snap.PauseRemaining != nil:
		return fmt.Sprintf("⏸ next in %s", panels.FormatElapsed(*m.snap.PauseRemaining))
	}
	return ""
}

// View renders the full TUI.
func (m Model) View() string {
	if m.layout.TooSmall {
		msg := fmt.Sprintf("Terminal too small (%dx%d).\nPlease resize to at least 80x24.", m.width, m.height)
		return lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			Render(msg)
	}

	header := panels.RenderHeader(panels.HeaderProps{
		ProjectName: m.projectName,
		WorkDir:     m.workDir,
		Provider:    m.providerName,
		Branch:      m.branch,
		Iteration:   m.snap.Iteration,
		MaxIter:     m.snap.MaxIterations,
		Agents:      len(m.snap.Agents),
		Usage:       m.usage,
		StateSymbol: m.loopState.Symbol(),
		StateLabel:  m.loopState.Label(),
		Countdown:   m.countdown(),
		Elapsed:     m.now.Sub(m.startedAt),
		Clock:       m.now,
	}, m.layout.Header.Width, m.theme.AccentHeaderStyle())

	footerProps := panels.FooterProps{
		Focus:         m.focus.String(),
		LastCommit:    m.lastCommit,
		StopRequested: m.stopRequested,
	}
	if m.snap.Summary != nil {
		footerProps.Notice = m.snap.Summary.Notice
		footerProps.NoticeTone = string(m.snap.Summary.NoticeTone)
	}
	footer := panels.RenderFooter(footerProps, m.layout.Footer.Width)

	agentsW, agentsH := innerDims(m.layout.Agents)
	itersW, itersH := innerDims(m.layout.Iterations)
	mainW, mainH := innerDims(m.layout.Main)
	eventsW, eventsH := innerDims(m.layout.Events)

	sidebar := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.PanelBorderStyle(m.focus == FocusAgents).
			Width(agentsW).Height(agentsH).
			Render(m.agentsPanel.View()),
		m.theme.PanelBorderStyle(m.focus == FocusIterations).
			Width(itersW).Height(itersH).
			Render(m.iterationsPanel.View()),
	)

	rightCol := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.PanelBorderStyle(m.focus == FocusMain).
			Width(mainW).Height(mainH).
			Render(m.mainView.View()),
		m.theme.PanelBorderStyle(m.focus == FocusEvents).
			Width(eventsW).Height(eventsH).
			Render(m.eventsPanel.View()),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, rightCol)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// innerDims returns the content dimensions for a panel rect accounting for
// the 1-character border on each side.
func innerDims(r Rect) (w, h int) {
	w = r.Width - 2
	if w < 1 {
		w = 1
	}
	h = r.Height - 2
	if h < 1 {
		h = 1
	}
	return
}
